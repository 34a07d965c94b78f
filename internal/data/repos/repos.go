package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/materialgen-backend/internal/data/repos/generation"
	"github.com/yungbote/materialgen-backend/internal/data/repos/jobs"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type GenerationRepo = generation.GenerationRepo
type GenerationJobRepo = jobs.GenerationJobRepo

var (
	ErrGenerationNotFound = generation.ErrNotFound
	ErrJobNotFound        = jobs.ErrNotFound
)

func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
	return generation.NewGenerationRepo(db, baseLog)
}

func NewGenerationJobRepo(db *gorm.DB, baseLog *logger.Logger) GenerationJobRepo {
	return jobs.NewGenerationJobRepo(db, baseLog)
}
