package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/materialgen-backend/internal/data/repos"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

type Repos struct {
	Generation    repos.GenerationRepo
	GenerationJob repos.GenerationJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Generation:    repos.NewGenerationRepo(db, log),
		GenerationJob: repos.NewGenerationJobRepo(db, log),
	}
}
