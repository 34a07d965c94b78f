package generation

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/materialgen-backend/internal/data/db"
	types "github.com/yungbote/materialgen-backend/internal/domain/generation"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

var ErrNotFound = errors.New("generation not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type GenerationRepo interface {
	Create(dbc dbctx.Context, g *types.Generation) (*types.Generation, error)
	GetByID(dbc dbctx.Context, id uint) (*types.Generation, error)
	// List returns records newest first.
	List(dbc dbctx.Context, limit, offset int) ([]*types.Generation, error)
	UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uint) error
}

type generationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationRepo(db *gorm.DB, baseLog *logger.Logger) GenerationRepo {
	return &generationRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationRepo"),
	}
}

func (r *generationRepo) Create(dbc dbctx.Context, g *types.Generation) (*types.Generation, error) {
	if g == nil {
		return nil, errors.New("nil generation")
	}
	if err := dbc.DB(r.db).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

func (r *generationRepo) GetByID(dbc dbctx.Context, id uint) (*types.Generation, error) {
	var g types.Generation
	err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&g).Error
	if err != nil {
		return nil, err
	}
	if g.ID == 0 {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (r *generationRepo) List(dbc dbctx.Context, limit, offset int) ([]*types.Generation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	var out []*types.Generation
	if err := dbc.DB(r.db).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateFields only touches outline, content and questions. Subject, grade
// and unit are fixed once a record exists.
func (r *generationRepo) UpdateFields(dbc dbctx.Context, id uint, updates map[string]interface{}) error {
	clean := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		switch k {
		case "outline", "content", "questions":
			clean[k] = v
		}
	}
	if len(clean) == 0 {
		return nil
	}
	var res *gorm.DB
	if err := db.Write(dbc, func() error {
		res = dbc.DB(r.db).Model(&types.Generation{}).Where("id = ?", id).Updates(clean)
		return res.Error
	}); err != nil {
		return err
	}
	if res.RowsAffected == 0 {
		// Updates reports 0 rows when values are unchanged on some drivers.
		if _, err := r.GetByID(dbc, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *generationRepo) Delete(dbc dbctx.Context, id uint) error {
	res := dbc.DB(r.db).Where("id = ?", id).Delete(&types.Generation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
