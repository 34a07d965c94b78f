package jobs

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/materialgen-backend/internal/data/db"
	types "github.com/yungbote/materialgen-backend/internal/domain/jobs"
	"github.com/yungbote/materialgen-backend/internal/pkg/dbctx"
	"github.com/yungbote/materialgen-backend/internal/platform/logger"
)

var ErrNotFound = errors.New("job not found")

type GenerationJobRepo interface {
	Create(dbc dbctx.Context, job *types.GenerationJob) (*types.GenerationJob, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationJob, error)
	GetLatestByGeneration(dbc dbctx.Context, generationID uint) (*types.GenerationJob, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// UpdateFieldsUnlessStatus applies updates only when the current status is not
	// in disallowed. It reports whether a row changed.
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error)
	// MarkInterrupted fails every queued or running row. Run once at startup.
	MarkInterrupted(dbc dbctx.Context) (int64, error)
}

type generationJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationJobRepo(db *gorm.DB, baseLog *logger.Logger) GenerationJobRepo {
	return &generationJobRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationJobRepo"),
	}
}

func (r *generationJobRepo) Create(dbc dbctx.Context, job *types.GenerationJob) (*types.GenerationJob, error) {
	if job == nil {
		return nil, errors.New("nil job")
	}
	if err := dbc.DB(r.db).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *generationJobRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GenerationJob, error) {
	if id == uuid.Nil {
		return nil, ErrNotFound
	}
	var job types.GenerationJob
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&job).Error; err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (r *generationJobRepo) GetLatestByGeneration(dbc dbctx.Context, generationID uint) (*types.GenerationJob, error) {
	var job types.GenerationJob
	err := dbc.DB(r.db).
		Where("generation_id = ?", generationID).
		Order("created_at DESC").
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &job, nil
}

func (r *generationJobRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return db.Write(dbc, func() error {
		return dbc.DB(r.db).Model(&types.GenerationJob{}).Where("id = ?", id).Updates(updates).Error
	})
}

func (r *generationJobRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowed []string, updates map[string]interface{}) (bool, error) {
	if len(updates) == 0 {
		return false, nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	var res *gorm.DB
	if err := db.Write(dbc, func() error {
		q := dbc.DB(r.db).Model(&types.GenerationJob{}).Where("id = ?", id)
		if len(disallowed) > 0 {
			q = q.Where("status NOT IN ?", disallowed)
		}
		res = q.Updates(updates)
		return res.Error
	}); err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

func (r *generationJobRepo) MarkInterrupted(dbc dbctx.Context) (int64, error) {
	now := time.Now().UTC()
	res := dbc.DB(r.db).
		Model(&types.GenerationJob{}).
		Where("status IN ?", []string{types.StatusQueued, types.StatusRunning}).
		Updates(map[string]interface{}{
			"status":      types.StatusFailed,
			"stage":       "interrupted",
			"error":       "interrupted by restart",
			"updated_at":  now,
			"finished_at": now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Warn("marked interrupted jobs failed", "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
