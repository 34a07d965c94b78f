package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

const TypeGenerateContent = "generate_content"

// GenerationJob is the persisted handle of a background content run.
type GenerationJob struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	GenerationID uint           `gorm:"column:generation_id;not null;index" json:"generation_id"`
	JobType      string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	Stage        string         `gorm:"column:stage;not null" json:"stage"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	Payload      datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	Result       datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null" json:"updated_at"`
	FinishedAt   *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (GenerationJob) TableName() string { return "generation_jobs" }

func (j *GenerationJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusQueued
	}
	return nil
}

// Terminal reports whether the job will not change status again.
func (j *GenerationJob) Terminal() bool {
	return IsTerminal(j.Status)
}

func IsTerminal(status string) bool {
	switch status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}
