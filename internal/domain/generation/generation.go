package generation

import (
	"time"

	"gorm.io/gorm"
)

const (
	MaxSubjectLen = 100
	MaxGradeLen   = 50
	MaxUnitLen    = 200
)

// Generation is one persisted run for a subject/grade/unit. Subject, grade and
// unit are fixed at creation; outline, content and questions fill in as the
// stages complete.
type Generation struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Subject   string    `gorm:"size:100;not null" json:"subject"`
	Grade     string    `gorm:"size:50;not null" json:"grade"`
	Unit      string    `gorm:"size:200;not null" json:"unit"`
	Outline   *string   `gorm:"type:text" json:"outline"`
	Content   *string   `gorm:"type:text" json:"content"`
	Questions *string   `gorm:"type:text" json:"questions"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Generation) TableName() string { return "generations" }

func (g *Generation) BeforeCreate(tx *gorm.DB) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (g *Generation) OutlineText() string   { return deref(g.Outline) }
func (g *Generation) ContentText() string   { return deref(g.Content) }
func (g *Generation) QuestionsText() string { return deref(g.Questions) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
