package prescription

import (
	"time"

	"github.com/google/uuid"
)

type SuggestionStatus string

const (
	StatusDraft    SuggestionStatus = "draft"
	StatusReviewed SuggestionStatus = "reviewed"
	StatusRejected SuggestionStatus = "rejected"
)

// Suggestion is a model-generated prescription draft tied to a report.
// Suggestions are advisory and must be reviewed by a doctor before any
// clinical use; they are persisted for audit.
type Suggestion struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	ReportID    uuid.UUID `gorm:"column:report_id;type:uuid;not null;index"`
	PatientName string    `gorm:"column:patient_name;type:varchar(255);index"`

	// Full advisory text as produced for display
	Content string `gorm:"column:content;type:text;not null"`

	// True when the content came from the gateway rather than the
	// local highlight-based template
	ModelGenerated bool `gorm:"column:model_generated;default:false"`

	Status SuggestionStatus `gorm:"column:status;type:varchar(20);not null;default:'draft';index"`

	ReviewedBy *uuid.UUID `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Suggestion) TableName() string {
	return "clinical.prescription_suggestions"
}

func (s *Suggestion) MarkReviewed(by uuid.UUID, accepted bool) {
	now := time.Now()
	s.ReviewedBy = &by
	s.ReviewedAt = &now
	if accepted {
		s.Status = StatusReviewed
	} else {
		s.Status = StatusRejected
	}
}
