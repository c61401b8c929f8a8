package consultation

import (
	"time"

	"github.com/google/uuid"
)

type ConsultationType string

const (
	TypeGeneral      ConsultationType = "general"
	TypeFollowUp     ConsultationType = "follow_up"
	TypeReportReview ConsultationType = "report_review"
	TypeEmergency    ConsultationType = "emergency"
)

func (t ConsultationType) IsValid() bool {
	switch t {
	case TypeGeneral, TypeFollowUp, TypeReportReview, TypeEmergency:
		return true
	}
	return false
}

// State transitions:
//
//	scheduled → confirmed → in_progress → completed
//	scheduled → cancelled
//	confirmed → cancelled
//	confirmed → no_show
type ConsultationStatus string

const (
	StatusScheduled  ConsultationStatus = "scheduled"
	StatusConfirmed  ConsultationStatus = "confirmed"
	StatusInProgress ConsultationStatus = "in_progress"
	StatusCompleted  ConsultationStatus = "completed"
	StatusCancelled  ConsultationStatus = "cancelled"
	StatusNoShow     ConsultationStatus = "no_show"
)

type Consultation struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	ScheduledAt  time.Time          `gorm:"column:scheduled_at;not null;index"`
	DurationMins int                `gorm:"column:duration_mins;not null;default:30"`
	Type         ConsultationType   `gorm:"column:type;type:varchar(50);not null;index"`
	Status       ConsultationStatus `gorm:"column:status;type:varchar(30);not null;default:'scheduled';index"`

	ChiefComplaint string `gorm:"column:chief_complaint;type:text"`
	Notes          string `gorm:"column:notes;type:text"`

	// When the visit reviews an uploaded lab report
	ReportID *uuid.UUID `gorm:"column:report_id;type:uuid;index"`

	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	CancellationReason string     `gorm:"column:cancellation_reason;type:text"`

	CompletedAt *time.Time `gorm:"column:completed_at"`

	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Consultation) TableName() string {
	return "clinical.consultations"
}

func (c *Consultation) EndsAt() time.Time {
	return c.ScheduledAt.Add(time.Duration(c.DurationMins) * time.Minute)
}

func (c *Consultation) CanTransitionTo(newStatus ConsultationStatus) bool {
	allowed := map[ConsultationStatus][]ConsultationStatus{
		StatusScheduled:  {StatusConfirmed, StatusCancelled},
		StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
		StatusInProgress: {StatusCompleted},
	}
	for _, s := range allowed[c.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

type CreateConsultationCommand struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	ScheduledAt    time.Time
	DurationMins   int
	Type           ConsultationType
	ChiefComplaint string
	ReportID       *uuid.UUID
	CreatedBy      uuid.UUID
}

type ListConsultationsQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *ConsultationStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

type PagedConsultations struct {
	Consultations []*Consultation
	TotalCount    int64
	Page          int
	PageSize      int
	TotalPages    int
}
