package patient

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return true
	}
	return false
}

// Status represents the lifecycle state of a patient record.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type ContactInfo struct {
	Phone   string `gorm:"column:phone;type:varchar(20)"`
	Email   string `gorm:"column:email;type:varchar(255)"`
	Address string `gorm:"column:address;type:text"`
	City    string `gorm:"column:city;type:varchar(100)"`
}

type Patient struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"` // Soft Delete

	FirstName   string    `gorm:"column:first_name;type:varchar(100);not null"`
	LastName    string    `gorm:"column:last_name;type:varchar(100)"`
	DateOfBirth time.Time `gorm:"column:date_of_birth"`
	Gender      Gender    `gorm:"column:gender;type:varchar(20);not null;default:'unknown'"`

	ContactInfo

	Allergies         []string `gorm:"column:allergies;serializer:json"`
	ChronicConditions []string `gorm:"column:chronic_conditions;serializer:json"`

	Status           Status     `gorm:"column:status;type:varchar(20);default:'active';index"`
	AssignedDoctorID *uuid.UUID `gorm:"column:assigned_doctor_id;type:uuid;index"`
	Notes            string     `gorm:"column:notes;type:text"` // PHI

	// Audit: who registered this patient and when
	CreatedBy uuid.UUID `gorm:"column:created_by;type:uuid;not null"`
}

func (Patient) TableName() string {
	return "clinical.patients"
}

func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Age() int {
	if p.DateOfBirth.IsZero() {
		return 0
	}
	now := time.Now()
	years := now.Year() - p.DateOfBirth.Year()
	if now.Month() < p.DateOfBirth.Month() ||
		(now.Month() == p.DateOfBirth.Month() && now.Day() < p.DateOfBirth.Day()) {
		years--
	}
	return years
}

func (p *Patient) IsActive() bool {
	return p.Status == StatusActive && p.DeletedAt == nil
}

type CreatePatientCommand struct {
	FirstName         string
	LastName          string
	DateOfBirth       time.Time
	Gender            Gender
	Phone             string
	Email             string
	Address           string
	City              string
	Allergies         []string
	ChronicConditions []string
	AssignedDoctorID  *uuid.UUID
	Notes             string
	CreatedBy         uuid.UUID
}

type UpdatePatientCommand struct {
	FirstName         *string
	LastName          *string
	Gender            *Gender
	Phone             *string
	Email             *string
	Address           *string
	City              *string
	Allergies         *[]string
	ChronicConditions *[]string
	AssignedDoctorID  *uuid.UUID
	Notes             *string
	UpdatedBy         uuid.UUID
}

// ListPatientsQuery defines filtering and pagination for patient list queries.
type ListPatientsQuery struct {
	Search           string // Full-text search on name
	Status           *Status
	AssignedDoctorID *uuid.UUID
	Page             int
	PageSize         int
}

type PagedPatients struct {
	Patients   []*Patient
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
