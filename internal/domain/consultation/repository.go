package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Consultation) error

	// GetByID returns ErrConsultationNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Consultation, error)

	Update(ctx context.Context, c *Consultation) error

	SoftDelete(ctx context.Context, id uuid.UUID) error

	List(ctx context.Context, q *ListConsultationsQuery) (*PagedConsultations, error)

	// HasOverlap checks whether the doctor already has an active
	// consultation overlapping [start, end).
	HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)
}
