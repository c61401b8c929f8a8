package prescription

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Suggestion) error

	// GetByID returns ErrSuggestionNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Suggestion, error)

	Update(ctx context.Context, s *Suggestion) error

	// ListByReport returns suggestions for a report, newest first.
	ListByReport(ctx context.Context, reportID uuid.UUID) ([]*Suggestion, error)
}
