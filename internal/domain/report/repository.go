package report

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create persists a new report row.
	Create(ctx context.Context, r *Report) error

	// GetByID retrieves a report by primary key. Returns ErrReportNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)

	// FindByPatientName does a case-insensitive substring match on the
	// denormalized patient name, newest first.
	FindByPatientName(ctx context.Context, name string) ([]*Report, error)

	// List returns a paginated list of reports, newest first.
	List(ctx context.Context, q *ListReportsQuery) (*PagedReports, error)

	// Count returns the number of non-deleted reports.
	Count(ctx context.Context) (int64, error)

	// PatientNames returns the distinct known patient names across all reports.
	PatientNames(ctx context.Context) ([]string, error)

	// ExistsByFileHash checks whether an identical file was already uploaded.
	ExistsByFileHash(ctx context.Context, hash string) (bool, error)

	// DeleteUnknownPatients soft-deletes reports whose extraction produced
	// no patient name. Returns the number of rows removed.
	DeleteUnknownPatients(ctx context.Context) (int64, error)

	// DeleteDuplicates soft-deletes reports sharing a file hash, keeping
	// the earliest upload of each. Returns the number of rows removed.
	DeleteDuplicates(ctx context.Context) (int64, error)
}
