package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medassist/medassist/internal/domain/report"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

var _ report.Repository = (*ReportRepository)(nil)

func (r *ReportRepository) Create(ctx context.Context, rec *report.Report) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *ReportRepository) GetByID(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	var rec report.Report
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, report.ErrReportNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindByPatientName matches case-insensitively on the denormalized
// patient name, with and without a title prefix, newest upload first.
func (r *ReportRepository) FindByPatientName(ctx context.Context, name string) ([]*report.Report, error) {
	var recs []*report.Report
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL").
		Where("patient_name ILIKE ? OR patient_name ILIKE ?", "%"+name+"%", name).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *ReportRepository) List(ctx context.Context, q *report.ListReportsQuery) (*report.PagedReports, error) {
	query := r.db.WithContext(ctx).Model(&report.Report{}).Where("deleted_at IS NULL")
	if q.PatientName != "" {
		query = query.Where("patient_name ILIKE ?", "%"+q.PatientName+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var recs []*report.Report
	err := query.
		Order("created_at DESC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &report.PagedReports{
		Reports:    recs,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (r *ReportRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&report.Report{}).
		Where("deleted_at IS NULL").
		Count(&n).Error
	return n, err
}

// PatientNames returns the distinct known patient names, alphabetical.
func (r *ReportRepository) PatientNames(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&report.Report{}).
		Where("deleted_at IS NULL AND patient_name <> '' AND patient_name <> 'Unknown'").
		Distinct("patient_name").
		Order("patient_name").
		Pluck("patient_name", &names).Error
	return names, err
}

func (r *ReportRepository) ExistsByFileHash(ctx context.Context, hash string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&report.Report{}).
		Where("deleted_at IS NULL AND file_hash = ?", hash).
		Count(&n).Error
	return n > 0, err
}

// DeleteUnknownPatients soft-deletes reports whose extraction produced
// no usable patient name.
func (r *ReportRepository) DeleteUnknownPatients(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&report.Report{}).
		Where("deleted_at IS NULL AND (patient_name = '' OR patient_name = 'Unknown')").
		Update("deleted_at", gorm.Expr("NOW()"))
	return res.RowsAffected, res.Error
}

// DeleteDuplicates soft-deletes reports that share a file hash with an
// earlier upload, keeping the earliest of each group.
func (r *ReportRepository) DeleteDuplicates(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE clinical.medical_reports SET deleted_at = NOW()
		WHERE deleted_at IS NULL AND id NOT IN (
			SELECT DISTINCT ON (file_hash) id
			FROM clinical.medical_reports
			WHERE deleted_at IS NULL
			ORDER BY file_hash, created_at ASC
		)`)
	return res.RowsAffected, res.Error
}
