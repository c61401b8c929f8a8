package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medassist/medassist/internal/domain/prescription"
)

type PrescriptionRepository struct {
	db *gorm.DB
}

func NewPrescriptionRepository(db *gorm.DB) *PrescriptionRepository {
	return &PrescriptionRepository{db: db}
}

var _ prescription.Repository = (*PrescriptionRepository)(nil)

func (r *PrescriptionRepository) Create(ctx context.Context, s *prescription.Suggestion) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *PrescriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*prescription.Suggestion, error) {
	var s prescription.Suggestion
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prescription.ErrSuggestionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PrescriptionRepository) Update(ctx context.Context, s *prescription.Suggestion) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *PrescriptionRepository) ListByReport(ctx context.Context, reportID uuid.UUID) ([]*prescription.Suggestion, error) {
	var ss []*prescription.Suggestion
	err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND report_id = ?", reportID).
		Order("created_at DESC").
		Find(&ss).Error
	if err != nil {
		return nil, err
	}
	return ss, nil
}
