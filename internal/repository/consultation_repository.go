package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medassist/medassist/internal/domain/consultation"
)

type ConsultationRepository struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) *ConsultationRepository {
	return &ConsultationRepository{db: db}
}

var _ consultation.Repository = (*ConsultationRepository)(nil)

func (r *ConsultationRepository) Create(ctx context.Context, c *consultation.Consultation) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	var c consultation.Consultation
	err := r.db.WithContext(ctx).Where("deleted_at IS NULL").First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, consultation.ErrConsultationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ConsultationRepository) Update(ctx context.Context, c *consultation.Consultation) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *ConsultationRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&consultation.Consultation{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", gorm.Expr("NOW()"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return consultation.ErrConsultationNotFound
	}
	return nil
}

func (r *ConsultationRepository) List(ctx context.Context, q *consultation.ListConsultationsQuery) (*consultation.PagedConsultations, error) {
	query := r.db.WithContext(ctx).Model(&consultation.Consultation{}).Where("deleted_at IS NULL")

	if q.PatientID != nil {
		query = query.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		query = query.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		query = query.Where("status = ?", *q.Status)
	}
	if q.DateFrom != nil {
		query = query.Where("scheduled_at >= ?", *q.DateFrom)
	}
	if q.DateTo != nil {
		query = query.Where("scheduled_at < ?", *q.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var cs []*consultation.Consultation
	err := query.
		Order("scheduled_at ASC").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&cs).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(q.PageSize) - 1) / int64(q.PageSize))
	return &consultation.PagedConsultations{
		Consultations: cs,
		TotalCount:    total,
		Page:          q.Page,
		PageSize:      q.PageSize,
		TotalPages:    totalPages,
	}, nil
}

// HasOverlap treats cancelled and no-show consultations as freed slots.
func (r *ConsultationRepository) HasOverlap(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&consultation.Consultation{}).
		Where("deleted_at IS NULL").
		Where("doctor_id = ?", doctorID).
		Where("status NOT IN ?", []consultation.ConsultationStatus{
			consultation.StatusCancelled,
			consultation.StatusNoShow,
		}).
		Where("scheduled_at < ? AND (scheduled_at + (duration_mins || ' minutes')::interval) > ?", end, start)

	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	var n int64
	if err := query.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
