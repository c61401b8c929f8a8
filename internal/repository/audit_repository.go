package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/service"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

var _ service.AuditRepository = (*AuditRepository)(nil)

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
