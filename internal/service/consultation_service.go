package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/consultation"
	"github.com/medassist/medassist/internal/domain/patient"
	"github.com/medassist/medassist/internal/domain/report"
)

type ConsultationService struct {
	repo        consultation.Repository
	patientRepo patient.Repository
	reportRepo  report.Repository
	auditSvc    *AuditService
	log         *zap.Logger
}

func NewConsultationService(
	repo consultation.Repository,
	patientRepo patient.Repository,
	reportRepo report.Repository,
	auditSvc *AuditService,
	log *zap.Logger,
) *ConsultationService {
	return &ConsultationService{
		repo:        repo,
		patientRepo: patientRepo,
		reportRepo:  reportRepo,
		auditSvc:    auditSvc,
		log:         log,
	}
}

func (s *ConsultationService) Schedule(ctx context.Context, cmd *consultation.CreateConsultationCommand, callerID uuid.UUID, callerRole, ip string) (*consultation.Consultation, error) {
	if cmd.ScheduledAt.Before(time.Now()) {
		return nil, consultation.ErrScheduledInPast
	}
	if cmd.DurationMins < 5 || cmd.DurationMins > 240 {
		return nil, consultation.ErrInvalidDuration
	}
	if !cmd.Type.IsValid() {
		return nil, consultation.ErrInvalidConsultationType
	}

	p, err := s.patientRepo.GetByID(ctx, cmd.PatientID)
	if err != nil {
		return nil, fmt.Errorf("verifying patient: %w", err)
	}
	if !p.IsActive() {
		return nil, fmt.Errorf("patient is not active")
	}

	// Report-review visits must point at an existing report
	if cmd.Type == consultation.TypeReportReview {
		if cmd.ReportID == nil {
			return nil, &ValidationError{Fields: []string{"report_id is required for report_review consultations"}}
		}
		if _, err := s.reportRepo.GetByID(ctx, *cmd.ReportID); err != nil {
			return nil, fmt.Errorf("verifying report: %w", err)
		}
	}

	endsAt := cmd.ScheduledAt.Add(time.Duration(cmd.DurationMins) * time.Minute)
	overlap, err := s.repo.HasOverlap(ctx, cmd.DoctorID, cmd.ScheduledAt, endsAt, nil)
	if err != nil {
		return nil, fmt.Errorf("checking overlap: %w", err)
	}
	if overlap {
		return nil, consultation.ErrConsultationConflict
	}

	c := &consultation.Consultation{
		PatientID:      cmd.PatientID,
		DoctorID:       cmd.DoctorID,
		ScheduledAt:    cmd.ScheduledAt,
		DurationMins:   cmd.DurationMins,
		Type:           cmd.Type,
		Status:         consultation.StatusScheduled,
		ChiefComplaint: cmd.ChiefComplaint,
		ReportID:       cmd.ReportID,
		CreatedBy:      cmd.CreatedBy,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.log.Error("failed to create consultation", zap.Error(err))
		return nil, fmt.Errorf("creating consultation: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "consultation",
		ResourceID:   c.ID.String(),
		IPAddress:    ip,
	})

	return c, nil
}

func (s *ConsultationService) Get(ctx context.Context, id uuid.UUID) (*consultation.Consultation, error) {
	return s.repo.GetByID(ctx, id)
}

// Transition moves a consultation along its status machine.
func (s *ConsultationService) Transition(ctx context.Context, id uuid.UUID, to consultation.ConsultationStatus, reason string, callerID uuid.UUID, callerRole, ip string) (*consultation.Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.CanTransitionTo(to) {
		return nil, consultation.ErrInvalidStatusTransition
	}

	now := time.Now()
	c.Status = to
	switch to {
	case consultation.StatusCancelled:
		c.CancelledAt = &now
		c.CancellationReason = reason
	case consultation.StatusCompleted:
		c.CompletedAt = &now
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("updating consultation: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "consultation",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"status":%q}`, to),
	})

	return c, nil
}

func (s *ConsultationService) List(ctx context.Context, q *consultation.ListConsultationsQuery) (*consultation.PagedConsultations, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}
