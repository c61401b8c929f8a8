package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/prescription"
	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/llm"
	"github.com/medassist/medassist/pkg/metrics"
)

const suggestionDisclaimer = "Advisory only. Review by a licensed doctor is required before prescribing."

// PrescriptionService generates and reviews advisory prescription
// suggestions for reports.
type PrescriptionService struct {
	repo       prescription.Repository
	reportRepo report.Repository
	gateway    llm.Gateway // nil when no model is configured
	auditSvc   *AuditService
	collector  *metrics.Collector
	log        *zap.Logger
}

func NewPrescriptionService(
	repo prescription.Repository,
	reportRepo report.Repository,
	gateway llm.Gateway,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		repo:       repo,
		reportRepo: reportRepo,
		gateway:    gateway,
		auditSvc:   auditSvc,
		collector:  collector,
		log:        log,
	}
}

// SuggestForPatient drafts a suggestion from the patient's latest
// report. With a gateway the draft is model-written; otherwise it is a
// template over the report highlights.
func (s *PrescriptionService) SuggestForPatient(ctx context.Context, patientName string, callerID uuid.UUID, callerRole, ip string) (*prescription.Suggestion, error) {
	patientName = strings.TrimSpace(patientName)
	if patientName == "" {
		return nil, &ValidationError{Fields: []string{"patient_name is required"}}
	}

	recs, err := s.reportRepo.FindByPatientName(ctx, patientName)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, report.ErrReportNotFound
	}
	rec := recs[0]

	content, modelGenerated := s.draftContent(ctx, rec)

	sug := &prescription.Suggestion{
		ReportID:       rec.ID,
		PatientName:    rec.PatientName,
		Content:        content,
		ModelGenerated: modelGenerated,
		Status:         prescription.StatusDraft,
		CreatedBy:      callerID,
	}
	if err := s.repo.Create(ctx, sug); err != nil {
		return nil, fmt.Errorf("persisting suggestion: %w", err)
	}

	s.collector.SuggestionsTotal.Inc()

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "create",
		ResourceType: "prescription_suggestion",
		ResourceID:   sug.ID.String(),
		IPAddress:    ip,
	})

	return sug, nil
}

func (s *PrescriptionService) draftContent(ctx context.Context, rec *report.Report) (string, bool) {
	if s.gateway != nil {
		out, err := s.gateway.Complete(ctx,
			"You are a medical assistant drafting an advisory prescription suggestion for a doctor to review. Base it strictly on the lab findings given. List suggested medications with dosage ranges and follow-up tests. End with a note that a doctor must review before prescribing.",
			rec.RawText)
		if err == nil {
			return out, true
		}
		s.log.Warn("model suggestion unavailable, using local template", zap.Error(err))
	}

	var sb strings.Builder
	sb.WriteString("Findings for review:\n")
	if rec.Panel != nil {
		for _, h := range rec.Panel.KeyHighlights {
			sb.WriteString("- ")
			sb.WriteString(h)
			sb.WriteString("\n")
		}
	}
	sb.WriteString(suggestionDisclaimer)
	return sb.String(), false
}

// Review records a doctor's verdict on a suggestion.
func (s *PrescriptionService) Review(ctx context.Context, id uuid.UUID, accepted bool, callerID uuid.UUID, callerRole, ip string) (*prescription.Suggestion, error) {
	if callerRole != "doctor" && callerRole != "admin" {
		return nil, ErrForbidden
	}

	sug, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sug.MarkReviewed(callerID, accepted)
	if err := s.repo.Update(ctx, sug); err != nil {
		return nil, fmt.Errorf("updating suggestion: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "update",
		ResourceType: "prescription_suggestion",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return sug, nil
}

func (s *PrescriptionService) ListForReport(ctx context.Context, reportID uuid.UUID) ([]*prescription.Suggestion, error) {
	return s.repo.ListByReport(ctx, reportID)
}
