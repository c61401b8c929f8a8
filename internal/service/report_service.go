package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/extract"
	"github.com/medassist/medassist/internal/llm"
	"github.com/medassist/medassist/internal/textextract"
	"github.com/medassist/medassist/pkg/metrics"
)

// ReportService owns the report lifecycle: upload, extraction, lookup,
// summaries, analysis, and the two maintenance sweeps.
type ReportService struct {
	repo      report.Repository
	extractor *extract.Extractor
	texts     textextract.Extractor
	gateway   llm.Gateway // nil when no model is configured
	auditSvc  *AuditService
	collector *metrics.Collector
	log       *zap.Logger
}

func NewReportService(
	repo report.Repository,
	extractor *extract.Extractor,
	texts textextract.Extractor,
	gateway llm.Gateway,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *ReportService {
	return &ReportService{
		repo:      repo,
		extractor: extractor,
		texts:     texts,
		gateway:   gateway,
		auditSvc:  auditSvc,
		collector: collector,
		log:       log,
	}
}

// UploadOutcome describes one file of an upload batch. Failures are
// reported per file so one bad PDF does not sink the batch.
type UploadOutcome struct {
	FileName    string         `json:"file_name"`
	ReportID    *uuid.UUID     `json:"report_id,omitempty"`
	PatientName string         `json:"patient_name,omitempty"`
	Source      extract.Source `json:"extraction_source,omitempty"`
	Duplicate   bool           `json:"duplicate,omitempty"`
	Error       string         `json:"error,omitempty"`
}

func (s *ReportService) UploadReport(ctx context.Context, r io.Reader, fileName string, uploadedBy uuid.UUID, callerRole, ip string) (UploadOutcome, error) {
	outcome := UploadOutcome{FileName: fileName}

	data, err := io.ReadAll(r)
	if err != nil {
		return outcome, fmt.Errorf("reading upload %s: %w", fileName, err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	exists, err := s.repo.ExistsByFileHash(ctx, hash)
	if err != nil {
		return outcome, fmt.Errorf("checking duplicate: %w", err)
	}
	if exists {
		outcome.Duplicate = true
		return outcome, report.ErrDuplicateReport
	}

	text, err := s.texts.ExtractText(bytes.NewReader(data), fileName)
	if err != nil {
		return outcome, err
	}

	res, err := s.extractor.Extract(ctx, text)
	if err != nil {
		return outcome, err
	}

	rec := &report.Report{
		FileName:    fileName,
		FileHash:    hash,
		RawText:     text,
		PatientName: report.StripTitle(res.Panel.PatientInfo.Name),
		Panel:       res.Panel,
		UploadedBy:  uploadedBy,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return outcome, fmt.Errorf("persisting report: %w", err)
	}

	s.collector.ReportsUploadedTotal.Inc()
	s.collector.ExtractionsTotal.WithLabelValues(string(res.Source)).Inc()
	s.collector.ExtractionDuration.Observe(res.Duration.Seconds())

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       uploadedBy,
		UserRole:     callerRole,
		Action:       "upload",
		ResourceType: "report",
		ResourceID:   rec.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("report uploaded",
		zap.String("report_id", rec.ID.String()),
		zap.String("file", fileName),
		zap.String("patient", rec.PatientName),
		zap.String("source", string(res.Source)),
	)

	outcome.ReportID = &rec.ID
	outcome.PatientName = rec.PatientName
	outcome.Source = res.Source
	return outcome, nil
}

func (s *ReportService) GetReport(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPatientReports returns every report whose patient name matches the
// given name, newest first.
func (s *ReportService) GetPatientReports(ctx context.Context, patientName string) ([]*report.Report, error) {
	patientName = strings.TrimSpace(patientName)
	if patientName == "" {
		return nil, &ValidationError{Fields: []string{"patient_name is required"}}
	}
	return s.repo.FindByPatientName(ctx, patientName)
}

func (s *ReportService) ListReports(ctx context.Context, q *report.ListReportsQuery) (*report.PagedReports, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}

func (s *ReportService) CountReports(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

func (s *ReportService) PatientNames(ctx context.Context) ([]string, error) {
	return s.repo.PatientNames(ctx)
}

// FindPatientsByLabValue returns the names of patients whose latest
// report contains a field with the given test name and status.
func (s *ReportService) FindPatientsByLabValue(ctx context.Context, test string, status report.Status) ([]string, error) {
	if !status.IsValid() {
		return nil, &ValidationError{Fields: []string{"status is invalid"}}
	}

	paged, err := s.repo.List(ctx, &report.ListReportsQuery{Page: 1, PageSize: 100})
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	names := []string{}
	for _, rec := range paged.Reports {
		if rec.Panel == nil || !rec.HasKnownPatient() || seen[rec.PatientName] {
			continue
		}
		if panelHasField(rec.Panel, test, status) {
			seen[rec.PatientName] = true
			names = append(names, rec.PatientName)
		}
	}
	return names, nil
}

func panelHasField(p *report.Panel, test string, status report.Status) bool {
	match := func(fields []report.Field) bool {
		for _, f := range fields {
			if strings.EqualFold(f.Test, test) && f.Status == status {
				return true
			}
		}
		return false
	}
	if tlc := p.CBCHemogram.WBCDifferential.TLC; tlc != nil &&
		strings.EqualFold(tlc.Test, test) && tlc.Status == status {
		return true
	}
	return match(p.CBCHemogram.RBCMetrics) ||
		match(p.CBCHemogram.Platelets) ||
		match(p.CBCHemogram.ESR) ||
		match(p.LiverFunction) ||
		match(p.InflammationMarker)
}

// SummarizeReport produces a short narrative of a patient's latest
// report. With a model gateway the narrative is generated; without one
// it is assembled from the synthesized highlights.
func (s *ReportService) SummarizeReport(ctx context.Context, patientName string) (string, error) {
	rec, err := s.latestReport(ctx, patientName)
	if err != nil {
		return "", err
	}

	if s.gateway != nil {
		summary, err := s.gateway.Complete(ctx,
			"You are a medical assistant. Summarize the following lab report for a doctor in at most five sentences. Mention only findings present in the report.",
			rec.RawText)
		if err == nil {
			return summary, nil
		}
		s.log.Warn("model summary unavailable, using local summary", zap.Error(err))
	}

	return s.localSummary(rec), nil
}

func (s *ReportService) localSummary(rec *report.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Report %s", rec.FileName)
	if rec.HasKnownPatient() {
		fmt.Fprintf(&sb, " for %s", rec.PatientName)
	}
	sb.WriteString(".")
	if rec.Panel != nil {
		for _, h := range rec.Panel.KeyHighlights {
			sb.WriteString(" ")
			sb.WriteString(h)
		}
	}
	return sb.String()
}

// AnalyzeReport returns the structured panel of a patient's latest
// report together with its highlights.
func (s *ReportService) AnalyzeReport(ctx context.Context, patientName string) (*report.Panel, error) {
	rec, err := s.latestReport(ctx, patientName)
	if err != nil {
		return nil, err
	}
	if rec.Panel == nil {
		return nil, report.ErrReportNotFound
	}
	return rec.Panel, nil
}

func (s *ReportService) latestReport(ctx context.Context, patientName string) (*report.Report, error) {
	recs, err := s.GetPatientReports(ctx, patientName)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, report.ErrReportNotFound
	}
	return recs[0], nil
}

// CleanupUnknown removes reports whose extraction recovered no patient
// name. Admin-only; the handler enforces the role.
func (s *ReportService) CleanupUnknown(ctx context.Context, callerID uuid.UUID, callerRole, ip string) (int64, error) {
	removed, err := s.repo.DeleteUnknownPatients(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "cleanup",
		ResourceType: "report",
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"removed":%d}`, removed),
	})

	s.log.Info("unknown-patient reports removed", zap.Int64("count", removed))
	return removed, nil
}

// RemoveDuplicates deletes reports sharing a file hash, keeping the
// earliest upload of each.
func (s *ReportService) RemoveDuplicates(ctx context.Context, callerID uuid.UUID, callerRole, ip string) (int64, error) {
	removed, err := s.repo.DeleteDuplicates(ctx)
	if err != nil {
		return 0, fmt.Errorf("removing duplicates: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       callerID,
		UserRole:     callerRole,
		Action:       "cleanup",
		ResourceType: "report",
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"duplicates_removed":%d}`, removed),
	})

	s.log.Info("duplicate reports removed", zap.Int64("count", removed))
	return removed, nil
}
