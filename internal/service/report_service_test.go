package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/extract"
	"github.com/medassist/medassist/internal/textextract"
)

const uploadText = `
Name: Mr. SURYANSH SINGH   Age: 34 Years   Gender: Male
Lab No: MB1092   Sample Collected: 12/03/2025

COMPLETE BLOOD COUNT
Hemoglobin: 9.50 g/dL (13 - 17)
TLC: 12,500 /cmm (4,400 - 11,000)
Platelet Count: 2.1 lakh/mm³ (1.5 - 4.5)

MALARIA
No malarial parasite seen
`

func newReportFixture(t *testing.T) (*ReportService, *memReportRepo) {
	t.Helper()
	log := zap.NewNop()

	repo := &memReportRepo{}
	auditSvc := NewAuditService(&memAuditRepo{}, log)
	t.Cleanup(auditSvc.Shutdown)

	extractor := extract.NewExtractor(extract.NewPatternExtractor(extract.DefaultKnowledgeBase(), 150), nil, log)
	svc := NewReportService(repo, extractor, textextract.New(log), nil, auditSvc, testCollector, log)
	return svc, repo
}

func TestUploadReportExtractsAndPersists(t *testing.T) {
	svc, repo := newReportFixture(t)

	outcome, err := svc.UploadReport(context.Background(), strings.NewReader(uploadText), "singh.txt", uuid.New(), "assistant", "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "Suryansh Singh", outcome.PatientName)
	assert.Equal(t, extract.SourcePattern, outcome.Source)
	require.NotNil(t, outcome.ReportID)
	assert.False(t, outcome.Duplicate)

	require.Len(t, repo.reports, 1)
	rec := repo.reports[0]
	assert.Equal(t, "singh.txt", rec.FileName)
	assert.Equal(t, uploadText, rec.RawText)
	require.NotNil(t, rec.Panel)
	assert.NotEmpty(t, rec.Panel.KeyHighlights)
	assert.Len(t, rec.FileHash, 64)
}

func TestUploadReportDuplicate(t *testing.T) {
	svc, repo := newReportFixture(t)

	_, err := svc.UploadReport(context.Background(), strings.NewReader(uploadText), "singh.txt", uuid.New(), "assistant", "127.0.0.1")
	require.NoError(t, err)

	outcome, err := svc.UploadReport(context.Background(), strings.NewReader(uploadText), "singh-copy.txt", uuid.New(), "assistant", "127.0.0.1")
	require.ErrorIs(t, err, report.ErrDuplicateReport)
	assert.True(t, outcome.Duplicate)
	assert.Len(t, repo.reports, 1)
}

func TestUploadReportUnsupportedFormat(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, err := svc.UploadReport(context.Background(), strings.NewReader("irrelevant"), "notes.docx", uuid.New(), "assistant", "127.0.0.1")
	require.ErrorIs(t, err, textextract.ErrUnsupportedFormat)
}

func TestSummarizeReportWithoutGateway(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, err := svc.UploadReport(context.Background(), strings.NewReader(uploadText), "singh.txt", uuid.New(), "assistant", "127.0.0.1")
	require.NoError(t, err)

	summary, err := svc.SummarizeReport(context.Background(), "Suryansh Singh")
	require.NoError(t, err)
	assert.Contains(t, summary, "singh.txt")
	assert.Contains(t, summary, "Suryansh Singh")
	assert.Contains(t, summary, "TLC")
}

func TestSummarizeReportUnknownPatient(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, err := svc.SummarizeReport(context.Background(), "Nobody Here")
	require.ErrorIs(t, err, report.ErrReportNotFound)
}

func TestFindPatientsByLabValue(t *testing.T) {
	svc, _ := newReportFixture(t)

	_, err := svc.UploadReport(context.Background(), strings.NewReader(uploadText), "singh.txt", uuid.New(), "assistant", "127.0.0.1")
	require.NoError(t, err)

	names, err := svc.FindPatientsByLabValue(context.Background(), "TLC", report.StatusHigh)
	require.NoError(t, err)
	assert.Equal(t, []string{"Suryansh Singh"}, names)

	names, err = svc.FindPatientsByLabValue(context.Background(), "Hemoglobin", report.StatusHigh)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = svc.FindPatientsByLabValue(context.Background(), "TLC", report.Status("bogus"))
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestCleanupUnknownLeavesNamedReports(t *testing.T) {
	svc, repo := newReportFixture(t)
	repo.reports = []*report.Report{
		{ID: uuid.New(), FileHash: "a", PatientName: "Ravi Kumar"},
		{ID: uuid.New(), FileHash: "b", PatientName: ""},
		{ID: uuid.New(), FileHash: "c", PatientName: "Unknown"},
	}

	removed, err := svc.CleanupUnknown(context.Background(), uuid.New(), "admin", "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	require.Len(t, repo.reports, 1)
	assert.Equal(t, "Ravi Kumar", repo.reports[0].PatientName)
}
