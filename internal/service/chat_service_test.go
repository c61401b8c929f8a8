package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain"
	"github.com/medassist/medassist/internal/domain/patient"
	"github.com/medassist/medassist/internal/domain/prescription"
	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/domain/task"
	"github.com/medassist/medassist/internal/extract"
	"github.com/medassist/medassist/internal/intent"
	"github.com/medassist/medassist/internal/textextract"
	"github.com/medassist/medassist/pkg/metrics"
)

// Registered once; prometheus panics on duplicate collector names.
var testCollector = metrics.NewCollector("service_test")

type memReportRepo struct {
	mu      sync.Mutex
	reports []*report.Report
}

func (m *memReportRepo) Create(_ context.Context, r *report.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.reports = append(m.reports, r)
	return nil
}

func (m *memReportRepo) GetByID(_ context.Context, id uuid.UUID) (*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, report.ErrReportNotFound
}

func (m *memReportRepo) FindByPatientName(_ context.Context, name string) ([]*report.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*report.Report
	for _, r := range m.reports {
		if strings.Contains(strings.ToLower(r.PatientName), strings.ToLower(name)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReportRepo) List(_ context.Context, q *report.ListReportsQuery) (*report.PagedReports, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &report.PagedReports{
		Reports:    m.reports,
		TotalCount: int64(len(m.reports)),
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: 1,
	}, nil
}

func (m *memReportRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.reports)), nil
}

func (m *memReportRepo) PatientNames(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var names []string
	for _, r := range m.reports {
		if r.HasKnownPatient() && !seen[r.PatientName] {
			seen[r.PatientName] = true
			names = append(names, r.PatientName)
		}
	}
	return names, nil
}

func (m *memReportRepo) ExistsByFileHash(_ context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reports {
		if r.FileHash == hash {
			return true, nil
		}
	}
	return false, nil
}

func (m *memReportRepo) DeleteUnknownPatients(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*report.Report
	var removed int64
	for _, r := range m.reports {
		if r.HasKnownPatient() {
			kept = append(kept, r)
		} else {
			removed++
		}
	}
	m.reports = kept
	return removed, nil
}

func (m *memReportRepo) DeleteDuplicates(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var kept []*report.Report
	var removed int64
	for _, r := range m.reports {
		if seen[r.FileHash] {
			removed++
			continue
		}
		seen[r.FileHash] = true
		kept = append(kept, r)
	}
	m.reports = kept
	return removed, nil
}

type memPatientRepo struct {
	patients []*patient.Patient
}

func (m *memPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.patients = append(m.patients, p)
	return nil
}

func (m *memPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	for _, p := range m.patients {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, patient.ErrPatientNotFound
}

func (m *memPatientRepo) FindByName(_ context.Context, name string) ([]*patient.Patient, error) {
	var out []*patient.Patient
	for _, p := range m.patients {
		if strings.Contains(strings.ToLower(p.FullName()), strings.ToLower(name)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPatientRepo) Update(_ context.Context, id uuid.UUID, _ *patient.UpdatePatientCommand) (*patient.Patient, error) {
	return m.GetByID(context.Background(), id)
}

func (m *memPatientRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	_, err := m.GetByID(context.Background(), id)
	return err
}

func (m *memPatientRepo) List(_ context.Context, q *patient.ListPatientsQuery) (*patient.PagedPatients, error) {
	return &patient.PagedPatients{
		Patients:   m.patients,
		TotalCount: int64(len(m.patients)),
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: 1,
	}, nil
}

type memTaskRepo struct {
	tasks []*task.Task
}

func (m *memTaskRepo) Create(_ context.Context, t *task.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.tasks = append(m.tasks, t)
	return nil
}

func (m *memTaskRepo) GetByID(_ context.Context, id uuid.UUID) (*task.Task, error) {
	for _, t := range m.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, task.ErrTaskNotFound
}

func (m *memTaskRepo) Update(_ context.Context, t *task.Task) error {
	for i, existing := range m.tasks {
		if existing.ID == t.ID {
			m.tasks[i] = t
			return nil
		}
	}
	return task.ErrTaskNotFound
}

func (m *memTaskRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	for i, t := range m.tasks {
		if t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return task.ErrTaskNotFound
}

func (m *memTaskRepo) List(_ context.Context, q *task.ListTasksQuery) ([]*task.Task, error) {
	var out []*task.Task
	for _, t := range m.tasks {
		if q.Status != nil && t.Status != *q.Status {
			continue
		}
		if q.Search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(q.Search)) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

type memPrescriptionRepo struct {
	suggestions []*prescription.Suggestion
}

func (m *memPrescriptionRepo) Create(_ context.Context, s *prescription.Suggestion) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.suggestions = append(m.suggestions, s)
	return nil
}

func (m *memPrescriptionRepo) GetByID(_ context.Context, id uuid.UUID) (*prescription.Suggestion, error) {
	for _, s := range m.suggestions {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, prescription.ErrSuggestionNotFound
}

func (m *memPrescriptionRepo) Update(_ context.Context, s *prescription.Suggestion) error {
	for i, existing := range m.suggestions {
		if existing.ID == s.ID {
			m.suggestions[i] = s
			return nil
		}
	}
	return prescription.ErrSuggestionNotFound
}

func (m *memPrescriptionRepo) ListByReport(_ context.Context, reportID uuid.UUID) ([]*prescription.Suggestion, error) {
	var out []*prescription.Suggestion
	for _, s := range m.suggestions {
		if s.ReportID == reportID {
			out = append(out, s)
		}
	}
	return out, nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*domain.AuditLog
}

func (m *memAuditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

type chatFixture struct {
	chat      *ChatService
	reports   *memReportRepo
	tasks     *memTaskRepo
	patients  *memPatientRepo
	scripts   *memPrescriptionRepo
	auditRepo *memAuditRepo
}

// newChatFixture wires the chat pipeline with in-memory storage and no
// model gateway, so resolution is prefilter plus the regex cascade.
func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	log := zap.NewNop()

	reportRepo := &memReportRepo{}
	taskRepo := &memTaskRepo{}
	patientRepo := &memPatientRepo{}
	scriptRepo := &memPrescriptionRepo{}
	auditRepo := &memAuditRepo{}

	auditSvc := NewAuditService(auditRepo, log)
	t.Cleanup(auditSvc.Shutdown)

	kb := extract.DefaultKnowledgeBase()
	extractor := extract.NewExtractor(extract.NewPatternExtractor(kb, 150), nil, log)

	reportSvc := NewReportService(reportRepo, extractor, textextract.New(log), nil, auditSvc, testCollector, log)
	taskSvc := NewTaskService(taskRepo, auditSvc, testCollector, log)
	patientSvc := NewPatientService(patientRepo, auditSvc, log)
	scriptSvc := NewPrescriptionService(scriptRepo, reportRepo, nil, auditSvc, testCollector, log)

	resolver := intent.NewResolver(nil, log)
	chat := NewChatService(resolver, reportSvc, taskSvc, patientSvc, scriptSvc, auditSvc, testCollector, log)

	return &chatFixture{
		chat:      chat,
		reports:   reportRepo,
		tasks:     taskRepo,
		patients:  patientRepo,
		scripts:   scriptRepo,
		auditRepo: auditRepo,
	}
}

func seedReport(f *chatFixture, patientName, hash string) *report.Report {
	r := &report.Report{
		ID:          uuid.New(),
		FileName:    "report.pdf",
		FileHash:    hash,
		PatientName: patientName,
		Panel: &report.Panel{
			PatientInfo:   report.PatientInfo{Name: patientName},
			KeyHighlights: []string{"TLC slightly high (12,500 /cmm) → mild infection likely."},
		},
		UploadedBy: uuid.New(),
	}
	f.reports.reports = append(f.reports.reports, r)
	return r
}

func caller(role string) ChatCaller {
	return ChatCaller{UserID: uuid.New(), Role: role, IP: "127.0.0.1"}
}

func TestHandleMessageEmptyMessage(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.chat.HandleMessage(context.Background(), "   ", intent.ModeUnspecified, caller("assistant"))

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}

func TestHandleMessageCountReports(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "Suryansh Singh", "h1")
	seedReport(f, "Ravi Kumar", "h2")
	seedReport(f, "Anita Sharma", "h3")

	resp, err := f.chat.HandleMessage(context.Background(), "how many medical reports are there", intent.ModeUnspecified, caller("assistant"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentCountReports, resp.Intent)
	assert.Equal(t, intent.SourceFallback, resp.Source)
	assert.Equal(t, "There are 3 medical reports on file.", resp.Message)
}

func TestHandleMessageCollectivePhraseListsReports(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "Suryansh Singh", "h1")
	seedReport(f, "Ravi Kumar", "h2")

	resp, err := f.chat.HandleMessage(context.Background(), "show me reports of all patients", intent.ModeUnspecified, caller("assistant"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentListReports, resp.Intent)
	assert.Equal(t, intent.SourcePreFilter, resp.Source)
	assert.InDelta(t, 0.99, resp.Confidence, 0.001)
	assert.Equal(t, "Showing 2 of 2 reports.", resp.Message)
}

func TestHandleMessageGetPatientReport(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "Suryansh Singh", "h1")
	seedReport(f, "Ravi Kumar", "h2")

	resp, err := f.chat.HandleMessage(context.Background(), "Mr. Suryansh Singh medical report", intent.ModeUnspecified, caller("doctor"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentGetPatientReport, resp.Intent)
	assert.Equal(t, "Found 1 report(s) for Suryansh Singh.", resp.Message)
	recs, ok := resp.Data.([]*report.Report)
	require.True(t, ok)
	require.Len(t, recs, 1)
	assert.Equal(t, "Suryansh Singh", recs[0].PatientName)
}

func TestHandleMessageGetPatientReportNoMatch(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "Ravi Kumar", "h1")

	resp, err := f.chat.HandleMessage(context.Background(), "Mr. Suryansh Singh medical report", intent.ModeUnspecified, caller("doctor"))
	require.NoError(t, err)

	assert.Equal(t, "No reports found for Suryansh Singh.", resp.Message)
	assert.Nil(t, resp.Data)
}

func TestHandleMessagePendingTasks(t *testing.T) {
	f := newChatFixture(t)
	f.tasks.tasks = []*task.Task{
		{ID: uuid.New(), Name: "call pathology lab", Status: task.StatusPending},
		{ID: uuid.New(), Name: "restock gloves", Status: task.StatusPending},
		{ID: uuid.New(), Name: "file insurance claim", Status: task.StatusCompleted},
	}

	resp, err := f.chat.HandleMessage(context.Background(), "what are my pending tasks", intent.ModeUnspecified, caller("assistant"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentGetPendingTasks, resp.Intent)
	assert.Equal(t, "You have 2 pending task(s).", resp.Message)
}

func TestHandleMessageSuggestPrescriptionWithoutGateway(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "Ravi Kumar", "h1")

	resp, err := f.chat.HandleMessage(context.Background(), "suggest a prescription for Mr. Ravi Kumar", intent.ModeUnspecified, caller("doctor"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentSuggestPrescription, resp.Intent)
	assert.Contains(t, resp.Message, "TLC slightly high")
	assert.Contains(t, resp.Message, "Review by a licensed doctor")

	require.Len(t, f.scripts.suggestions, 1)
	assert.False(t, f.scripts.suggestions[0].ModelGenerated)
	assert.Equal(t, prescription.StatusDraft, f.scripts.suggestions[0].Status)
}

func TestHandleMessageCleanupRequiresAdmin(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "", "h1")
	seedReport(f, "Ravi Kumar", "h2")

	_, err := f.chat.HandleMessage(context.Background(), "clean up the junk reports", intent.ModeUnspecified, caller("assistant"))
	require.ErrorIs(t, err, ErrForbidden)

	resp, err := f.chat.HandleMessage(context.Background(), "clean up the junk reports", intent.ModeUnspecified, caller("admin"))
	require.NoError(t, err)
	assert.Equal(t, intent.IntentCleanupReports, resp.Intent)
	assert.Equal(t, "Removed 1 report(s) with no recognized patient.", resp.Message)
}

func TestHandleMessageRemoveDuplicates(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "Ravi Kumar", "same-hash")
	seedReport(f, "Ravi Kumar", "same-hash")
	seedReport(f, "Anita Sharma", "other-hash")

	resp, err := f.chat.HandleMessage(context.Background(), "remove duplicate reports", intent.ModeUnspecified, caller("admin"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentRemoveDuplicates, resp.Intent)
	assert.Equal(t, "Removed 1 duplicate report(s).", resp.Message)

	n, err := f.reports.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestHandleMessageUnknown(t *testing.T) {
	f := newChatFixture(t)

	resp, err := f.chat.HandleMessage(context.Background(), "good morning", intent.ModeUnspecified, caller("assistant"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentUnknown, resp.Intent)
	assert.Contains(t, resp.Message, "could not work out")
}

func TestHandleMessageFindPatientsByLab(t *testing.T) {
	f := newChatFixture(t)
	r := seedReport(f, "Suryansh Singh", "h1")
	r.Panel.CBCHemogram.WBCDifferential.TLC = &report.Field{
		Test: "TLC", Result: "12,500 /cmm", Reference: "4,400 – 11,000", Status: report.StatusHigh,
	}

	resp, err := f.chat.HandleMessage(context.Background(), "who has high tlc", intent.ModeUnspecified, caller("doctor"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentFindPatientsByLab, resp.Intent)
	assert.Equal(t, "1 patient(s) with high TLC: Suryansh Singh.", resp.Message)
}

func TestHandleMessagePatientNames(t *testing.T) {
	f := newChatFixture(t)
	seedReport(f, "Suryansh Singh", "h1")
	seedReport(f, "Suryansh Singh", "h2")
	seedReport(f, "Ravi Kumar", "h3")
	seedReport(f, "", "h4")

	resp, err := f.chat.HandleMessage(context.Background(), "give me the names of all patients", intent.ModeUnspecified, caller("assistant"))
	require.NoError(t, err)

	assert.Equal(t, intent.IntentGetAllPatientNames, resp.Intent)
	assert.Equal(t, "2 patients have reports on file.", resp.Message)
	names, ok := resp.Data.([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"Suryansh Singh", "Ravi Kumar"}, names)
}
