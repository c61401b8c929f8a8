package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/intent"
	"github.com/medassist/medassist/pkg/metrics"
)

// ChatResponse is what a resolved chat message produces. Data carries
// the structured payload for intents that have one; Message is always
// set and safe to render directly.
type ChatResponse struct {
	Intent     intent.Intent `json:"intent"`
	Source     intent.Source `json:"source"`
	Confidence float64       `json:"confidence"`
	Message    string        `json:"message"`
	Data       any           `json:"data,omitempty"`
}

type chatHandler func(ctx context.Context, res intent.Result, caller ChatCaller) (ChatResponse, error)

// ChatCaller identifies who is chatting, for audit and authorization.
type ChatCaller struct {
	UserID uuid.UUID
	Role   string
	IP     string
}

// ChatService resolves a free-text message to an intent and dispatches
// it to the owning service. Each intent has exactly one handler; the
// dispatch table is built once at construction.
type ChatService struct {
	resolver *intent.Resolver
	reports  *ReportService
	tasks    *TaskService
	patients *PatientService
	scripts  *PrescriptionService

	auditSvc  *AuditService
	collector *metrics.Collector
	log       *zap.Logger

	handlers map[intent.Intent]chatHandler
}

func NewChatService(
	resolver *intent.Resolver,
	reports *ReportService,
	tasks *TaskService,
	patients *PatientService,
	scripts *PrescriptionService,
	auditSvc *AuditService,
	collector *metrics.Collector,
	log *zap.Logger,
) *ChatService {
	s := &ChatService{
		resolver:  resolver,
		reports:   reports,
		tasks:     tasks,
		patients:  patients,
		scripts:   scripts,
		auditSvc:  auditSvc,
		collector: collector,
		log:       log,
	}
	s.handlers = map[intent.Intent]chatHandler{
		intent.IntentGetPatientReport:     s.handleGetPatientReport,
		intent.IntentCountReports:         s.handleCountReports,
		intent.IntentListReports:          s.handleListReports,
		intent.IntentSearchPatient:        s.handleSearchPatient,
		intent.IntentSummarizeReport:      s.handleSummarizeReport,
		intent.IntentSuggestPrescription:  s.handleSuggestPrescription,
		intent.IntentGetAllPatientNames:   s.handlePatientNames,
		intent.IntentAnalyzePatient:       s.handleAnalyze,
		intent.IntentAnalyzeMedicalReport: s.handleAnalyze,
		intent.IntentFindPatientsByLab:    s.handleFindByLab,
		intent.IntentGetPendingTasks:      s.handlePendingTasks,
		intent.IntentGetAllTasks:          s.handleAllTasks,
		intent.IntentSearchTask:           s.handleSearchTask,
		intent.IntentCreateTask:           s.handleCreateTask,
		intent.IntentUploadReports:        s.handleUploadHint,
		intent.IntentCleanupReports:       s.handleCleanup,
		intent.IntentRemoveDuplicates:     s.handleRemoveDuplicates,
		intent.IntentUnknown:              s.handleUnknown,
	}
	return s
}

// HandleMessage is the entry point for one chat turn.
func (s *ChatService) HandleMessage(ctx context.Context, message string, mode intent.Mode, caller ChatCaller) (ChatResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return ChatResponse{}, &ValidationError{Fields: []string{"message is required"}}
	}

	res := s.resolver.Resolve(ctx, message, mode)

	s.collector.IntentResolutionsTotal.WithLabelValues(string(res.Intent), string(res.Source)).Inc()
	if res.Source == intent.SourceFallback {
		s.collector.GatewayFallbacksTotal.Inc()
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     caller.Role,
		Action:       "chat",
		ResourceType: "chat_message",
		ResourceID:   string(res.Intent),
		IPAddress:    caller.IP,
	})

	handler, ok := s.handlers[res.Intent]
	if !ok {
		handler = s.handleUnknown
	}

	out, err := handler(ctx, res, caller)
	if err != nil {
		return ChatResponse{}, err
	}
	out.Intent = res.Intent
	out.Source = res.Source
	out.Confidence = res.Confidence
	return out, nil
}

// requireName guards handlers for patient-scoped intents reached
// without a usable name, which the sanitizer permits when the message
// named nobody.
func requireName(res intent.Result) (string, error) {
	if res.PatientName == "" {
		return "", &ValidationError{Fields: []string{"could not determine which patient you mean; include the patient's name"}}
	}
	return res.PatientName, nil
}

func (s *ChatService) handleGetPatientReport(ctx context.Context, res intent.Result, _ ChatCaller) (ChatResponse, error) {
	name, err := requireName(res)
	if err != nil {
		return ChatResponse{}, err
	}
	recs, err := s.reports.GetPatientReports(ctx, name)
	if err != nil {
		return ChatResponse{}, err
	}
	if len(recs) == 0 {
		return ChatResponse{Message: fmt.Sprintf("No reports found for %s.", name)}, nil
	}
	return ChatResponse{
		Message: fmt.Sprintf("Found %d report(s) for %s.", len(recs), name),
		Data:    recs,
	}, nil
}

func (s *ChatService) handleCountReports(ctx context.Context, _ intent.Result, _ ChatCaller) (ChatResponse, error) {
	n, err := s.reports.CountReports(ctx)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("There are %d medical reports on file.", n),
		Data:    map[string]int64{"count": n},
	}, nil
}

func (s *ChatService) handleListReports(ctx context.Context, _ intent.Result, _ ChatCaller) (ChatResponse, error) {
	paged, err := s.reports.ListReports(ctx, &report.ListReportsQuery{Page: 1, PageSize: 50})
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("Showing %d of %d reports.", len(paged.Reports), paged.TotalCount),
		Data:    paged,
	}, nil
}

func (s *ChatService) handleSearchPatient(ctx context.Context, res intent.Result, _ ChatCaller) (ChatResponse, error) {
	name, err := requireName(res)
	if err != nil {
		return ChatResponse{}, err
	}
	matches, err := s.patients.SearchPatients(ctx, name)
	if err != nil {
		return ChatResponse{}, err
	}
	if len(matches) == 0 {
		// Patients only exist here through their reports, so fall back
		// to report lookups before giving up.
		recs, rerr := s.reports.GetPatientReports(ctx, name)
		if rerr == nil && len(recs) > 0 {
			return ChatResponse{
				Message: fmt.Sprintf("No registered patient matches %q, but %d report(s) carry that name.", name, len(recs)),
				Data:    recs,
			}, nil
		}
		return ChatResponse{Message: fmt.Sprintf("No patient found matching %q.", name)}, nil
	}
	return ChatResponse{
		Message: fmt.Sprintf("Found %d patient(s) matching %q.", len(matches), name),
		Data:    matches,
	}, nil
}

func (s *ChatService) handleSummarizeReport(ctx context.Context, res intent.Result, _ ChatCaller) (ChatResponse, error) {
	name, err := requireName(res)
	if err != nil {
		return ChatResponse{}, err
	}
	summary, err := s.reports.SummarizeReport(ctx, name)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{Message: summary}, nil
}

func (s *ChatService) handleSuggestPrescription(ctx context.Context, res intent.Result, caller ChatCaller) (ChatResponse, error) {
	name, err := requireName(res)
	if err != nil {
		return ChatResponse{}, err
	}
	sug, err := s.scripts.SuggestForPatient(ctx, name, caller.UserID, caller.Role, caller.IP)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: sug.Content,
		Data:    sug,
	}, nil
}

func (s *ChatService) handlePatientNames(ctx context.Context, _ intent.Result, _ ChatCaller) (ChatResponse, error) {
	names, err := s.reports.PatientNames(ctx)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("%d patients have reports on file.", len(names)),
		Data:    names,
	}, nil
}

func (s *ChatService) handleAnalyze(ctx context.Context, res intent.Result, _ ChatCaller) (ChatResponse, error) {
	name, err := requireName(res)
	if err != nil {
		return ChatResponse{}, err
	}
	panel, err := s.reports.AnalyzeReport(ctx, name)
	if err != nil {
		return ChatResponse{}, err
	}
	msg := fmt.Sprintf("Analysis for %s.", name)
	if len(panel.KeyHighlights) > 0 {
		msg = fmt.Sprintf("Analysis for %s: %s", name, strings.Join(panel.KeyHighlights, " "))
	}
	return ChatResponse{Message: msg, Data: panel}, nil
}

func (s *ChatService) handleFindByLab(ctx context.Context, res intent.Result, _ ChatCaller) (ChatResponse, error) {
	// TLC/High is the default cohort when the message names no test;
	// it is what this question almost always means here.
	test := res.LabTest
	if test == "" {
		test = "TLC"
	}
	status := report.StatusHigh
	if res.LabCondition == intent.ConditionLow {
		status = report.StatusLow
	}

	names, err := s.reports.FindPatientsByLabValue(ctx, test, status)
	if err != nil {
		return ChatResponse{}, err
	}
	if len(names) == 0 {
		return ChatResponse{Message: fmt.Sprintf("No patients have %s marked %s.", test, strings.ToLower(string(status)))}, nil
	}
	return ChatResponse{
		Message: fmt.Sprintf("%d patient(s) with %s %s: %s.", len(names), strings.ToLower(string(status)), test, strings.Join(names, ", ")),
		Data:    names,
	}, nil
}

func (s *ChatService) handlePendingTasks(ctx context.Context, _ intent.Result, _ ChatCaller) (ChatResponse, error) {
	tasks, err := s.tasks.PendingTasks(ctx)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("You have %d pending task(s).", len(tasks)),
		Data:    tasks,
	}, nil
}

func (s *ChatService) handleAllTasks(ctx context.Context, _ intent.Result, _ ChatCaller) (ChatResponse, error) {
	tasks, err := s.tasks.AllTasks(ctx)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("There are %d task(s) in total.", len(tasks)),
		Data:    tasks,
	}, nil
}

func (s *ChatService) handleSearchTask(ctx context.Context, res intent.Result, _ ChatCaller) (ChatResponse, error) {
	if res.TaskName == "" {
		tasks, err := s.tasks.PendingTasks(ctx)
		if err != nil {
			return ChatResponse{}, err
		}
		return ChatResponse{
			Message: fmt.Sprintf("No task named; showing %d pending task(s).", len(tasks)),
			Data:    tasks,
		}, nil
	}

	tasks, err := s.tasks.SearchTasks(ctx, res.TaskName)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("Found %d task(s) matching %q.", len(tasks), res.TaskName),
		Data:    tasks,
	}, nil
}

func (s *ChatService) handleCreateTask(ctx context.Context, _ intent.Result, _ ChatCaller) (ChatResponse, error) {
	return ChatResponse{
		Message: "To create a task, POST it to /api/v1/tasks with a name and optional details and due date.",
	}, nil
}

func (s *ChatService) handleUploadHint(ctx context.Context, _ intent.Result, _ ChatCaller) (ChatResponse, error) {
	return ChatResponse{
		Message: "To upload reports, POST the PDF files to /api/v1/reports.",
	}, nil
}

func (s *ChatService) handleCleanup(ctx context.Context, _ intent.Result, caller ChatCaller) (ChatResponse, error) {
	if caller.Role != "admin" {
		return ChatResponse{}, ErrForbidden
	}
	removed, err := s.reports.CleanupUnknown(ctx, caller.UserID, caller.Role, caller.IP)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("Removed %d report(s) with no recognized patient.", removed),
		Data:    map[string]int64{"removed": removed},
	}, nil
}

func (s *ChatService) handleRemoveDuplicates(ctx context.Context, _ intent.Result, caller ChatCaller) (ChatResponse, error) {
	if caller.Role != "admin" {
		return ChatResponse{}, ErrForbidden
	}
	removed, err := s.reports.RemoveDuplicates(ctx, caller.UserID, caller.Role, caller.IP)
	if err != nil {
		return ChatResponse{}, err
	}
	return ChatResponse{
		Message: fmt.Sprintf("Removed %d duplicate report(s).", removed),
		Data:    map[string]int64{"removed": removed},
	}, nil
}

func (s *ChatService) handleUnknown(context.Context, intent.Result, ChatCaller) (ChatResponse, error) {
	return ChatResponse{
		Message: "I could not work out what you need. Try asking about reports, patients, or tasks.",
	}, nil
}
