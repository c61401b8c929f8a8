package intent

import "fmt"

// Intent is the closed set of actions the assistant can route a chat
// message to. Anything a classifier produces outside this set collapses
// to IntentUnknown.
type Intent string

const (
	IntentGetPatientReport     Intent = "get_patient_report"
	IntentCountReports         Intent = "count_reports"
	IntentListReports          Intent = "list_reports"
	IntentSearchPatient        Intent = "search_patient"
	IntentSummarizeReport      Intent = "summarize_report"
	IntentSuggestPrescription  Intent = "suggest_prescription"
	IntentGetAllPatientNames   Intent = "get_all_patient_names"
	IntentAnalyzePatient       Intent = "analyze_patient"
	IntentAnalyzeMedicalReport Intent = "analyze_medical_report"
	IntentFindPatientsByLab    Intent = "find_patients_by_lab_value"
	IntentGetPendingTasks      Intent = "get_pending_tasks"
	IntentGetAllTasks          Intent = "get_all_tasks"
	IntentSearchTask           Intent = "search_task"
	IntentCreateTask           Intent = "create_task"
	IntentUploadReports        Intent = "upload_medical_reports"
	IntentCleanupReports       Intent = "cleanup_reports"
	IntentRemoveDuplicates     Intent = "remove_duplicates"
	IntentUnknown              Intent = "unknown"
)

// Mode is the caller's declared conversation context. It only flavors
// the classifier prompt and never changes which intents are reachable.
type Mode string

const (
	ModeUnspecified      Mode = ""
	ModeMedicalReport    Mode = "medical_report"
	ModeMedicalKnowledge Mode = "medical_knowledge"
)

// All lists every routable intent, in the order classifiers are told
// about them.
var All = []Intent{
	IntentGetPatientReport,
	IntentCountReports,
	IntentListReports,
	IntentSearchPatient,
	IntentSummarizeReport,
	IntentSuggestPrescription,
	IntentGetAllPatientNames,
	IntentAnalyzePatient,
	IntentAnalyzeMedicalReport,
	IntentFindPatientsByLab,
	IntentGetPendingTasks,
	IntentGetAllTasks,
	IntentSearchTask,
	IntentCreateTask,
	IntentUploadReports,
	IntentCleanupReports,
	IntentRemoveDuplicates,
	IntentUnknown,
}

func (i Intent) IsValid() bool {
	for _, known := range All {
		if i == known {
			return true
		}
	}
	return false
}

// Parse maps a raw classifier label to an Intent, folding anything
// unrecognized to IntentUnknown with an error for the caller's logs.
func Parse(raw string) (Intent, error) {
	i := Intent(raw)
	if i.IsValid() {
		return i, nil
	}
	return IntentUnknown, fmt.Errorf("unrecognized intent %q", raw)
}

// patientConsuming lists the intents whose handlers read PatientName.
// The sanitizer clears the name on every other intent, so handlers can
// rely on the pairing.
var patientConsuming = map[Intent]bool{
	IntentGetPatientReport:     true,
	IntentSearchPatient:        true,
	IntentSummarizeReport:      true,
	IntentSuggestPrescription:  true,
	IntentAnalyzePatient:       true,
	IntentAnalyzeMedicalReport: true,
}

// ConsumesPatientName reports whether a handler for this intent uses
// the extracted patient name.
func (i Intent) ConsumesPatientName() bool {
	return patientConsuming[i]
}

// ConsumesTaskName reports whether a handler for this intent uses the
// extracted task name.
func (i Intent) ConsumesTaskName() bool {
	return i == IntentSearchTask || i == IntentCreateTask
}

// ConsumesLabQuery reports whether a handler for this intent uses the
// extracted lab test and condition.
func (i Intent) ConsumesLabQuery() bool {
	return i == IntentFindPatientsByLab
}

// Condition qualifies a lab-value query. Empty means the message named
// a test without saying which direction is of interest.
type Condition string

const (
	ConditionUnspecified Condition = ""
	ConditionLow         Condition = "low"
	ConditionHigh        Condition = "high"
)

// Source records which stage decided the intent.
type Source string

const (
	SourcePreFilter Source = "prefilter"
	SourceLLM       Source = "llm"
	SourceFallback  Source = "fallback"
)

// Result is a resolved chat intent. Slot fields are empty unless the
// intent consumes them; the sanitizer enforces the pairing.
type Result struct {
	Intent       Intent    `json:"intent"`
	PatientName  string    `json:"patient_name,omitempty"`
	TaskName     string    `json:"task_name,omitempty"`
	LabTest      string    `json:"lab_test,omitempty"`
	LabCondition Condition `json:"lab_condition,omitempty"`
	Confidence   float64   `json:"confidence"`
	Source       Source    `json:"source"`
}
