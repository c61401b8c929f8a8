package intent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/llm"
)

type stubGateway struct {
	reply    string
	err      error
	calls    int
	lastUser string
}

func (s *stubGateway) Complete(_ context.Context, _, user string) (string, error) {
	s.calls++
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestParseFoldsUnknownIntents(t *testing.T) {
	i, err := Parse("get_patient_report")
	require.NoError(t, err)
	assert.Equal(t, IntentGetPatientReport, i)

	i, err = Parse("launch_rockets")
	assert.Error(t, err)
	assert.Equal(t, IntentUnknown, i)
}

func TestPreFilterMatchesCollectiveReportQueries(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"show me the reports of all patients", true},
		{"medical records for everyone please", true},
		{"does everybody have a report", true},
		{"all patients", false},            // no report word
		{"show me the report of Mr Singh", false}, // not collective
	}
	for _, tc := range tests {
		res, ok := PreFilter{}.Apply(tc.message)
		assert.Equal(t, tc.want, ok, tc.message)
		if ok {
			assert.Equal(t, IntentListReports, res.Intent)
			assert.Equal(t, 0.99, res.Confidence)
			assert.Equal(t, SourcePreFilter, res.Source)
		}
	}
}

func TestResolverPreFilterBeatsModel(t *testing.T) {
	// The gateway is primed with a contradicting verdict; it must not
	// even be consulted.
	gw := &stubGateway{reply: `{"intent":"get_patient_report","patient_name":"All Patients","confidence":0.9}`}
	r := NewResolver(NewClassifier(gw, zap.NewNop()), zap.NewNop())

	res := r.Resolve(context.Background(), "give me the medical reports of all patients", ModeUnspecified)
	assert.Equal(t, IntentListReports, res.Intent)
	assert.Equal(t, SourcePreFilter, res.Source)
	assert.Empty(t, res.PatientName)
	assert.Zero(t, gw.calls)
}

func TestResolverUsesModelVerdict(t *testing.T) {
	gw := &stubGateway{reply: `{"intent":"summarize_report","patient_name":"Suryansh Singh","confidence":0.92}`}
	r := NewResolver(NewClassifier(gw, zap.NewNop()), zap.NewNop())

	res := r.Resolve(context.Background(), "summarize the report of Mr. Suryansh Singh", ModeUnspecified)
	assert.Equal(t, IntentSummarizeReport, res.Intent)
	assert.Equal(t, "Suryansh Singh", res.PatientName)
	assert.Equal(t, SourceLLM, res.Source)
	assert.InDelta(t, 0.92, res.Confidence, 1e-9)
}

func TestClassifierPromptCoversIntentsAndExamples(t *testing.T) {
	for _, it := range All {
		assert.Contains(t, classifierSystemPrompt, string(it))
	}
	assert.Contains(t, classifierSystemPrompt, "Examples:")
	assert.Contains(t, classifierSystemPrompt, `"how many medical report you hav"`)
	assert.Contains(t, classifierSystemPrompt, `"what is wrong with Rajesh"`)
}

func TestClassifierTagsMode(t *testing.T) {
	gw := &stubGateway{reply: `{"intent":"summarize_report","patient_name":"Suryansh Singh","confidence":0.9}`}
	c := NewClassifier(gw, zap.NewNop())

	_, err := c.Classify(context.Background(), "summarize the report of Mr. Suryansh Singh", ModeMedicalReport)
	require.NoError(t, err)
	assert.Equal(t, "[mode: medical_report] summarize the report of Mr. Suryansh Singh", gw.lastUser)

	_, err = c.Classify(context.Background(), "how many reports are there", ModeUnspecified)
	require.NoError(t, err)
	assert.Equal(t, "how many reports are there", gw.lastUser)
}

func TestResolverFallsBackWhenGatewayDown(t *testing.T) {
	gw := &stubGateway{err: llm.ErrGatewayUnavailable}
	r := NewResolver(NewClassifier(gw, zap.NewNop()), zap.NewNop())

	res := r.Resolve(context.Background(), "Mr. Suryansh Singh medical report", ModeUnspecified)
	assert.Equal(t, IntentGetPatientReport, res.Intent)
	assert.Equal(t, "Suryansh Singh", res.PatientName)
	assert.Equal(t, SourceFallback, res.Source)
}

func TestResolverFallsBackOnMalformedReply(t *testing.T) {
	gw := &stubGateway{reply: "I think the user wants a report."}
	r := NewResolver(NewClassifier(gw, zap.NewNop()), zap.NewNop())

	res := r.Resolve(context.Background(), "how many medical reports are there", ModeUnspecified)
	assert.Equal(t, IntentCountReports, res.Intent)
	assert.Equal(t, SourceFallback, res.Source)
}

func TestSanitizeDropsJunkNames(t *testing.T) {
	tests := []struct {
		name string
		in   Result
		want Result
	}{
		{
			"stopword name on count",
			Result{Intent: IntentCountReports, PatientName: "you hav", Confidence: 0.8, Source: SourceLLM},
			Result{Intent: IntentCountReports, PatientName: "", Confidence: 0.8, Source: SourceLLM},
		},
		{
			"short name",
			Result{Intent: IntentGetPatientReport, PatientName: "Raj", Confidence: 0.7, Source: SourceLLM},
			Result{Intent: IntentGetPatientReport, PatientName: "", Confidence: 0.7, Source: SourceLLM},
		},
		{
			"collective phrase rewrites to listing",
			Result{Intent: IntentGetPatientReport, PatientName: "all patients", Confidence: 0.7, Source: SourceLLM},
			Result{Intent: IntentListReports, PatientName: "", Confidence: 0.7, Source: SourceLLM},
		},
		{
			"name forced off non-consuming intent",
			Result{Intent: IntentGetAllPatientNames, PatientName: "Suryansh Singh", Confidence: 0.9, Source: SourceLLM},
			Result{Intent: IntentGetAllPatientNames, PatientName: "", Confidence: 0.9, Source: SourceLLM},
		},
		{
			"real name survives",
			Result{Intent: IntentSummarizeReport, PatientName: "Suryansh Singh", Confidence: 0.9, Source: SourceLLM},
			Result{Intent: IntentSummarizeReport, PatientName: "Suryansh Singh", Confidence: 0.9, Source: SourceLLM},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Sanitize(tc.in))
		})
	}
}

func TestSanitizeNameOnlyOnConsumingIntents(t *testing.T) {
	for _, i := range All {
		res := Sanitize(Result{Intent: i, PatientName: "Suryansh Singh"})
		if i.ConsumesPatientName() {
			assert.Equal(t, "Suryansh Singh", res.PatientName, string(i))
		} else {
			assert.Empty(t, res.PatientName, string(i))
		}
	}
}

func TestFallbackCascade(t *testing.T) {
	tests := []struct {
		message string
		intent  Intent
		name    string
	}{
		{"remove duplicate reports", IntentRemoveDuplicates, ""},
		{"clean up the unknown reports", IntentCleanupReports, ""},
		{"how many medical reports you hav", IntentCountReports, ""},
		{"list all reports", IntentListReports, ""},
		{"show pending tasks", IntentGetPendingTasks, ""},
		{"create a task to call the lab", IntentCreateTask, ""},
		{"Mr. Suryansh Singh medical report", IntentGetPatientReport, "Suryansh Singh"},
		{"summarize the report of Mrs. Anita Sharma", IntentSummarizeReport, "Anita Sharma"},
		{"suggest a prescription for Dr. Rakesh Kumar", IntentSuggestPrescription, "Rakesh Kumar"},
		{"what is wrong with patient Rajesh", IntentAnalyzePatient, ""},
		{"what tasks do i have", IntentGetAllTasks, ""},
		{"delete my tasks", IntentUnknown, ""},
		{"what is wrong with Mr. Suryansh Singh", IntentAnalyzePatient, "Suryansh Singh"},
		{"what is the weather like", IntentUnknown, ""},
	}
	for _, tc := range tests {
		res := FallbackClassifier{}.Classify(tc.message)
		assert.Equal(t, tc.intent, res.Intent, tc.message)
		assert.Equal(t, tc.name, res.PatientName, tc.message)
		assert.Equal(t, SourceFallback, res.Source, tc.message)
	}
}

func TestFallbackExtractsLabQuery(t *testing.T) {
	res := FallbackClassifier{}.Classify("patients with low hemoglobin")
	assert.Equal(t, IntentFindPatientsByLab, res.Intent)
	assert.Equal(t, "Hemoglobin", res.LabTest)
	assert.Equal(t, ConditionLow, res.LabCondition)

	res = FallbackClassifier{}.Classify("who has high tlc")
	assert.Equal(t, IntentFindPatientsByLab, res.Intent)
	assert.Equal(t, "TLC", res.LabTest)
	assert.Equal(t, ConditionHigh, res.LabCondition)
}

func TestFallbackExtractsTaskQuery(t *testing.T) {
	res := FallbackClassifier{}.Classify("find the task about insurance claim")
	assert.Equal(t, IntentSearchTask, res.Intent)
	assert.Equal(t, "insurance claim", res.TaskName)

	res = FallbackClassifier{}.Classify("search tasks")
	assert.Equal(t, IntentSearchTask, res.Intent)
	assert.Empty(t, res.TaskName)
}

func TestSanitizeClearsSlotsOnForeignIntents(t *testing.T) {
	res := Sanitize(Result{
		Intent:       IntentCountReports,
		TaskName:     "call the lab",
		LabTest:      "TLC",
		LabCondition: ConditionHigh,
	})
	assert.Empty(t, res.TaskName)
	assert.Empty(t, res.LabTest)
	assert.Equal(t, ConditionUnspecified, res.LabCondition)

	res = Sanitize(Result{Intent: IntentFindPatientsByLab, LabTest: "TLC", LabCondition: ConditionHigh})
	assert.Equal(t, "TLC", res.LabTest)
	assert.Equal(t, ConditionHigh, res.LabCondition)

	res = Sanitize(Result{Intent: IntentSearchTask, TaskName: "insurance claim"})
	assert.Equal(t, "insurance claim", res.TaskName)
}

func TestExtractTitledName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Mr. Suryansh Singh medical report", "Suryansh Singh"},
		{"report of MRS. ANITA SHARMA", "Anita Sharma"},
		{"no titles here", ""},
		{"Mr. Raj", ""}, // too short once trimmed
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, extractTitledName(tc.in), tc.in)
	}
}
