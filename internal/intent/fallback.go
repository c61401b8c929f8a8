package intent

import (
	"regexp"
	"strings"
)

// fallbackConfidence is deliberately modest; regex matching is a
// degraded mode used only when the model gateway is unreachable.
const fallbackConfidence = 0.6

// titledNameRe only accepts names introduced by a title. Without the
// model, a bare capitalized pair is too easy to confuse with sentence
// starts, so untitled names are not extracted at all in fallback mode.
var titledNameRe = regexp.MustCompile(`(?i)\b(?:Mr|Mrs|Ms|Dr|Miss|Master)\.?\s+([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*)`)

var nameNoiseRe = regexp.MustCompile(`(?i)\s+(medical|report|reports|record|records|file|files)\b.*$`)

// fallbackRule is one step of the cascade. First matching rule wins.
type fallbackRule struct {
	intent   Intent
	match    func(string) bool
	wantName bool
}

func anyOf(substrings ...string) func(string) bool {
	return func(m string) bool {
		for _, s := range substrings {
			if strings.Contains(m, s) {
				return true
			}
		}
		return false
	}
}

func allOf(matchers ...func(string) bool) func(string) bool {
	return func(m string) bool {
		for _, f := range matchers {
			if !f(m) {
				return false
			}
		}
		return true
	}
}

var fallbackRules = []fallbackRule{
	{IntentRemoveDuplicates, anyOf("duplicate", "duplicates"), false},
	{IntentCleanupReports, allOf(anyOf("cleanup", "clean up", "clean"), anyOf("report", "reports")), false},
	{IntentUploadReports, allOf(anyOf("upload", "add new"), anyOf("report", "reports", "file", "files")), false},
	{IntentCountReports, allOf(anyOf("how many", "count", "number of"), anyOf("report", "medical")), false},
	{IntentGetAllPatientNames, allOf(anyOf("all patient", "every patient", "patient names", "names of"), anyOf("name", "names")), false},
	{IntentListReports, allOf(anyOf("list", "show all", "all report", "every report"), anyOf("report", "reports", "medical")), false},
	{IntentGetPendingTasks, allOf(anyOf("pending", "incomplete", "unfinished"), anyOf("task", "tasks")), false},
	{IntentCreateTask, allOf(anyOf("create", "add", "remind", "new"), anyOf("task", "reminder")), false},
	{IntentSearchTask, allOf(anyOf("find", "search", "look for"), anyOf("task", "tasks")), false},
	{IntentGetAllTasks, anyOf("all tasks", "all the tasks", "every task", "what tasks", "tasks i have", "task i have", "list tasks", "show tasks", "show me the tasks"), false},
	{IntentSummarizeReport, anyOf("summarize", "summarise", "summary"), true},
	{IntentSuggestPrescription, anyOf("prescription", "prescribe", "medication"), true},
	{IntentFindPatientsByLab, allOf(anyOf("patients with", "patients having", "who has", "who have"), anyOf("high", "low", "positive", "negative", "abnormal", "hemoglobin", "tlc", "platelet")), false},
	{IntentAnalyzeMedicalReport, allOf(anyOf("analyze", "analyse", "analysis"), anyOf("report", "result", "findings")), true},
	{IntentAnalyzePatient, anyOf("wrong with", "problem with", "issue with", "what is wrong", "what's wrong"), false},
	{IntentAnalyzePatient, anyOf("analyze", "analyse", "analysis", "condition of"), true},
	{IntentGetPatientReport, anyOf("report", "reports", "medical record"), true},
	{IntentSearchPatient, anyOf("patient", "find", "search"), true},
}

// FallbackClassifier is the offline cascade used when the model gateway
// is down. Order matters; specific wordings sit above generic ones.
type FallbackClassifier struct{}

func (FallbackClassifier) Classify(message string) Result {
	m := strings.ToLower(message)
	name := extractTitledName(message)

	for _, rule := range fallbackRules {
		if !rule.match(m) {
			continue
		}
		res := Result{
			Intent:     rule.intent,
			Confidence: fallbackConfidence,
			Source:     SourceFallback,
		}
		if rule.wantName {
			if name == "" {
				// A patient-scoped intent without a resolvable name
				// cannot be served; keep cascading.
				continue
			}
			res.PatientName = name
		} else if name != "" && rule.intent.ConsumesPatientName() {
			res.PatientName = name
		}
		switch rule.intent {
		case IntentFindPatientsByLab:
			res.LabTest, res.LabCondition = extractLabQuery(m)
		case IntentSearchTask:
			res.TaskName = extractTaskQuery(message)
		}
		return res
	}

	return Result{Intent: IntentUnknown, Confidence: 0, Source: SourceFallback}
}

// labTestKeywords maps message wordings to the canonical test names the
// knowledge base uses.
var labTestKeywords = []struct {
	keyword string
	test    string
}{
	{"hemoglobin", "Hemoglobin"},
	{"haemoglobin", "Hemoglobin"},
	{"tlc", "TLC"},
	{"leucocyte", "TLC"},
	{"leukocyte", "TLC"},
	{"wbc", "TLC"},
	{"platelet", "Platelet Count"},
	{"esr", "ESR"},
	{"sgpt", "ALT / SGPT"},
	{"alt", "ALT / SGPT"},
	{"sgot", "AST / SGOT"},
	{"ast", "AST / SGOT"},
	{"crp", "CRP"},
}

func extractLabQuery(m string) (string, Condition) {
	var test string
	for _, k := range labTestKeywords {
		if strings.Contains(m, k.keyword) {
			test = k.test
			break
		}
	}

	cond := ConditionUnspecified
	switch {
	case strings.Contains(m, "low") || strings.Contains(m, "decreased"):
		cond = ConditionLow
	case strings.Contains(m, "high") || strings.Contains(m, "elevated") || strings.Contains(m, "raised"):
		cond = ConditionHigh
	}
	return test, cond
}

var taskQueryRe = regexp.MustCompile(`(?i)(?:find|search|look for)\s+(?:the\s+|a\s+)?tasks?\s+(?:named\s+|called\s+|about\s+|for\s+)?(.+)$`)

func extractTaskQuery(message string) string {
	m := taskQueryRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	return strings.Trim(strings.TrimSpace(m[1]), ".,!?\"")
}

// extractTitledName pulls the first titled name out of the message,
// dropping the title itself and anything after a report noun.
func extractTitledName(message string) string {
	m := titledNameRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	name := nameNoiseRe.ReplaceAllString(m[1], "")
	name = strings.TrimSpace(name)
	if len(name) <= 3 {
		return ""
	}
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
