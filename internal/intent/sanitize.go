package intent

import "strings"

// nameStopwords are tokens that never appear in a real patient name.
// A model-extracted name containing any of them is a misparse of the
// surrounding sentence, not a person.
var nameStopwords = map[string]bool{
	"you": true, "have": true, "hav": true, "i": true, "s": true,
	"me": true, "my": true, "we": true, "they": true,
	"the": true, "a": true, "an": true, "whose": true,
	"patent": true, "patents": true, "all": true, "people": true,
	"patients": true, "everyone": true, "everybody": true,
}

var nameStopPhrases = []string{"of all", "all people", "all patients"}

// Sanitize enforces the invariants a classifier verdict must satisfy
// before it reaches a handler: no junk patient names, no names on
// intents that cannot use them, and collective wordings routed to
// list_reports.
func Sanitize(res Result) Result {
	res.PatientName = strings.TrimSpace(res.PatientName)

	if res.PatientName != "" && !plausibleName(res.PatientName) {
		if looksLikeListAll(res.PatientName) && res.Intent == IntentGetPatientReport {
			res.Intent = IntentListReports
		}
		res.PatientName = ""
	}

	switch res.Intent {
	case IntentCountReports, IntentListReports, IntentGetAllPatientNames:
		res.PatientName = ""
	}

	if !res.Intent.ConsumesPatientName() {
		res.PatientName = ""
	}

	res.TaskName = strings.TrimSpace(res.TaskName)
	if !res.Intent.ConsumesTaskName() {
		res.TaskName = ""
	}

	res.LabTest = strings.TrimSpace(res.LabTest)
	if !res.Intent.ConsumesLabQuery() {
		res.LabTest = ""
		res.LabCondition = ConditionUnspecified
	}

	return res
}

func plausibleName(name string) bool {
	if len(name) <= 3 {
		return false
	}
	lower := strings.ToLower(name)
	for _, phrase := range nameStopPhrases {
		if strings.Contains(lower, phrase) {
			return false
		}
	}
	for _, tok := range strings.Fields(lower) {
		if nameStopwords[strings.Trim(tok, ".,!?")] {
			return false
		}
	}
	return true
}

func looksLikeListAll(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "all") || strings.Contains(lower, "every")
}
