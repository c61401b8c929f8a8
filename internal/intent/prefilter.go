package intent

import "strings"

// collectivePhrases are wordings that refer to the whole patient
// population. A message that combines one of these with a report word
// is always a listing request, however the model might read it.
var collectivePhrases = []string{
	"all people",
	"all patients",
	"everyone",
	"everybody",
	"of all people",
	"of all patients",
}

var reportWords = []string{"report", "medical"}

// PreFilter short-circuits collective report queries before any model
// call. Runs first in the resolver; its verdict is final.
type PreFilter struct{}

// Apply returns a high-confidence list_reports result when the message
// matches, or ok=false to let the pipeline continue.
func (PreFilter) Apply(message string) (Result, bool) {
	m := strings.ToLower(message)

	collective := false
	for _, p := range collectivePhrases {
		if strings.Contains(m, p) {
			collective = true
			break
		}
	}
	if !collective {
		return Result{}, false
	}
	for _, w := range reportWords {
		if strings.Contains(m, w) {
			return Result{
				Intent:     IntentListReports,
				Confidence: 0.99,
				Source:     SourcePreFilter,
			}, true
		}
	}
	return Result{}, false
}
