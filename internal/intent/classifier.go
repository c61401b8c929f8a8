package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/llm"
)

const classifierSystemPrompt = `You are an intent classifier for a medical practice assistant. Classify the user's message into exactly one of these intents:

- get_patient_report: fetch a specific patient's report
- count_reports: how many reports exist
- list_reports: list all reports or reports of all patients
- search_patient: look up a patient by name
- summarize_report: summarize a specific patient's report
- suggest_prescription: suggest a prescription for a patient's report
- get_all_patient_names: list the names of all patients
- analyze_patient: analyze a patient's overall condition
- analyze_medical_report: analyze the findings of a specific report
- find_patients_by_lab_value: find patients by a lab test value or status
- get_pending_tasks: list tasks that are not completed
- get_all_tasks: list every task
- search_task: find a task by name or detail
- create_task: create a new task or reminder
- upload_medical_reports: upload new report files
- cleanup_reports: delete reports with no recognized patient
- remove_duplicates: delete duplicated report files
- unknown: none of the above

Respond with a single JSON object and nothing else:
{"intent": "<one of the labels above>", "patient_name": "<name mentioned in the message, or null>", "task_name": "<task the message refers to, or null>", "lab_test": "<lab test named in the message, or null>", "lab_condition": "<low, high, or null>", "confidence": <0.0 to 1.0>}

Only set patient_name when the message names a specific person. Never invent a name. Only set task_name for search_task or create_task. Only set lab_test and lab_condition for find_patients_by_lab_value.

Examples:
- "do you have rajesh medical report" -> {"intent": "get_patient_report", "patient_name": "rajesh", "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "how many reports do we have" -> {"intent": "count_reports", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.98}
- "how many medical report you hav" -> {"intent": "count_reports", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.98} ("you hav" is not a patient name)
- "medical report of all patients" -> {"intent": "list_reports", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.98} ("all patients" is not a patient name)
- "find patient Smith" -> {"intent": "search_patient", "patient_name": "Smith", "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.9}
- "summarize Rajesh's report" -> {"intent": "summarize_report", "patient_name": "Rajesh", "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "what prescription can we give to John" -> {"intent": "suggest_prescription", "patient_name": "John", "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.9}
- "tell me the name of patent's whose medical reports i have" -> {"intent": "get_all_patient_names", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95} (typo "patent"; "i have" is not a patient name)
- "what is wrong with Rajesh" -> {"intent": "analyze_patient", "patient_name": "Rajesh", "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "analyze this guy" -> {"intent": "analyze_medical_report", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.9}
- "which patients have high WBC" -> {"intent": "find_patients_by_lab_value", "patient_name": null, "task_name": null, "lab_test": "WBC", "lab_condition": "high", "confidence": 0.95}
- "can you tell me all the task that are pending" -> {"intent": "get_pending_tasks", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "what tasks do i have" -> {"intent": "get_all_tasks", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "someone have to check today" -> {"intent": "search_task", "patient_name": null, "task_name": "someone have to check today", "lab_test": null, "lab_condition": null, "confidence": 0.9}
- "i want to add a task" -> {"intent": "create_task", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "upload medical reports" -> {"intent": "upload_medical_reports", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "remove unknown patient reports" -> {"intent": "cleanup_reports", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "delete duplicate reports" -> {"intent": "remove_duplicates", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.95}
- "good morning" -> {"intent": "unknown", "patient_name": null, "task_name": null, "lab_test": null, "lab_condition": null, "confidence": 0.99}

The message may begin with a [mode: ...] tag naming the conversation context. Treat it as a hint, not part of the user's words.`

// classifierReply is the wire shape the model is instructed to return.
type classifierReply struct {
	Intent       string  `json:"intent"`
	PatientName  *string `json:"patient_name"`
	TaskName     *string `json:"task_name"`
	LabTest      *string `json:"lab_test"`
	LabCondition *string `json:"lab_condition"`
	Confidence   float64 `json:"confidence"`
}

// Classifier asks the language model to label a chat message.
type Classifier struct {
	gateway llm.Gateway
	log     *zap.Logger
}

func NewClassifier(gateway llm.Gateway, log *zap.Logger) *Classifier {
	return &Classifier{gateway: gateway, log: log.Named("intent_classifier")}
}

// Classify returns the raw model verdict. Gateway failures propagate so
// the resolver can switch to the regex fallback; a malformed reply is
// treated the same way.
func (c *Classifier) Classify(ctx context.Context, message string, mode Mode) (Result, error) {
	input := message
	if mode != ModeUnspecified {
		input = fmt.Sprintf("[mode: %s] %s", mode, message)
	}

	reply, err := c.gateway.Complete(ctx, classifierSystemPrompt, input)
	if err != nil {
		return Result{}, err
	}

	parsed, err := parseClassifierReply(reply)
	if err != nil {
		c.log.Warn("classifier reply rejected", zap.Error(err))
		return Result{}, fmt.Errorf("%w: %v", llm.ErrGatewayUnavailable, err)
	}
	return parsed, nil
}

func parseClassifierReply(reply string) (Result, error) {
	cleaned := strings.TrimSpace(reply)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	var wire classifierReply
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return Result{}, fmt.Errorf("not a JSON object: %w", err)
	}

	parsed, err := Parse(wire.Intent)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Intent:     parsed,
		Confidence: clampConfidence(wire.Confidence),
		Source:     SourceLLM,
	}
	if wire.PatientName != nil {
		res.PatientName = strings.TrimSpace(*wire.PatientName)
	}
	if wire.TaskName != nil {
		res.TaskName = strings.TrimSpace(*wire.TaskName)
	}
	if wire.LabTest != nil {
		res.LabTest = strings.TrimSpace(*wire.LabTest)
	}
	if wire.LabCondition != nil {
		switch strings.ToLower(strings.TrimSpace(*wire.LabCondition)) {
		case "low":
			res.LabCondition = ConditionLow
		case "high":
			res.LabCondition = ConditionHigh
		}
	}
	return res, nil
}

func clampConfidence(c float64) float64 {
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}
