package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/llm"
)

const refineSystemPrompt = `You are a medical lab report structuring assistant. You receive raw lab report text together with a partially extracted JSON panel. Correct and complete the panel using only information present in the report text. Never invent values.

Respond with a single JSON object and nothing else. The object must contain exactly these top-level keys: "patient_info", "cbc_hemogram", "urine_re", "infection_screens", "liver_function", "inflammation_marker", "key_highlights". Keep the structure of the partial panel: field objects carry "test", "result", "reference" and "status", where status is one of "Normal", "High", "Low", "Positive", "Negative", "Abnormal", "Not Tested". Preserve thousands separators in displayed results. If a section was not tested, leave it empty rather than guessing.`

var refineRequiredKeys = []string{
	"patient_info",
	"cbc_hemogram",
	"urine_re",
	"infection_screens",
	"liver_function",
	"inflammation_marker",
	"key_highlights",
}

// Refiner asks the language model to complete a pattern-extracted
// panel. Any failure (gateway down, malformed reply, schema drift)
// leaves the caller with the partial panel untouched.
type Refiner struct {
	gateway llm.Gateway
	log     *zap.Logger
}

func NewRefiner(gateway llm.Gateway, log *zap.Logger) *Refiner {
	return &Refiner{gateway: gateway, log: log.Named("refiner")}
}

// Refine returns the model-completed panel, or an error when the reply
// cannot be trusted. The input panel is never modified.
func (r *Refiner) Refine(ctx context.Context, rawText string, partial *report.Panel) (*report.Panel, error) {
	partialJSON, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("marshal partial panel: %w", err)
	}

	userPrompt := fmt.Sprintf("Report text:\n%s\n\nPartially extracted panel:\n%s", rawText, partialJSON)

	reply, err := r.gateway.Complete(ctx, refineSystemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	refined, err := parseRefinedPanel(reply)
	if err != nil {
		r.log.Warn("model reply rejected", zap.Error(err))
		return nil, err
	}
	return refined, nil
}

// parseRefinedPanel validates the reply against the closed panel
// schema. Unknown top-level keys, missing required keys and invalid
// status values all reject the reply.
func parseRefinedPanel(reply string) (*report.Panel, error) {
	cleaned := stripCodeFences(reply)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	for _, key := range refineRequiredKeys {
		if _, ok := raw[key]; !ok {
			return nil, fmt.Errorf("missing key %q", key)
		}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	dec.DisallowUnknownFields()
	var panel report.Panel
	if err := dec.Decode(&panel); err != nil {
		return nil, fmt.Errorf("decode panel: %w", err)
	}
	panel.Normalize()

	if err := validatePanel(&panel); err != nil {
		return nil, err
	}
	return &panel, nil
}

func validatePanel(panel *report.Panel) error {
	check := func(fields []report.Field, section string) error {
		for _, f := range fields {
			if f.Test == "" {
				return fmt.Errorf("%s: field with empty test name", section)
			}
			if !f.Status.IsValid() {
				return fmt.Errorf("%s: %s has invalid status %q", section, f.Test, f.Status)
			}
		}
		return nil
	}

	if tlc := panel.CBCHemogram.WBCDifferential.TLC; tlc != nil && !tlc.Status.IsValid() {
		return fmt.Errorf("tlc has invalid status %q", tlc.Status)
	}
	for _, set := range []struct {
		fields  []report.Field
		section string
	}{
		{panel.CBCHemogram.RBCMetrics, "rbc_metrics"},
		{panel.CBCHemogram.Platelets, "platelets"},
		{panel.CBCHemogram.ESR, "esr"},
		{panel.UrineRE.Physical, "urine physical"},
		{panel.UrineRE.Chemical, "urine chemical"},
		{panel.UrineRE.Microscopy, "urine microscopy"},
		{panel.LiverFunction, "liver_function"},
		{panel.InflammationMarker, "inflammation_marker"},
	} {
		if err := check(set.fields, set.section); err != nil {
			return err
		}
	}
	if m := panel.InfectionScreens.Malaria; m.Result != "" && !m.Status.IsValid() {
		return fmt.Errorf("malaria has invalid status %q", m.Status)
	}
	for _, w := range panel.InfectionScreens.Widal {
		if !w.Status.IsValid() {
			return fmt.Errorf("widal %s has invalid status %q", w.Antigen, w.Status)
		}
	}
	return nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
