package extract

import (
	"fmt"
	"strings"

	"github.com/medassist/medassist/internal/domain/report"
)

// SynthesizeHighlights derives the key_highlights list from the panel
// alone, so a refined panel and a pattern-only panel produce comparable
// summaries. Always called after refinement to overwrite whatever the
// model put there.
func SynthesizeHighlights(panel *report.Panel) []string {
	highlights := []string{}

	if h := tlcHighlight(panel.CBCHemogram.WBCDifferential.TLC); h != "" {
		highlights = append(highlights, h)
	}
	if h := rbcHighlight(panel.CBCHemogram.RBCMetrics); h != "" {
		highlights = append(highlights, h)
	}
	if h := plateletHighlight(panel.CBCHemogram.Platelets); h != "" {
		highlights = append(highlights, h)
	}
	highlights = append(highlights, widalHighlights(panel.InfectionScreens.Widal)...)
	if panel.InfectionScreens.Malaria.Status == report.StatusNegative {
		highlights = append(highlights, "No malarial parasites detected.")
	}
	highlights = append(highlights, markerHighlights("Liver function", panel.LiverFunction)...)
	highlights = append(highlights, markerHighlights("Inflammation marker", panel.InflammationMarker)...)
	if h := urineHighlight(panel.UrineRE); h != "" {
		highlights = append(highlights, h)
	}

	return highlights
}

func tlcHighlight(tlc *report.Field) string {
	if tlc == nil {
		return ""
	}
	switch tlc.Status {
	case report.StatusHigh:
		return fmt.Sprintf("TLC slightly high (%s) → mild infection likely.", tlc.Result)
	case report.StatusLow:
		return fmt.Sprintf("TLC low (%s) → leukopenia, consider follow-up.", tlc.Result)
	}
	return ""
}

func rbcHighlight(metrics []report.Field) string {
	if len(metrics) == 0 {
		return ""
	}
	abnormal := []string{}
	for _, f := range metrics {
		if f.Status != report.StatusNormal {
			abnormal = append(abnormal, fmt.Sprintf("%s %s (%s)", f.Test, strings.ToLower(string(f.Status)), f.Result))
		}
	}
	if len(abnormal) == 0 {
		return "RBC profile within normal limits."
	}
	return "RBC profile: " + strings.Join(abnormal, ", ") + "."
}

func plateletHighlight(platelets []report.Field) string {
	for _, f := range platelets {
		if f.Test != "Platelet Count" {
			continue
		}
		switch f.Status {
		case report.StatusNormal:
			return "Platelet count normal."
		case report.StatusLow:
			return fmt.Sprintf("Platelet count low (%s) → thrombocytopenia.", f.Result)
		case report.StatusHigh:
			return fmt.Sprintf("Platelet count high (%s).", f.Result)
		}
	}
	return ""
}

func widalHighlights(results []report.WidalResult) []string {
	out := []string{}
	for _, r := range results {
		if r.Status == report.StatusPositive {
			out = append(out, fmt.Sprintf("Widal %s significant at %s → possible typhoid exposure.", r.Antigen, r.Result))
		}
	}
	return out
}

func markerHighlights(label string, fields []report.Field) []string {
	out := []string{}
	for _, f := range fields {
		if f.Status == report.StatusHigh {
			out = append(out, fmt.Sprintf("%s %s elevated (%s).", label, f.Test, f.Result))
		}
	}
	return out
}

func urineHighlight(u report.UrineRE) string {
	total := len(u.Physical) + len(u.Chemical) + len(u.Microscopy)
	if total == 0 {
		return ""
	}
	for _, set := range [][]report.Field{u.Chemical, u.Microscopy} {
		for _, f := range set {
			if f.Status == report.StatusAbnormal {
				return fmt.Sprintf("Urine R/E: %s abnormal (%s).", f.Test, f.Result)
			}
		}
	}
	return "Urine routine examination unremarkable."
}
