package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medassist/medassist/internal/domain/report"
)

// DefaultContextWindow is how many characters around a value match are
// searched for an inline reference range before falling back to the
// knowledge-base default. Empirically tuned; see the scenario tests.
const DefaultContextWindow = 150

// PatternExtractor scans report text against the knowledge base and
// produces a partial panel that the refiner may later complete.
// Stateless apart from the read-only knowledge base; safe for
// concurrent use.
type PatternExtractor struct {
	kb     *KnowledgeBase
	window int
}

func NewPatternExtractor(kb *KnowledgeBase, window int) *PatternExtractor {
	if window <= 0 {
		window = DefaultContextWindow
	}
	return &PatternExtractor{kb: kb, window: window}
}

// Extract runs one pass over the text. Re-running on identical input
// yields identical output; a test with no matching alias simply
// produces no field.
func (pe *PatternExtractor) Extract(text string) *report.Panel {
	panel := report.NewPanel()

	panel.PatientInfo = pe.extractPatientInfo(text)
	pe.extractCBC(text, panel)
	pe.extractUrine(text, panel)
	pe.extractInfections(text, panel)
	panel.LiverFunction = pe.extractQuantitativeSet(text, pe.kb.LiverMarkers)
	panel.InflammationMarker = pe.extractQuantitativeSet(text, pe.kb.InflammationMarkers)

	return panel
}

// valueMatch is one captured value with its source location.
type valueMatch struct {
	value string
	unit  string
	start int
	end   int
}

// unitAlternates maps a canonical unit to the spellings seen in the wild.
var unitAlternates = map[string][]string{
	"g/dL":     {"g/dL", "g/dl", "g%", "gm/dl", "gm%"},
	"%":        {"%"},
	"mill/mm³": {"mill/mm³", "mill/mm3", "mill/cumm", "million/µl", "million/ul"},
	"fL":       {"fL", "fl"},
	"pg":       {"pg"},
	"/cmm":     {"/cmm", "/mm³", "/mm3", "/µl", "/ul", "cells/cmm"},
	"lakh/mm³": {"lakh/mm³", "lakh/mm3", "lakh", "/mm³", "/mm3"},
	"mm/hr":    {"mm/hr", "mm/h", "mm 1st hr"},
	"U/L":      {"U/L", "u/l", "IU/L", "iu/l"},
	"mg/L":     {"mg/L", "mg/l", "mg/dL", "mg/dl"},
}

func unitPattern(unit string) string {
	alts := unitAlternates[unit]
	if len(alts) == 0 {
		alts = []string{unit}
	}
	quoted := make([]string, len(alts))
	for i, a := range alts {
		quoted[i] = regexp.QuoteMeta(a)
	}
	return "(" + strings.Join(quoted, "|") + ")"
}

const numberPattern = `(\d+(?:,\d{3})*(?:\.\d+)?)`

// matchQuantitative tries the ordered template list for each alias of a
// definition and returns the first hit: colon-separated first, then a
// "Count"-suffixed form, then plain whitespace separation.
func matchQuantitative(text string, def *TestDefinition) (valueMatch, bool) {
	up := unitPattern(def.Unit)
	for _, alias := range def.Aliases {
		a := regexp.QuoteMeta(alias)
		templates := []string{
			`(?i)\b` + a + `\s*[:\-]\s*` + numberPattern + `\s*` + up,
			`(?i)\b` + a + `\s+Count\s*[:\-]?\s*` + numberPattern + `\s*` + up,
			`(?i)\b` + a + `\s+` + numberPattern + `\s*` + up,
		}
		for _, tpl := range templates {
			re := regexp.MustCompile(tpl)
			if loc := re.FindStringSubmatchIndex(text); loc != nil {
				m := re.FindStringSubmatch(text)
				return valueMatch{value: m[1], unit: m[2], start: loc[0], end: loc[1]}, true
			}
		}
	}
	return valueMatch{}, false
}

// referenceFor looks for an inline reference range near a value match
// and falls back to defaultRange. The text after the value is searched
// first since ranges trail their value on the same line; the text
// before it is a fallback for layouts that put the range column first.
func (pe *PatternExtractor) referenceFor(text string, start, end int, defaultRange string) string {
	lo := start - pe.window
	if lo < 0 {
		lo = 0
	}
	hi := end + pe.window
	if hi > len(text) {
		hi = len(text)
	}
	if ref, ok := findReference(text[end:hi]); ok {
		return ref
	}
	if ref, ok := findReference(text[lo:start]); ok {
		return ref
	}
	return defaultRange
}

var (
	refParenRe    = regexp.MustCompile(`\(\s*([\d.,]+)\s*[-–—]\s*([\d.,]+)`)
	refCloseRe    = regexp.MustCompile(`([\d.,]+)\s*[-–—]\s*([\d.,]+)\s*\)`)
	refIntervalRe = regexp.MustCompile(`([\d,]+(?:\.\d+)?)\s*[-–—]\s*([\d,]+(?:\.\d+)?)`)
	refBelowRe    = regexp.MustCompile(`<\s*([\d.]+)`)
	refAboveRe    = regexp.MustCompile(`>\s*([\d.]+)`)
	refToRe       = regexp.MustCompile(`([\d.]+)\s+to\s+([\d.]+)`)
)

// findReference searches the context for an inline reference range in
// one of the three supported shapes and returns it normalized.
func findReference(context string) (string, bool) {
	type pair struct {
		re   *regexp.Regexp
		form string // "interval", "below", "above"
	}
	for _, p := range []pair{
		{refParenRe, "interval"},
		{refCloseRe, "interval"},
		{refIntervalRe, "interval"},
		{refBelowRe, "below"},
		{refAboveRe, "above"},
		{refToRe, "interval"},
	} {
		m := p.re.FindStringSubmatch(context)
		if m == nil {
			continue
		}
		var candidate string
		switch p.form {
		case "below":
			candidate = "<" + m[1]
		case "above":
			candidate = ">" + m[1]
		default:
			lo := strings.ReplaceAll(m[1], ",", "")
			hi := strings.ReplaceAll(m[2], ",", "")
			candidate = lo + " – " + hi
		}
		if _, err := ParseRange(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

// addThousands inserts thousands separators into every integer of four
// or more digits in s.
var bigIntRe = regexp.MustCompile(`\b\d{4,}\b`)

func addThousands(s string) string {
	return bigIntRe.ReplaceAllStringFunc(s, func(num string) string {
		n, err := strconv.Atoi(num)
		if err != nil {
			return num
		}
		out := strconv.Itoa(n)
		for i := len(out) - 3; i > 0; i -= 3 {
			out = out[:i] + "," + out[i:]
		}
		return out
	})
}

// collapseRepeats removes contiguously repeated tokens and repeated
// phrases ("Pale Yellow Pale Yellow" becomes "Pale Yellow"), keeping
// the first occurrence.
func collapseRepeats(s string) string {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return strings.TrimSpace(s)
	}
	// Whole-phrase repetition first
	if len(parts)%2 == 0 {
		half := len(parts) / 2
		same := true
		for i := 0; i < half; i++ {
			if !strings.EqualFold(parts[i], parts[half+i]) {
				same = false
				break
			}
		}
		if same {
			parts = parts[:half]
		}
	}
	out := parts[:1]
	for _, p := range parts[1:] {
		if strings.EqualFold(p, out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, " ")
}

// ---------------------------------------------------------------------------
// Patient info
// ---------------------------------------------------------------------------

var (
	titledNameRe = regexp.MustCompile(`(?i)(Mr|Mrs|Ms|Dr|Miss|Master)\.?\s+([A-Z][A-Za-z]+(?:\s+[A-Z][A-Za-z]+)*)`)
	plainNameRe  = regexp.MustCompile(`([A-Z][a-z]+\s+[A-Z][a-z]+)\s+Age`)
	nameTrailRe  = regexp.MustCompile(`(?i)\s+(Age|Gender|Lab|Years?|Year).*$`)

	ageRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Age\s*[:\-]?\s*(\d{1,3})`),
		regexp.MustCompile(`(?i)(\d{1,3})\s+Years?\s+Gender`),
	}
	genderRe = regexp.MustCompile(`(?i)(?:Gender|Sex)\s*[:\-]?\s*(Male|Female|M\b|F\b)`)
	labNoRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Lab\s+No\.?\s*[:\-]?\s*([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)Lab\s+Number\s*[:\-]?\s*([A-Z0-9]+)`),
	}
	collectedRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Sample\s+Collected\s*[:\-]?\s*([\d/]+)`),
		regexp.MustCompile(`(?i)Collected\s*[:\-]?\s*([\d/]+)`),
		regexp.MustCompile(`(?i)Reported\s*[:\-]?\s*([\d/]+)`),
	}
)

func titleCaseName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (pe *PatternExtractor) extractPatientInfo(text string) report.PatientInfo {
	var info report.PatientInfo

	if m := titledNameRe.FindStringSubmatch(text); m != nil {
		title := strings.TrimSuffix(m[1], ".")
		title = strings.ToUpper(title[:1]) + strings.ToLower(title[1:])
		name := nameTrailRe.ReplaceAllString(m[2], "")
		name = collapseRepeats(name)
		if name != "" {
			info.Name = title + ". " + titleCaseName(name)
		}
	} else if m := plainNameRe.FindStringSubmatch(text); m != nil {
		info.Name = titleCaseName(m[1])
	}

	for _, re := range ageRes {
		if m := re.FindStringSubmatch(text); m != nil {
			info.Age = m[1]
			break
		}
	}
	if m := genderRe.FindStringSubmatch(text); m != nil {
		if strings.HasPrefix(strings.ToUpper(m[1]), "M") {
			info.Gender = "Male"
		} else {
			info.Gender = "Female"
		}
	}
	for _, re := range labNoRes {
		if m := re.FindStringSubmatch(text); m != nil {
			info.LabNo = m[1]
			break
		}
	}
	for _, re := range collectedRes {
		if m := re.FindStringSubmatch(text); m != nil {
			info.SampleCollected = m[1]
			break
		}
	}

	return info
}

// ---------------------------------------------------------------------------
// CBC / Hemogram
// ---------------------------------------------------------------------------

func (pe *PatternExtractor) quantitativeField(text string, def *TestDefinition) (report.Field, bool) {
	m, ok := matchQuantitative(text, def)
	if !ok {
		return report.Field{}, false
	}
	ref := pe.referenceFor(text, m.start, m.end, def.RefRange)
	return report.Field{
		Test:      def.Name,
		Result:    m.value + " " + m.unit,
		Reference: ref,
		Status:    classifyValue(m.value, ref),
		Span:      &report.Span{Start: m.start, End: m.end},
	}, true
}

// extractQuantitativeSet collects at most one field per canonical test
// name, first match wins.
func (pe *PatternExtractor) extractQuantitativeSet(text string, defs []TestDefinition) []report.Field {
	fields := []report.Field{}
	for i := range defs {
		if f, ok := pe.quantitativeField(text, &defs[i]); ok {
			if !containsTest(fields, f.Test) {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

func containsTest(fields []report.Field, name string) bool {
	for _, f := range fields {
		if f.Test == name {
			return true
		}
	}
	return false
}

func (pe *PatternExtractor) extractCBC(text string, panel *report.Panel) {
	panel.CBCHemogram.RBCMetrics = pe.extractQuantitativeSet(text, pe.kb.RBCMetrics)
	panel.CBCHemogram.Platelets = pe.extractQuantitativeSet(text, pe.kb.Platelets)

	if f, ok := pe.quantitativeField(text, &pe.kb.ESR); ok {
		panel.CBCHemogram.ESR = []report.Field{f}
	}

	// TLC keeps its thousands separators in both the displayed result
	// and the displayed reference range.
	if m, ok := matchQuantitative(text, &pe.kb.TLC); ok {
		ref := pe.referenceFor(text, m.start, m.end, pe.kb.TLC.RefRange)
		status := classifyValue(m.value, ref)
		display := m.value
		if !strings.Contains(display, ",") {
			display = addThousands(display)
		}
		panel.CBCHemogram.WBCDifferential.TLC = &report.Field{
			Test:      pe.kb.TLC.Name,
			Result:    display + " " + m.unit,
			Reference: addThousands(ref),
			Status:    status,
			Span:      &report.Span{Start: m.start, End: m.end},
		}
	}

	// Differential percentages and absolute counts stay parallel,
	// keyed by cell type.
	for _, cell := range pe.kb.DifferentialCells {
		pctRe := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(cell) + `\s*[:\-]?\s*(\d+(?:\.\d+)?)\s*%`)
		if m := pctRe.FindStringSubmatch(text); m != nil {
			panel.CBCHemogram.WBCDifferential.DifferentialPercent = append(
				panel.CBCHemogram.WBCDifferential.DifferentialPercent,
				report.CellCount{Type: cell, Value: m[1]},
			)
		}
		absRe := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(cell) + `\s*[:\-]?\s*(\d+(?:,\d{3})*)\s*(?:/cmm|/mm³|/mm3)`)
		if m := absRe.FindStringSubmatch(text); m != nil {
			panel.CBCHemogram.WBCDifferential.AbsoluteCounts = append(
				panel.CBCHemogram.WBCDifferential.AbsoluteCounts,
				report.CellCount{Type: cell, Value: m[1]},
			)
		}
	}
}

// ---------------------------------------------------------------------------
// Urine R/E
// ---------------------------------------------------------------------------

var (
	parenRe     = regexp.MustCompile(`\([^)]*\)`)
	hpfNoiseRe  = regexp.MustCompile(`\d+-\d+\s+(?:WBC|Epi\s+cells?)/hpf`)
	digitsRe    = regexp.MustCompile(`\d`)
	rangeLikeRe = regexp.MustCompile(`^\d+\s*[-–]\s*\d+$`)
)

// qualitativeResult requires an explicit ":" or "-" separator so that
// section headers such as "COMPLETE BLOOD COUNT" never read as a value
// for the urine "Blood" strip.
func qualitativeResult(text string, def *TestDefinition) (string, bool) {
	for _, alias := range def.Aliases {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b\s*[:\-]\s*([^\n.(]+)`)
		if m := re.FindStringSubmatch(text); m != nil {
			return collapseRepeats(strings.TrimSpace(m[1])), true
		}
	}
	return "", false
}

func urineStatus(result string) report.Status {
	r := strings.ToLower(result)
	for _, w := range []string{"negative", "normal", "absent", "nil", "none"} {
		if strings.Contains(r, w) {
			return report.StatusNormal
		}
	}
	if rangeLikeRe.MatchString(strings.TrimSpace(result)) {
		return report.StatusNormal
	}
	return report.StatusAbnormal
}

func (pe *PatternExtractor) extractUrine(text string, panel *report.Panel) {
	for i := range pe.kb.UrinePhysical {
		def := &pe.kb.UrinePhysical[i]
		result, ok := qualitativeResult(text, def)
		if !ok || containsTest(panel.UrineRE.Physical, def.Name) {
			continue
		}
		switch def.Name {
		case "pH":
			// Keep the parenthetical reference with the value
			re := regexp.MustCompile(`(?i)\bpH\b\s*[:\-]?\s*(\d+(?:\.\d+)?)(?:\s*\(([^)]+)\))?`)
			if m := re.FindStringSubmatch(text); m != nil {
				result = m[1]
				if m[2] != "" {
					result = fmt.Sprintf("%s (%s)", m[1], m[2])
				}
			}
		case "Colour":
			result = strings.ToLower(strings.TrimSpace(parenRe.ReplaceAllString(result, "")))
		default:
			result = strings.TrimSpace(parenRe.ReplaceAllString(result, ""))
		}
		if result == "" {
			continue
		}
		panel.UrineRE.Physical = append(panel.UrineRE.Physical, report.Field{
			Test: def.Name, Result: result, Status: report.StatusNormal,
		})
	}

	for i := range pe.kb.UrineChemical {
		def := &pe.kb.UrineChemical[i]
		result, ok := qualitativeResult(text, def)
		if !ok || containsTest(panel.UrineRE.Chemical, def.Name) {
			continue
		}
		result = strings.TrimSpace(parenRe.ReplaceAllString(result, ""))
		lower := strings.ToLower(result)
		switch {
		case def.Name == "Blood" && digitsRe.MatchString(result):
			// A numeric "Blood" value in urine chemistry is a misread
			// of a nearby count; report absence instead.
			result = "Absent"
		case strings.Contains(lower, "nil") || strings.Contains(lower, "negative"):
			result = "Negative"
		case strings.Contains(lower, "absent"):
			result = "Absent"
		case strings.Contains(lower, "normal"):
			result = "Normal"
		}
		if result == "" {
			continue
		}
		panel.UrineRE.Chemical = append(panel.UrineRE.Chemical, report.Field{
			Test: def.Name, Result: result, Status: urineStatus(result),
		})
	}

	for i := range pe.kb.UrineMicroscopy {
		def := &pe.kb.UrineMicroscopy[i]
		result, ok := qualitativeResult(text, def)
		if !ok || containsTest(panel.UrineRE.Microscopy, def.Name) {
			continue
		}
		result = strings.TrimSpace(parenRe.ReplaceAllString(result, ""))
		result = strings.TrimSpace(hpfNoiseRe.ReplaceAllString(result, ""))
		lower := strings.ToLower(result)
		switch {
		case strings.Contains(lower, "nil") || result == "":
			result = "Nil"
		case strings.Contains(lower, "none"):
			result = "None"
		}
		panel.UrineRE.Microscopy = append(panel.UrineRE.Microscopy, report.Field{
			Test: def.Name, Result: result, Status: urineStatus(result),
		})
	}

	if !containsTest(panel.UrineRE.Microscopy, "Others") {
		panel.UrineRE.Microscopy = append(panel.UrineRE.Microscopy, report.Field{
			Test: "Others", Result: "Nil", Status: report.StatusNormal,
		})
	}
}

// ---------------------------------------------------------------------------
// Infection screens
// ---------------------------------------------------------------------------

var (
	noParasiteRe = regexp.MustCompile(`(?i)No\s+malarial?\s+parasite\s+seen`)
	titerValueRe = regexp.MustCompile(`(?i)^(?:1\s*:\s*)?(\d+)$`)
)

const malariaNegativeResult = "No malarial parasite seen"

func (pe *PatternExtractor) extractInfections(text string, panel *report.Panel) {
	panel.InfectionScreens.Malaria = pe.extractMalaria(text)

	for _, ag := range pe.kb.WidalAntigens {
		if widalContains(panel.InfectionScreens.Widal, ag.Name) {
			continue
		}
		for _, alias := range ag.Aliases {
			re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b\s*(?:\([^)]*\))?\s*[:\-]\s*((?:1\s*:\s*)?\d+|No\s+agglutination)`)
			m := re.FindStringSubmatch(text)
			if m == nil {
				continue
			}
			raw := strings.TrimSpace(m[1])
			if tm := titerValueRe.FindStringSubmatch(raw); tm != nil {
				titer, _ := strconv.Atoi(tm[1])
				significant := ag.SignificantFrom > 0 && titer >= ag.SignificantFrom
				res := report.WidalResult{
					Antigen:      ag.Name,
					Result:       fmt.Sprintf("1:%d", titer),
					Significance: "Not significant",
					Status:       report.StatusNegative,
				}
				if significant {
					res.Significance = "Significant"
					res.Status = report.StatusPositive
				}
				panel.InfectionScreens.Widal = append(panel.InfectionScreens.Widal, res)
			} else {
				panel.InfectionScreens.Widal = append(panel.InfectionScreens.Widal, report.WidalResult{
					Antigen:      ag.Name,
					Result:       "No agglutination",
					Significance: "Not significant",
					Status:       report.StatusNegative,
				})
			}
			break
		}
	}
}

func (pe *PatternExtractor) extractMalaria(text string) report.MalariaResult {
	if noParasiteRe.MatchString(text) {
		return report.MalariaResult{Result: malariaNegativeResult, Status: report.StatusNegative}
	}

	for _, alias := range pe.kb.MalariaAliases {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b\s*[:\-]\s*([^\n.]+)`)
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		result := collapseRepeats(strings.TrimSpace(m[1]))
		lower := strings.ToLower(result)
		// Section headers are not results
		if strings.Contains(lower, "identification") {
			continue
		}
		if status := ClassifyQualitative(result); status == report.StatusNegative || result == "" {
			return report.MalariaResult{Result: malariaNegativeResult, Status: report.StatusNegative}
		}
		return report.MalariaResult{Result: result, Status: report.StatusPositive}
	}

	// Absence of malaria tokens defaults to a negative screen rather
	// than an omitted section.
	return report.MalariaResult{Result: malariaNegativeResult, Status: report.StatusNegative}
}

func widalContains(results []report.WidalResult, antigen string) bool {
	for _, r := range results {
		if r.Antigen == antigen {
			return true
		}
	}
	return false
}
