package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/medassist/internal/domain/report"
)

const sampleReport = `
Name: Mr. SURYANSH SINGH   Age: 34 Years   Gender: Male
Lab No: MB1092   Sample Collected: 12/03/2025

COMPLETE BLOOD COUNT
Hemoglobin: 9.50 g/dL (13 – 17)
PCV: 38 % (40 – 50)
TLC: 12,500 /cmm (4,400 – 11,000)
Platelet Count: 2.1 lakh/mm³ (1.5 – 4.5)
Neutrophils: 72 %
Lymphocytes: 20 %

WIDAL TEST
S. Typhi TO: 1:160
S. Typhi TH: 1:80

MALARIA
No malarial parasite seen

URINE ROUTINE EXAMINATION
Colour: Pale Yellow Pale Yellow
Glucose: Nil
Protein: Absent
Pus cells: 2-4 /hpf
`

func newTestExtractor(t *testing.T) *PatternExtractor {
	t.Helper()
	kb := DefaultKnowledgeBase()
	require.NoError(t, kb.Validate())
	return NewPatternExtractor(kb, DefaultContextWindow)
}

func findField(fields []report.Field, test string) *report.Field {
	for i := range fields {
		if fields[i].Test == test {
			return &fields[i]
		}
	}
	return nil
}

func TestExtractPatientInfo(t *testing.T) {
	panel := newTestExtractor(t).Extract(sampleReport)

	assert.Equal(t, "Mr. Suryansh Singh", panel.PatientInfo.Name)
	assert.Equal(t, "34", panel.PatientInfo.Age)
	assert.Equal(t, "Male", panel.PatientInfo.Gender)
	assert.Equal(t, "MB1092", panel.PatientInfo.LabNo)
	assert.Equal(t, "12/03/2025", panel.PatientInfo.SampleCollected)
}

func TestExtractHemoglobinLowAgainstInlineRange(t *testing.T) {
	panel := newTestExtractor(t).Extract(sampleReport)

	hb := findField(panel.CBCHemogram.RBCMetrics, "Hemoglobin")
	require.NotNil(t, hb)
	assert.Equal(t, "9.50 g/dL", hb.Result)
	assert.Equal(t, "13 – 17", hb.Reference)
	assert.Equal(t, report.StatusLow, hb.Status)
	require.NotNil(t, hb.Span)
	assert.Less(t, hb.Span.Start, hb.Span.End)
}

func TestExtractTLCHighKeepsThousandsSeparators(t *testing.T) {
	panel := newTestExtractor(t).Extract(sampleReport)

	tlc := panel.CBCHemogram.WBCDifferential.TLC
	require.NotNil(t, tlc)
	assert.Equal(t, "12,500 /cmm", tlc.Result)
	assert.Equal(t, "4,400 – 11,000", tlc.Reference)
	assert.Equal(t, report.StatusHigh, tlc.Status)
}

func TestExtractFallsBackToKnowledgeBaseRange(t *testing.T) {
	panel := newTestExtractor(t).Extract("Hemoglobin: 14 g/dL\n")

	hb := findField(panel.CBCHemogram.RBCMetrics, "Hemoglobin")
	require.NotNil(t, hb)
	assert.Equal(t, "13 – 17", hb.Reference)
	assert.Equal(t, report.StatusNormal, hb.Status)
}

func TestExtractDifferentialStaysParallel(t *testing.T) {
	panel := newTestExtractor(t).Extract(sampleReport)

	diff := panel.CBCHemogram.WBCDifferential.DifferentialPercent
	require.Len(t, diff, 2)
	assert.Equal(t, report.CellCount{Type: "Neutrophils", Value: "72"}, diff[0])
	assert.Equal(t, report.CellCount{Type: "Lymphocytes", Value: "20"}, diff[1])
}

func TestExtractWidalTiters(t *testing.T) {
	panel := newTestExtractor(t).Extract(sampleReport)

	widal := panel.InfectionScreens.Widal
	require.Len(t, widal, 2)

	to := widal[0]
	assert.Equal(t, "1:160", to.Result)
	assert.Equal(t, "Significant", to.Significance)
	assert.Equal(t, report.StatusPositive, to.Status)

	th := widal[1]
	assert.Equal(t, "1:80", th.Result)
	assert.Equal(t, "Not significant", th.Significance)
	assert.Equal(t, report.StatusNegative, th.Status)
}

func TestExtractMalariaDefaultsNegative(t *testing.T) {
	pe := newTestExtractor(t)

	// Explicit negative wording
	panel := pe.Extract(sampleReport)
	assert.Equal(t, "No malarial parasite seen", panel.InfectionScreens.Malaria.Result)
	assert.Equal(t, report.StatusNegative, panel.InfectionScreens.Malaria.Status)

	// No malaria section at all
	panel = pe.Extract("Hemoglobin: 14 g/dL\n")
	assert.Equal(t, "No malarial parasite seen", panel.InfectionScreens.Malaria.Result)
	assert.Equal(t, report.StatusNegative, panel.InfectionScreens.Malaria.Status)
}

func TestExtractUrineNormalization(t *testing.T) {
	panel := newTestExtractor(t).Extract(sampleReport)

	colour := findField(panel.UrineRE.Physical, "Colour")
	require.NotNil(t, colour)
	assert.Equal(t, "pale yellow", colour.Result)

	glucose := findField(panel.UrineRE.Chemical, "Glucose")
	require.NotNil(t, glucose)
	assert.Equal(t, "Negative", glucose.Result)
	assert.Equal(t, report.StatusNormal, glucose.Status)

	protein := findField(panel.UrineRE.Chemical, "Protein")
	require.NotNil(t, protein)
	assert.Equal(t, "Absent", protein.Result)

	others := findField(panel.UrineRE.Microscopy, "Others")
	require.NotNil(t, others)
	assert.Equal(t, "Nil", others.Result)
	assert.Equal(t, report.StatusNormal, others.Status)
}

func TestExtractUrineBloodNeedsSeparator(t *testing.T) {
	pe := newTestExtractor(t)

	// "COMPLETE BLOOD COUNT" is a section header, not a urine strip value.
	panel := pe.Extract("COMPLETE BLOOD COUNT\nHemoglobin: 14 g/dL (13 – 17)\n")
	assert.Nil(t, findField(panel.UrineRE.Chemical, "Blood"))

	panel = pe.Extract("URINE ROUTINE EXAMINATION\nBlood: Absent\n")
	blood := findField(panel.UrineRE.Chemical, "Blood")
	require.NotNil(t, blood)
	assert.Equal(t, "Absent", blood.Result)
	assert.Equal(t, report.StatusNormal, blood.Status)
}

func TestExtractIsIdempotent(t *testing.T) {
	pe := newTestExtractor(t)
	first := pe.Extract(sampleReport)
	second := pe.Extract(sampleReport)
	assert.Equal(t, first, second)
}

func TestExtractMissingTestsProduceNoFields(t *testing.T) {
	panel := newTestExtractor(t).Extract("nothing clinical here")
	assert.Empty(t, panel.CBCHemogram.RBCMetrics)
	assert.Nil(t, panel.CBCHemogram.WBCDifferential.TLC)
	assert.Empty(t, panel.LiverFunction)
}

func TestCollapseRepeats(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Pale Yellow Pale Yellow", "Pale Yellow"},
		{"Yellow Yellow", "Yellow"},
		{"Clear", "Clear"},
		{"Pale Yellow", "Pale Yellow"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, collapseRepeats(tc.in), tc.in)
	}
}

func TestAddThousands(t *testing.T) {
	assert.Equal(t, "12,500", addThousands("12500"))
	assert.Equal(t, "4,400 – 11,000", addThousands("4400 – 11000"))
	assert.Equal(t, "950", addThousands("950"))
}
