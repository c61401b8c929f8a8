package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/report"
	"github.com/medassist/medassist/internal/llm"
)

// stubGateway returns a canned reply or error.
type stubGateway struct {
	reply string
	err   error
	calls int
}

func (s *stubGateway) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func validPanelJSON(t *testing.T) string {
	t.Helper()
	panel := report.NewPanel()
	panel.PatientInfo.Name = "Mr. Suryansh Singh"
	panel.LiverFunction = []report.Field{
		{Test: "CRP", Result: "12 mg/L", Reference: "0 – 5", Status: report.StatusHigh},
	}
	data, err := json.Marshal(panel)
	require.NoError(t, err)
	return string(data)
}

func TestRefineAcceptsValidReply(t *testing.T) {
	gw := &stubGateway{reply: validPanelJSON(t)}
	r := NewRefiner(gw, zap.NewNop())

	refined, err := r.Refine(context.Background(), "text", report.NewPanel())
	require.NoError(t, err)
	assert.Equal(t, "Mr. Suryansh Singh", refined.PatientInfo.Name)
	assert.Equal(t, 1, gw.calls)
}

func TestRefineStripsCodeFences(t *testing.T) {
	gw := &stubGateway{reply: "```json\n" + validPanelJSON(t) + "\n```"}
	r := NewRefiner(gw, zap.NewNop())

	refined, err := r.Refine(context.Background(), "text", report.NewPanel())
	require.NoError(t, err)
	assert.Equal(t, "Mr. Suryansh Singh", refined.PatientInfo.Name)
}

func TestRefineRejectsMalformedReplies(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "sure, here is the panel you asked for"},
		{"missing keys", `{"patient_info": {}}`},
		{"unknown key", `{"patient_info":{},"cbc_hemogram":{"rbc_metrics":[],"wbc_differential":{"differential_percent":[],"absolute_counts":[]},"platelets":[],"esr":[]},"urine_re":{"physical":[],"chemical":[],"microscopy":[]},"infection_screens":{"malaria":{"result":"","status":""},"widal":[]},"liver_function":[],"inflammation_marker":[],"key_highlights":[],"extra":true}`},
		{"invalid status", `{"patient_info":{},"cbc_hemogram":{"rbc_metrics":[{"test":"Hemoglobin","result":"9.5 g/dL","reference":"13 – 17","status":"Critical"}],"wbc_differential":{"differential_percent":[],"absolute_counts":[]},"platelets":[],"esr":[]},"urine_re":{"physical":[],"chemical":[],"microscopy":[]},"infection_screens":{"malaria":{"result":"","status":""},"widal":[]},"liver_function":[],"inflammation_marker":[],"key_highlights":[]}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRefiner(&stubGateway{reply: tc.reply}, zap.NewNop())
			_, err := r.Refine(context.Background(), "text", report.NewPanel())
			assert.Error(t, err)
		})
	}
}

func TestRefinePropagatesGatewayError(t *testing.T) {
	r := NewRefiner(&stubGateway{err: llm.ErrGatewayUnavailable}, zap.NewNop())
	_, err := r.Refine(context.Background(), "text", report.NewPanel())
	assert.True(t, errors.Is(err, llm.ErrGatewayUnavailable))
}

func TestExtractorFallsBackToPatternPanel(t *testing.T) {
	kb := DefaultKnowledgeBase()
	pe := NewPatternExtractor(kb, DefaultContextWindow)
	refiner := NewRefiner(&stubGateway{err: llm.ErrGatewayUnavailable}, zap.NewNop())
	ex := NewExtractor(pe, refiner, zap.NewNop())

	res, err := ex.Extract(context.Background(), sampleReport)
	require.NoError(t, err)
	assert.Equal(t, SourcePattern, res.Source)
	require.NotNil(t, res.Panel.CBCHemogram.WBCDifferential.TLC)
	assert.NotEmpty(t, res.Panel.KeyHighlights)
}

func TestExtractorUsesRefinedPanel(t *testing.T) {
	kb := DefaultKnowledgeBase()
	pe := NewPatternExtractor(kb, DefaultContextWindow)
	refiner := NewRefiner(&stubGateway{reply: validPanelJSON(t)}, zap.NewNop())
	ex := NewExtractor(pe, refiner, zap.NewNop())

	res, err := ex.Extract(context.Background(), sampleReport)
	require.NoError(t, err)
	assert.Equal(t, SourceRefined, res.Source)
	assert.Equal(t, "Mr. Suryansh Singh", res.Panel.PatientInfo.Name)
	// Highlights come from the synthesizer, not from the model reply.
	assert.Contains(t, res.Panel.KeyHighlights, "Liver function CRP elevated (12 mg/L).")
}

func TestExtractorRejectsEmptyText(t *testing.T) {
	ex := NewExtractor(NewPatternExtractor(DefaultKnowledgeBase(), 0), nil, zap.NewNop())
	_, err := ex.Extract(context.Background(), "")
	assert.ErrorIs(t, err, report.ErrEmptyReportText)
}

func TestExtractorWithoutRefiner(t *testing.T) {
	ex := NewExtractor(NewPatternExtractor(DefaultKnowledgeBase(), 0), nil, zap.NewNop())
	res, err := ex.Extract(context.Background(), sampleReport)
	require.NoError(t, err)
	assert.Equal(t, SourcePattern, res.Source)
}
