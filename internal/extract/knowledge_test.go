package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKnowledgeBaseIsValid(t *testing.T) {
	kb := DefaultKnowledgeBase()
	require.NoError(t, kb.Validate())
}

func TestFindDefinition(t *testing.T) {
	kb := DefaultKnowledgeBase()

	tests := []struct {
		token string
		want  string
	}{
		{"Hemoglobin", "Hemoglobin"},
		{"Hb", "Hemoglobin"},
		{"HGB", "Hemoglobin"},
		{"Total Leukocyte Count", "TLC"},
		{"WBC", "TLC"},
		{"Platelet", "Platelet Count"},
		{"SGPT", "ALT / SGPT"},
	}
	for _, tc := range tests {
		def, ok := kb.FindDefinition(tc.token)
		require.True(t, ok, tc.token)
		assert.Equal(t, tc.want, def.Name, tc.token)
	}

	_, ok := kb.FindDefinition("Troponin")
	assert.False(t, ok)
}

func TestValidateRejectsCaseDuplicateAliases(t *testing.T) {
	kb := DefaultKnowledgeBase()
	kb.UrineMicroscopy[0].Aliases = append(kb.UrineMicroscopy[0].Aliases, "rbcs")
	assert.Error(t, kb.Validate())
}

func TestValidateRejectsBrokenRange(t *testing.T) {
	kb := DefaultKnowledgeBase()
	kb.RBCMetrics[0].RefRange = "17 – 13"
	assert.Error(t, kb.Validate())
}
