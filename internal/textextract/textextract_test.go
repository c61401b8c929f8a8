package textextract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractPlainText(t *testing.T) {
	e := New(zap.NewNop())

	out, err := e.ExtractText(strings.NewReader("Hemoglobin: 14 g/dL"), "report.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hemoglobin: 14 g/dL", out)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := New(zap.NewNop())

	_, err := e.ExtractText(strings.NewReader("x"), "report.docx")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestExtractCorruptPDF(t *testing.T) {
	e := New(zap.NewNop())

	_, err := e.ExtractText(strings.NewReader("not a pdf"), "report.pdf")
	assert.Error(t, err)
}
