package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medassist/medassist/internal/domain/report"
)

func TestParseRangeInterval(t *testing.T) {
	tests := []struct {
		in     string
		lo, hi float64
	}{
		{"13 – 17", 13, 17},
		{"13-17", 13, 17},
		{"4,400 – 11,000", 4400, 11000},
		{"1.5 – 4.5 lakh/mm³", 1.5, 4.5},
		{"10 to 40", 10, 40},
	}
	for _, tc := range tests {
		r, err := ParseRange(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, report.StatusNormal, r.Classify(tc.lo), "lower bound of %s", tc.in)
		assert.Equal(t, report.StatusNormal, r.Classify(tc.hi), "upper bound of %s", tc.in)
		assert.Equal(t, report.StatusLow, r.Classify(tc.lo-0.01), "below %s", tc.in)
		assert.Equal(t, report.StatusHigh, r.Classify(tc.hi+0.01), "above %s", tc.in)
	}
}

func TestParseRangeOpenEnded(t *testing.T) {
	below, err := ParseRange("<41")
	require.NoError(t, err)
	assert.Equal(t, report.StatusNormal, below.Classify(40.9))
	assert.Equal(t, report.StatusHigh, below.Classify(41))

	above, err := ParseRange(">5")
	require.NoError(t, err)
	assert.Equal(t, report.StatusNormal, above.Classify(5.1))
	assert.Equal(t, report.StatusLow, above.Classify(5))
}

func TestParseRangeInvalid(t *testing.T) {
	for _, in := range []string{"", "garbage", "17 – 13"} {
		_, err := ParseRange(in)
		assert.Error(t, err, in)
	}
}

func TestClassifyQualitative(t *testing.T) {
	tests := []struct {
		in   string
		want report.Status
	}{
		{"Negative", report.StatusNegative},
		{"not seen", report.StatusNegative},
		{"Nil", report.StatusNegative},
		{"Absent", report.StatusNegative},
		{"High", report.StatusHigh},
		{"elevated", report.StatusHigh},
		{"low", report.StatusLow},
		{"decreased", report.StatusLow},
		{"", report.StatusNotTested},
		{"Trace amounts", report.StatusAbnormal},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyQualitative(tc.in), "result %q", tc.in)
	}
}
