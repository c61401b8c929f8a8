package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medassist/medassist/internal/domain/report"
)

type rangeKind int

const (
	rangeInterval rangeKind = iota // lo – hi
	rangeBelow                     // <hi: High when value >= hi
	rangeAbove                     // >lo: Low when value <= lo
)

// Range is a parsed reference range in one of the three supported shapes.
type Range struct {
	kind rangeKind
	lo   float64
	hi   float64
}

var (
	intervalRe = regexp.MustCompile(`([\d.]+)\s*(?:[-–—]|to)\s*([\d.]+)`)
	belowRe    = regexp.MustCompile(`^<\s*([\d.]+)`)
	aboveRe    = regexp.MustCompile(`^>\s*([\d.]+)`)
)

// ParseRange parses a reference range string. Thousands separators are
// stripped before parsing; trailing unit text ("4.5 lakh") is tolerated.
func ParseRange(s string) (Range, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if clean == "" {
		return Range{}, fmt.Errorf("empty reference range")
	}

	if m := belowRe.FindStringSubmatch(clean); m != nil {
		hi, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Range{}, fmt.Errorf("parsing reference range %q: %w", s, err)
		}
		return Range{kind: rangeBelow, hi: hi}, nil
	}
	if m := aboveRe.FindStringSubmatch(clean); m != nil {
		lo, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Range{}, fmt.Errorf("parsing reference range %q: %w", s, err)
		}
		return Range{kind: rangeAbove, lo: lo}, nil
	}
	if m := intervalRe.FindStringSubmatch(clean); m != nil {
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return Range{}, fmt.Errorf("parsing reference range %q", s)
		}
		if lo > hi {
			return Range{}, fmt.Errorf("reference range %q: lower bound above upper", s)
		}
		return Range{kind: rangeInterval, lo: lo, hi: hi}, nil
	}

	return Range{}, fmt.Errorf("unrecognized reference range %q", s)
}

// Classify labels a numeric value against the range. Values exactly on
// an interval boundary are Normal.
func (r Range) Classify(value float64) report.Status {
	switch r.kind {
	case rangeBelow:
		if value >= r.hi {
			return report.StatusHigh
		}
		return report.StatusNormal
	case rangeAbove:
		if value <= r.lo {
			return report.StatusLow
		}
		return report.StatusNormal
	default:
		if value > r.hi {
			return report.StatusHigh
		}
		if value < r.lo {
			return report.StatusLow
		}
		return report.StatusNormal
	}
}

// classifyValue parses a numeric display value (commas allowed) and
// classifies it against a reference range string. An unparseable range
// never reaches here in production: the knowledge base is validated at
// startup and inline ranges are only accepted when they parse.
func classifyValue(display, refRange string) report.Status {
	r, err := ParseRange(refRange)
	if err != nil {
		return report.StatusNormal
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(display, ",", ""), 64)
	if err != nil {
		return report.StatusNormal
	}
	return r.Classify(v)
}

var negativeWords = []string{"negative", "absent", "nil", "none", "not seen", "no growth", "normal"}

// ClassifyQualitative maps a non-numeric result to a status. Negative
// variants normalize to Negative; explicit severity keywords override;
// anything else is Abnormal.
func ClassifyQualitative(result string) report.Status {
	r := strings.ToLower(strings.TrimSpace(result))
	if r == "" {
		return report.StatusNotTested
	}
	for _, w := range negativeWords {
		if strings.Contains(r, w) {
			return report.StatusNegative
		}
	}
	if strings.Contains(r, "high") || strings.Contains(r, "elevated") {
		return report.StatusHigh
	}
	if strings.Contains(r, "low") || strings.Contains(r, "decreased") {
		return report.StatusLow
	}
	return report.StatusAbnormal
}
