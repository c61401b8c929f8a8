package extract

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/domain/report"
)

// Source records which stage produced the final panel.
type Source string

const (
	SourcePattern Source = "pattern"
	SourceRefined Source = "refined"
)

// Result is an extracted panel together with its provenance. Callers
// that need to distinguish a degraded (pattern-only) extraction from a
// model-refined one branch on Source instead of guessing from content.
type Result struct {
	Panel    *report.Panel
	Source   Source
	Duration time.Duration
}

// Extractor chains the pattern pass with the optional model refinement
// pass and regenerates highlights at the end, so key_highlights always
// reflects the panel that is actually returned.
type Extractor struct {
	pattern *PatternExtractor
	refiner *Refiner
	log     *zap.Logger
}

// NewExtractor builds the pipeline. refiner may be nil, in which case
// every extraction is pattern-only.
func NewExtractor(pattern *PatternExtractor, refiner *Refiner, log *zap.Logger) *Extractor {
	return &Extractor{pattern: pattern, refiner: refiner, log: log.Named("extractor")}
}

func (e *Extractor) Extract(ctx context.Context, text string) (*Result, error) {
	if text == "" {
		return nil, report.ErrEmptyReportText
	}
	start := time.Now()

	panel := e.pattern.Extract(text)
	source := SourcePattern

	if e.refiner != nil {
		refined, err := e.refiner.Refine(ctx, text, panel)
		if err != nil {
			e.log.Warn("refinement unavailable, keeping pattern panel", zap.Error(err))
		} else {
			panel = refined
			source = SourceRefined
		}
	}

	panel.KeyHighlights = SynthesizeHighlights(panel)
	panel.Normalize()

	return &Result{Panel: panel, Source: source, Duration: time.Since(start)}, nil
}
