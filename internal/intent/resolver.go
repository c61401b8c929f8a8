package intent

import (
	"context"

	"go.uber.org/zap"
)

// Resolver runs the full pipeline: prefilter, then model classifier,
// then sanitizer, dropping to the regex cascade whenever the gateway
// cannot produce a verdict. It always returns a usable Result.
type Resolver struct {
	prefilter  PreFilter
	classifier *Classifier
	fallback   FallbackClassifier
	log        *zap.Logger
}

// NewResolver wires the pipeline. classifier may be nil when no model
// gateway is configured; every message then goes through the cascade.
func NewResolver(classifier *Classifier, log *zap.Logger) *Resolver {
	return &Resolver{classifier: classifier, log: log.Named("intent_resolver")}
}

func (r *Resolver) Resolve(ctx context.Context, message string, mode Mode) Result {
	if res, ok := r.prefilter.Apply(message); ok {
		return Sanitize(res)
	}

	if r.classifier != nil {
		res, err := r.classifier.Classify(ctx, message, mode)
		if err == nil {
			return Sanitize(res)
		}
		r.log.Warn("model classification unavailable, using fallback",
			zap.Error(err))
	}

	return Sanitize(r.fallback.Classify(message))
}
