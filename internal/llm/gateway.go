package llm

import (
	"context"
	"errors"
)

// ErrGatewayUnavailable wraps every failure class of the completion
// gateway: transport errors, timeouts, auth failures, empty responses.
// Callers branch on it with errors.Is and fall back to their local
// deterministic path; it is never surfaced to an end user.
var ErrGatewayUnavailable = errors.New("llm gateway unavailable")

// Gateway is the external completion service. Implementations must
// honor ctx cancellation and return an error wrapping
// ErrGatewayUnavailable on any failure.
type Gateway interface {
	// Complete sends a system and user prompt and returns the raw model
	// output. Prompts are expected to request a strict JSON object; the
	// gateway itself does no parsing.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
