package llm

import (
	"context"
	"errors"
)

// ErrBadResponse marks model output that survived transport but failed the
// expected JSON contract (unparsable payload, missing fields, unknown ids).
// Callers distinguish it from transport failures with errors.Is.
var ErrBadResponse = errors.New("llm: malformed model response")

// Request carries one generation call. Image is optional; when present the
// provider must support multimodal input.
type Request struct {
	System      string
	Prompt      string
	Image       []byte
	ImageMIME   string
	Temperature float64
}

// Client defines the behaviour required by the recommendation core.
// Implementations may fail at transport level or return text that is not
// valid JSON; both are ordinary outcomes for callers.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}
