// Package reasoning wraps the external reasoning oracle behind a narrow
// request/response gateway. The workflow engine depends only on the Gateway
// interface; concrete providers are selected by configuration at startup.
package reasoning

import (
	"context"
	"errors"
)

// Kind identifies the workflow stage a request originates from. Remote
// providers ignore it; the demo provider uses it to produce deterministic
// stage-appropriate output.
type Kind string

// Request kinds, one per reasoning-backed stage.
const (
	KindTriage  Kind = "triage"
	KindExtract Kind = "extract"
	KindAnalyze Kind = "analyze"
	KindDraft   Kind = "draft"
)

// Request is the structured prompt payload sent to the oracle.
// Prompt carries the composed instruction; Payload carries the raw claim
// material the instruction refers to.
type Request struct {
	Kind      Kind
	System    string
	Prompt    string
	Payload   string
	MaxTokens int
}

// UserMessage composes the full oracle input: the instruction followed by
// the claim material it refers to. Remote providers must send this, not
// Prompt alone, or the oracle receives an instruction with nothing to act on.
func (r Request) UserMessage() string {
	if r.Payload == "" {
		return r.Prompt
	}
	return r.Prompt + "\n\n" + r.Payload
}

// Response is the oracle's structured reply.
type Response struct {
	Content string
	Model   string
}

// Gateway is the synchronous contract with the reasoning oracle.
// Implementations must return one of the sentinel errors below on failure
// so callers can distinguish recoverable conditions.
type Gateway interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Failure contract for gateway calls. The engine treats all of these as
// non-fatal to the claim and downgrades to a NEED_INFO analysis.
var (
	ErrUnavailable = errors.New("reasoning provider unavailable")
	ErrTimeout     = errors.New("reasoning provider timed out")
	ErrMalformed   = errors.New("malformed reasoning response")
)
