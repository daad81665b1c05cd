package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimit is a 429 from the model vendor. RetryAfter is zero when the
// vendor sent no hint.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("model rate limited, retry after %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("model rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse is a reply that could not be read as the requested
// JSON shape. Content holds the reply as received.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("model reply is not the expected JSON: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// Raw returns the reply text for error payloads.
func (e *ErrInvalidResponse) Raw() string { return string(e.Content) }

// ErrProviderUnavailable covers outages, auth failures and network errors.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model provider unavailable: %v", e.Err)
	}
	return "model provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is a reply cut off at the token limit. A truncated
// verdict or sentence is never usable, so it is not retried.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("model reply truncated at the token limit after %d bytes", len(e.Content))
}

// CallError labels a failed call with what it was for, e.g.
// `grade for learner "u1" via gemini: model rate limited: ...`.
type CallError struct {
	Provider string
	Purpose  string
	Learner  string
	Err      error
}

func (e *CallError) Error() string {
	if e.Learner != "" {
		return fmt.Sprintf("%s for learner %q via %s: %v", e.Purpose, e.Learner, e.Provider, e.Err)
	}
	return fmt.Sprintf("%s via %s: %v", e.Purpose, e.Provider, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// labelError wraps err in a CallError. Context errors pass through bare so
// callers can compare them directly.
func labelError(ctx context.Context, provider string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{Provider: provider, Purpose: PurposeFrom(ctx), Learner: LearnerFrom(ctx), Err: err}
}
