package tutor

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/anuvad/internal/llm"
)

// Kind names an error class on the wire.
type Kind string

const (
	KindValidation          Kind = "ValidationError"
	KindNotFound            Kind = "NotFoundError"
	KindEvaluatorFormat     Kind = "EvaluatorFormatError"
	KindEvaluatorTransport  Kind = "EvaluatorTransportError"
	KindInvariant           Kind = "InvariantViolation"
	KindGenerationExhausted Kind = "GenerationExhausted"
	KindTimeout             Kind = "Timeout"
	KindInternal            Kind = "Internal"
)

// Resources reported by NotFoundError.
const (
	ResourceLearner      = "learner"
	ResourceTrackingCode = "trackingCode"
)

// ValidationError is a missing or out-of-range request parameter.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func missing(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// NotFoundError covers unknown learners and unknown, expired or already
// consumed tracking codes.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Resource == ResourceTrackingCode {
		return fmt.Sprintf("tracking code %q is invalid or expired", e.Key)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// EvaluatorFormatError means the model's reply could not be parsed into the
// expected shape, even after retrying.
type EvaluatorFormatError struct {
	Raw string
	Err error
}

func (e *EvaluatorFormatError) Error() string {
	return fmt.Sprintf("evaluator returned malformed output: %v", e.Err)
}

func (e *EvaluatorFormatError) Unwrap() error { return e.Err }

// EvaluatorTransportError means the model could not be reached.
type EvaluatorTransportError struct {
	Err error
}

func (e *EvaluatorTransportError) Error() string {
	return fmt.Sprintf("evaluator unavailable: %v", e.Err)
}

func (e *EvaluatorTransportError) Unwrap() error { return e.Err }

// InvariantViolation is state that must never happen, such as a tracking
// code collision.
type InvariantViolation struct {
	What string
	Err  error
}

func (e *InvariantViolation) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invariant violated: %s: %v", e.What, e.Err)
	}
	return "invariant violated: " + e.What
}

func (e *InvariantViolation) Unwrap() error { return e.Err }

// GenerationExhaustedError means every attempt to get a fresh sentence
// produced a duplicate or an unusable reply.
type GenerationExhaustedError struct {
	Attempts int
	Last     error
}

func (e *GenerationExhaustedError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("no new sentence after %d attempts: %v", e.Attempts, e.Last)
	}
	return fmt.Sprintf("no new sentence after %d attempts", e.Attempts)
}

func (e *GenerationExhaustedError) Unwrap() error { return e.Last }

// Is lets callers test for ErrGenerationExhausted without the struct.
func (e *GenerationExhaustedError) Is(target error) bool {
	return target == ErrGenerationExhausted
}

var (
	// ErrGenerationExhausted matches any *GenerationExhaustedError.
	ErrGenerationExhausted = errors.New("sentence generation exhausted")

	// ErrTimeout wraps calls that ran past the request deadline.
	ErrTimeout = errors.New("evaluator call timed out")
)

// KindOf classifies err. Unknown errors are KindInternal.
func KindOf(err error) Kind {
	var (
		ve  *ValidationError
		nf  *NotFoundError
		ge  *GenerationExhaustedError
		fe  *EvaluatorFormatError
		te  *EvaluatorTransportError
		inv *InvariantViolation
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &nf):
		return KindNotFound
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.As(err, &ge):
		return KindGenerationExhausted
	case errors.As(err, &fe):
		return KindEvaluatorFormat
	case errors.As(err, &te):
		return KindEvaluatorTransport
	case errors.As(err, &inv):
		return KindInvariant
	}
	return KindInternal
}

// Retryable reports whether a client may simply resend the request.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindEvaluatorTransport, KindGenerationExhausted:
		return true
	}
	return false
}

// classify maps an evaluator failure onto the tutor's error kinds.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var inv *llm.ErrInvalidResponse
	if errors.As(err, &inv) {
		return &EvaluatorFormatError{Raw: inv.Raw(), Err: err}
	}
	return &EvaluatorTransportError{Err: err}
}
