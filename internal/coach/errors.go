package coach

import (
	"errors"
	"fmt"
)

// Kind classifies an orchestration failure for the boundary layers.
type Kind string

const (
	// KindInvalidInput marks empty or whitespace-only required text. No state
	// was mutated.
	KindInvalidInput Kind = "invalid_input"

	// KindModelNotLoaded marks a classifier whose artifact is not available.
	KindModelNotLoaded Kind = "model_not_loaded"

	// KindEngineNotInitialized marks engine use before Init completed.
	KindEngineNotInitialized Kind = "engine_not_initialized"

	// KindClassificationFailed marks a classifier failure during inference.
	// Session state is unaffected; classification happens before any append.
	KindClassificationFailed Kind = "classification_failed"

	// KindGenerationFailed marks an engine failure. The session already holds
	// the appended user turn at this point; it is not rolled back.
	KindGenerationFailed Kind = "generation_failed"

	// KindSessionFailed marks a session or archive operation failure.
	KindSessionFailed Kind = "session_failed"
)

// Error is the structured failure surfaced at the orchestrator boundary.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// KindOf returns the Kind of err if it is (or wraps) a coach Error, or the
// empty Kind otherwise.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}
