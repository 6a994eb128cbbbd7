package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing key in Redis.
	RedisNotFoundMessage = "redis key not found"
	// SupervisorErrorMessage describes a failed routing decision.
	SupervisorErrorMessage = "supervisor agent error"
	// InitErrorMessage describes a failure while constructing a component.
	InitErrorMessage = "initialization error"
)

// ErrToolLoopExceeded is returned when the tool-invocation loop hits its
// iteration bound before the model stops requesting tools. It is reported
// distinctly from a plain agent error so callers can tell infinite-loop
// protection apart from an upstream failure.
var ErrToolLoopExceeded = errors.New("tool loop iteration limit exceeded")

// ErrLastThread is returned when deletion of the sole remaining thread is refused.
var ErrLastThread = errors.New("cannot delete the last remaining thread")

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapSupervisor marks a failed routing model call. Supervisor errors are
// fatal to the turn and are never defaulted to a guessed category.
func WrapSupervisor(err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, SupervisorErrorMessage)
}

// WrapAgent marks a handler-level failure outside the tool sub-loop,
// carrying the agent name for diagnostics.
func WrapAgent(agent string, err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, fmt.Sprintf("%s agent error", agent))
}

// WrapInit marks a failure at component construction time, before any turn begins.
func WrapInit(component string, err error) error {
	if err == nil {
		return nil
	}
	return New(err, http.StatusInternalServerError, fmt.Sprintf("%s: %s", InitErrorMessage, component))
}

// IsToolLoopExceeded reports whether err originated from the loop iteration bound.
func IsToolLoopExceeded(err error) bool {
	return errors.Is(err, ErrToolLoopExceeded)
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
