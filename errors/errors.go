// Package errors provides standardized error handling patterns for mediaflow components.
// It includes error classification, standard error variables, and helper functions
// for consistent error wrapping and classification across the engine.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorClass represents the classification of errors for handling purposes
type ErrorClass int

const (
	// ErrorTransient represents temporary errors that may be retried
	ErrorTransient ErrorClass = iota
	// ErrorInvalid represents errors due to invalid input or configuration
	ErrorInvalid
	// ErrorFatal represents unrecoverable errors that should stop processing
	ErrorFatal
)

// String returns the string representation of ErrorClass
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Standard error variables for common conditions
var (
	// Lifecycle errors
	ErrAlreadyStarted = errors.New("already started")
	ErrNotStarted     = errors.New("not started")
	ErrAlreadyStopped = errors.New("already stopped")
	ErrNotOpen        = errors.New("node not open")

	// Graph construction errors
	ErrInvalidTopology   = errors.New("invalid pipeline topology")
	ErrDuplicateHead     = fmt.Errorf("%w: head node already set", ErrInvalidTopology)
	ErrDuplicateTail     = fmt.Errorf("%w: tail node already set", ErrInvalidTopology)
	ErrDanglingConnector = fmt.Errorf("%w: connector added before any head or tail", ErrInvalidTopology)
	ErrUnknownRole       = fmt.Errorf("%w: unrecognized node role", ErrInvalidTopology)
	ErrMissingHead       = fmt.Errorf("%w: pipeline has no head node", ErrInvalidTopology)
	ErrMissingTail       = fmt.Errorf("%w: pipeline has no tail node", ErrInvalidTopology)
	ErrNilNode           = fmt.Errorf("%w: node is nil", ErrInvalidTopology)
	ErrDuplicateName     = errors.New("name already in use")

	// Record errors
	ErrRecordCycle    = errors.New("record cannot become its own ancestor")
	ErrParentAssigned = errors.New("record parent already assigned")
	ErrRecordReleased = errors.New("record already released")

	// Data errors
	ErrInvalidData = errors.New("invalid data format")

	// Configuration errors
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMissingConfig   = errors.New("missing required configuration")
	ErrUnknownNodeType = errors.New("unknown node type")

	// Resource errors
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrResourceBusy      = errors.New("resource busy")
)

// Sentinels that classify an error even when it was never wrapped with a class.
var (
	fatalSentinels     = []error{ErrInvalidTopology, ErrRecordCycle, ErrResourceExhausted}
	invalidSentinels   = []error{ErrInvalidData, ErrInvalidConfig, ErrMissingConfig, ErrUnknownNodeType}
	transientSentinels = []error{ErrResourceBusy, context.DeadlineExceeded, context.Canceled}

	transientHints = []string{"timeout", "temporary", "unavailable", "busy", "retry"}
)

// ClassifiedError carries a class alongside the wrapped error and the place
// it was raised.
type ClassifiedError struct {
	Class     ErrorClass
	Err       error
	Message   string
	Component string
	Operation string
}

// Error implements the error interface
func (ce *ClassifiedError) Error() string {
	if ce.Message != "" {
		return ce.Message
	}
	return ce.Err.Error()
}

// Unwrap returns the underlying error
func (ce *ClassifiedError) Unwrap() error {
	return ce.Err
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classOf resolves the class of err. An explicit ClassifiedError in the
// chain wins; otherwise fatal sentinels beat invalid ones, which beat the
// transient sentinels and message hints. ok is false when nothing matched.
func classOf(err error) (class ErrorClass, ok bool) {
	var ce *ClassifiedError
	switch {
	case errors.As(err, &ce):
		return ce.Class, true
	case isAny(err, fatalSentinels):
		return ErrorFatal, true
	case isAny(err, invalidSentinels):
		return ErrorInvalid, true
	case isAny(err, transientSentinels):
		return ErrorTransient, true
	}
	msg := strings.ToLower(err.Error())
	for _, hint := range transientHints {
		if strings.Contains(msg, hint) {
			return ErrorTransient, true
		}
	}
	return ErrorTransient, false
}

// IsTransient reports whether err is known to be temporary
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	class, ok := classOf(err)
	return ok && class == ErrorTransient
}

// IsFatal reports whether err should stop processing
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	class, _ := classOf(err)
	return class == ErrorFatal
}

// IsInvalid reports whether err stems from bad input or configuration
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	class, _ := classOf(err)
	return class == ErrorInvalid
}

// Classify returns the class of err. Unrecognized errors count as transient.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrorTransient
	}
	class, _ := classOf(err)
	return class
}

// Wrap adds context in the form "component.method: action failed: %w"
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapAs(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, component, method, action)
	return &ClassifiedError{
		Class:     class,
		Err:       wrapped,
		Message:   wrapped.Error(),
		Component: component,
		Operation: method,
	}
}

// WrapTransient wraps err as transient
func WrapTransient(err error, component, method, action string) error {
	return wrapAs(ErrorTransient, err, component, method, action)
}

// WrapFatal wraps err as fatal
func WrapFatal(err error, component, method, action string) error {
	return wrapAs(ErrorFatal, err, component, method, action)
}

// WrapInvalid wraps err as invalid
func WrapInvalid(err error, component, method, action string) error {
	return wrapAs(ErrorInvalid, err, component, method, action)
}
