package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"resource busy", ErrResourceBusy, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"invalid data", ErrInvalidData, false},
		{"topology", ErrDuplicateHead, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"duplicate head", ErrDuplicateHead, true},
		{"dangling connector", ErrDanglingConnector, true},
		{"record cycle", ErrRecordCycle, true},
		{"resource exhausted", ErrResourceExhausted, true},
		{"not open", ErrNotOpen, false},
		{"wrapped topology", WrapFatal(ErrMissingTail, "Pipeline", "Validate", "check tail"), true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsFatal(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"invalid config", ErrInvalidConfig, true},
		{"unknown node type", ErrUnknownNodeType, true},
		{"wrapped invalid", WrapInvalid(errors.New("bad"), "Config", "Validate", "name"), true},
		{"resource busy", ErrResourceBusy, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := IsInvalid(test.err); result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorClass
	}{
		{"nil", nil, ErrorTransient},
		{"topology", ErrDuplicateTail, ErrorFatal},
		{"config", ErrInvalidConfig, ErrorInvalid},
		{"unknown", errors.New("something odd"), ErrorTransient},
		{"classified wins", WrapInvalid(context.Canceled, "Task", "Start", "open"), ErrorInvalid},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if result := Classify(test.err); result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("disk gone")

	if Wrap(nil, "A", "B", "C") != nil {
		t.Fatal("wrapping nil must return nil")
	}

	wrapped := Wrap(base, "FileSink", "Open", "create file")
	if !strings.HasPrefix(wrapped.Error(), "FileSink.Open: create file failed: ") {
		t.Errorf("unexpected format: %s", wrapped.Error())
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error must unwrap to base")
	}

	transient := WrapTransient(base, "FileSink", "Open", "create file")
	var ce *ClassifiedError
	if !errors.As(transient, &ce) {
		t.Fatal("expected ClassifiedError")
	}
	if ce.Component != "FileSink" || ce.Operation != "Open" {
		t.Errorf("unexpected context: %s.%s", ce.Component, ce.Operation)
	}
	if !errors.Is(transient, base) {
		t.Error("classified error must unwrap to base")
	}
}

func TestTopologyErrorsShareFamily(t *testing.T) {
	for _, err := range []error{
		ErrDuplicateHead, ErrDuplicateTail, ErrDanglingConnector,
		ErrUnknownRole, ErrMissingHead, ErrMissingTail, ErrNilNode,
	} {
		if !errors.Is(err, ErrInvalidTopology) {
			t.Errorf("%v must wrap ErrInvalidTopology", err)
		}
	}
}
