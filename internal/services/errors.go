package services

import (
	"errors"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// ErrorKind classifies a failure for logs, notifications and operator views.
type ErrorKind string

const (
	ErrorKindExternalTool  ErrorKind = "external_tool"
	ErrorKindValidation    ErrorKind = "validation"
	ErrorKindConfiguration ErrorKind = "configuration"
	ErrorKindNotFound      ErrorKind = "not_found"
	ErrorKindTimeout       ErrorKind = "timeout"
	ErrorKindTransient     ErrorKind = "transient"
	ErrorKindCanceled      ErrorKind = "canceled"
	ErrorKindUnknown       ErrorKind = "unknown"
)

// StepError carries the step and operation that produced a failure. It
// unwraps to both its marker and the underlying cause.
type StepError struct {
	Marker    error
	Step      string
	Operation string
	Message   string
	Err       error
}

func (e *StepError) Error() string {
	detail := buildDetail(e.Step, e.Operation, e.Message)
	if e.Err != nil {
		return e.Marker.Error() + ": " + detail + ": " + e.Err.Error()
	}
	return e.Marker.Error() + ": " + detail
}

func (e *StepError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Marker}
	}
	return []error{e.Marker, e.Err}
}

// Wrap builds an error that includes step context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	if marker == nil {
		marker = ErrTransient
	}
	return &StepError{
		Marker:    marker,
		Step:      strings.TrimSpace(step),
		Operation: strings.TrimSpace(operation),
		Message:   strings.TrimSpace(message),
		Err:       err,
	}
}

// ErrorDetails is the log-friendly summary of a failure.
type ErrorDetails struct {
	Kind      ErrorKind
	Step      string
	Operation string
	Message   string
	Hint      string
}

// Details classifies err by marker and extracts step context when present.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	details := ErrorDetails{Kind: classify(err), Message: err.Error()}
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		details.Step = stepErr.Step
		details.Operation = stepErr.Operation
	}
	details.Hint = hintFor(details.Kind)
	return details
}

func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return ErrorKindValidation
	case errors.Is(err, ErrConfiguration):
		return ErrorKindConfiguration
	case errors.Is(err, ErrNotFound):
		return ErrorKindNotFound
	case errors.Is(err, ErrExternalTool):
		return ErrorKindExternalTool
	case errors.Is(err, ErrTimeout):
		return ErrorKindTimeout
	case errors.Is(err, ErrTransient):
		return ErrorKindTransient
	case isCanceled(err):
		return ErrorKindCanceled
	default:
		return ErrorKindUnknown
	}
}

func hintFor(kind ErrorKind) string {
	switch kind {
	case ErrorKindValidation:
		return "inspect the job payload; retrying will not help until it is corrected"
	case ErrorKindConfiguration:
		return "check the photolog config and extension sets"
	case ErrorKindNotFound:
		return "confirm the upload file or catalog entry still exists"
	case ErrorKindExternalTool:
		return "confirm ffmpeg/ffprobe are installed and the remote service is reachable"
	case ErrorKindTimeout:
		return "remote service was slow; the job will be retried"
	default:
		return "check logs for details"
	}
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{step, operation, message} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
