package errs

import (
	"errors"
	"fmt"
	"maps"
)

// Stage names the pipeline step an error belongs to.
type Stage string

const (
	StageValidation     Stage = "validation"
	StageConfiguration  Stage = "configuration"
	StageProvisioning   Stage = "provisioning"
	StageAuthentication Stage = "authentication"
	StageSubmission     Stage = "submission"
	StagePolling        Stage = "polling"
)

// ErrPollingTimeout is wrapped by the polling error returned once the
// retry budget is spent without a terminal status.
var ErrPollingTimeout = errors.New("payment status polling timed out")

// maxBodyLen bounds how much of a provider response body is kept on an error.
const maxBodyLen = 512

// Error is the typed error returned by every pipeline stage.
type Error struct {
	Stage      Stage
	Message    string
	StatusCode int
	Body       string
	Cause      error
	Context    map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Stage, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a stage error without a cause.
func New(stage Stage, message string) *Error {
	return &Error{Stage: stage, Message: message}
}

// Wrap attaches a stage and message to an underlying error.
func Wrap(err error, stage Stage, message string) *Error {
	return &Error{Stage: stage, Message: message, Cause: err}
}

// HTTP reports a non-2xx provider response.
func HTTP(stage Stage, message string, status int, body []byte) *Error {
	b := string(body)
	if len(b) > maxBodyLen {
		b = b[:maxBodyLen]
	}
	return &Error{Stage: stage, Message: message, StatusCode: status, Body: b}
}

// Configuration creates a configuration error.
func Configuration(message string) *Error {
	return New(StageConfiguration, message)
}

// PollingTimeout reports an exhausted polling budget.
func PollingTimeout(attempts int) *Error {
	return Wrap(ErrPollingTimeout, StagePolling, fmt.Sprintf("no terminal status after %d attempts", attempts))
}

// Validation reports a rejected caller input.
func Validation(message string) *Error {
	return New(StageValidation, message)
}

// Annotate returns a copy of err with key=value in its context. Errors that
// are not stage errors are wrapped under fallback so every failure leaving
// the pipeline names a stage.
func Annotate(err error, fallback Stage, key string, value any) *Error {
	var (
		out *Error
		e   *Error
	)
	if errors.As(err, &e) {
		cp := *e
		cp.Context = maps.Clone(e.Context)
		out = &cp
	} else {
		out = Wrap(err, fallback, "unclassified failure")
	}
	return out.WithContext(key, value)
}

// StageOf returns the stage of the first *Error in err's chain.
func StageOf(err error) (Stage, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage, true
	}
	return "", false
}
