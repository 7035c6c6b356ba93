// Package errs provides a structured error type carrying a code, a
// severity, free-form details and an optional cause, on top of Go's
// standard error interface.
package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/msto63/speakd/internal/errkind"
	"github.com/msto63/speakd/internal/log"
)

// MaxStackFrames bounds how much of the call stack is captured.
const MaxStackFrames = 16

// StackFrame is one captured frame of a stack trace.
type StackFrame struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// Error is the daemon's structured error type.
type Error struct {
	message   string
	cause     error
	code      errkind.Code
	severity  Severity
	timestamp time.Time
	details   map[string]interface{}
	operation string

	stackTrace []StackFrame
}

// New creates an Error with errkind.CodeUnknown and SeverityMedium.
func New(message string) *Error {
	return &Error{
		message:    message,
		code:       errkind.CodeUnknown,
		severity:   SeverityMedium,
		timestamp:  time.Now(),
		details:    make(map[string]interface{}),
		stackTrace: captureStackTrace(2),
	}
}

// Wrap wraps err with additional context, preserving its code and severity
// if err is itself an *Error. Returns nil if err is nil.
func Wrap(err error, message string) *Error {
	if err == nil {
		return nil
	}
	if inner, ok := err.(*Error); ok {
		wrapped := &Error{
			message:    message,
			cause:      inner,
			code:       inner.code,
			severity:   inner.severity,
			timestamp:  time.Now(),
			details:    make(map[string]interface{}, len(inner.details)),
			stackTrace: captureStackTrace(2),
		}
		for k, v := range inner.details {
			wrapped.details[k] = v
		}
		return wrapped
	}
	return &Error{
		message:    message,
		cause:      err,
		code:       errkind.CodeUnknown,
		severity:   SeverityMedium,
		timestamp:  time.Now(),
		details:    make(map[string]interface{}),
		stackTrace: captureStackTrace(2),
	}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.message, e.cause.Error())
	}
	return e.message
}

// Unwrap lets errors.Is/errors.As traverse the cause chain.
func (e *Error) Unwrap() error { return e.cause }

// WithCode sets the error's code and, unless the severity was already set
// explicitly away from the default, derives the severity from the code.
func (e *Error) WithCode(code errkind.Code) *Error {
	e.code = code
	if e.severity == SeverityMedium {
		e.severity = severityFromCode(code)
	}
	return e
}

// WithSeverity overrides the error's severity.
func (e *Error) WithSeverity(s Severity) *Error {
	e.severity = s
	return e
}

// WithDetail attaches one key/value of structured context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.details[key] = value
	return e
}

// WithOperation records which operation (e.g. "AudioCapture.prepare") failed.
func (e *Error) WithOperation(operation string) *Error {
	e.operation = operation
	return e
}

func (e *Error) Code() errkind.Code      { return e.code }
func (e *Error) Severity() Severity      { return e.severity }
func (e *Error) Operation() string       { return e.operation }
func (e *Error) Timestamp() time.Time    { return e.timestamp }
func (e *Error) StackTrace() []StackFrame { return e.stackTrace }
func (e *Error) Details() map[string]interface{} {
	result := make(map[string]interface{}, len(e.details))
	for k, v := range e.details {
		result[k] = v
	}
	return result
}

// LogLevel maps severity to a log.Level, letting internal/log.Logger.LogError
// pick an appropriate level without importing this package.
func (e *Error) LogLevel() log.Level {
	switch e.severity {
	case SeverityLow:
		return log.LevelInfo
	case SeverityHigh:
		return log.LevelError
	default:
		return log.LevelWarn
	}
}

// Fields exposes the error's code/severity/operation/details as log.Fields
// for internal/log.Logger.LogError.
func (e *Error) Fields() log.Fields {
	f := log.Fields{
		"error_code":     string(e.code),
		"error_severity": e.severity.String(),
	}
	if e.operation != "" {
		f["error_operation"] = e.operation
	}
	for k, v := range e.details {
		f["error_"+k] = v
	}
	return f
}

// String renders a multi-line human-readable dump of the error, used by CLI
// diagnostics and tests rather than everyday logging (which uses Fields).
func (e *Error) String() string {
	parts := []string{
		fmt.Sprintf("Error: %s", e.message),
		fmt.Sprintf("Code: %s", e.code),
		fmt.Sprintf("Severity: %s", e.severity),
	}
	if e.operation != "" {
		parts = append(parts, fmt.Sprintf("Operation: %s", e.operation))
	}
	if len(e.details) > 0 {
		var detailStrs []string
		for k, v := range e.details {
			detailStrs = append(detailStrs, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("Details: {%s}", strings.Join(detailStrs, ", ")))
	}
	if e.cause != nil {
		parts = append(parts, fmt.Sprintf("Cause: %s", e.cause.Error()))
	}
	return strings.Join(parts, "\n")
}

// MarshalJSON renders the error for structured logging.
func (e *Error) MarshalJSON() ([]byte, error) {
	data := map[string]interface{}{
		"message":   e.message,
		"code":      e.code,
		"severity":  e.severity.String(),
		"timestamp": e.timestamp.Format(time.RFC3339),
	}
	if len(e.details) > 0 {
		data["details"] = e.details
	}
	if e.operation != "" {
		data["operation"] = e.operation
	}
	if e.cause != nil {
		data["cause"] = e.cause.Error()
	}
	return json.Marshal(data)
}

func captureStackTrace(skip int) []StackFrame {
	frames := make([]StackFrame, 0, MaxStackFrames)
	for i := skip; i < MaxStackFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		frames = append(frames, StackFrame{Function: fn.Name(), File: file, Line: line})
	}
	return frames
}

// Of returns the errkind.Code carried by err, or errkind.CodeUnknown if err
// is not (or does not wrap) an *Error.
func Of(err error) errkind.Code {
	var e *Error
	if errors.As(err, &e) {
		return e.code
	}
	return errkind.CodeUnknown
}

// GetCode is an alias of Of, kept for call sites that read better asking
// "what code does this error have" than "this error is of".
func GetCode(err error) errkind.Code { return Of(err) }

// HasCode reports whether err is (or wraps) an *Error with the given code.
func HasCode(err error, code errkind.Code) bool {
	var e *Error
	return errors.As(err, &e) && e.code == code
}

// GetSeverity returns the severity carried by err, or SeverityMedium if err
// is not (or does not wrap) an *Error.
func GetSeverity(err error) Severity {
	var e *Error
	if errors.As(err, &e) {
		return e.severity
	}
	return SeverityMedium
}
