package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	logger := New()

	if logger.level != DefaultLevel() {
		t.Errorf("New() level = %v, want %v", logger.level, DefaultLevel())
	}
	if logger.contextFields == nil {
		t.Error("New() should initialize context fields")
	}
	if logger.output == nil {
		t.Error("New() should set a default output")
	}
}

func TestNewWithConfig(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{
		Level:  LevelError,
		Format: FormatText,
		Output: &buf,
		Name:   "pipeline",
	})

	if logger.level != LevelError {
		t.Errorf("level = %v, want %v", logger.level, LevelError)
	}
	if logger.name != "pipeline" {
		t.Errorf("name = %v, want pipeline", logger.name)
	}
	if logger.output != &buf {
		t.Error("NewWithConfig() should set custom output")
	}
}

func TestNewWithConfigDefaultsOutput(t *testing.T) {
	logger := NewWithConfig(Config{Level: LevelInfo, Format: FormatJSON})
	if logger.output == nil {
		t.Error("NewWithConfig() should default Output to stdout when nil")
	}
}

func TestLoggerWithLevelIsCopyOnWrite(t *testing.T) {
	logger := New()
	derived := logger.WithLevel(LevelDebug)

	if derived == logger {
		t.Error("WithLevel() should return a distinct logger")
	}
	if derived.level != LevelDebug {
		t.Errorf("derived level = %v, want %v", derived.level, LevelDebug)
	}
	if logger.level != DefaultLevel() {
		t.Error("WithLevel() should not mutate the receiver")
	}
}

func TestLoggerWithFormat(t *testing.T) {
	logger := New()
	derived := logger.WithFormat(FormatText)

	if _, ok := derived.formatter.(*TextFormatter); !ok {
		t.Errorf("formatter = %T, want *TextFormatter", derived.formatter)
	}
}

func TestLoggerWithName(t *testing.T) {
	derived := New().WithName("capture")
	if derived.name != "capture" {
		t.Errorf("name = %v, want capture", derived.name)
	}
}

func TestLoggerWithField(t *testing.T) {
	logger := New()
	derived := logger.WithField("device", "default")

	if derived.contextFields["device"] != "default" {
		t.Error("WithField() should set the context field")
	}
	if _, exists := logger.contextFields["device"]; exists {
		t.Error("WithField() should not mutate the receiver")
	}
}

func TestLoggerWithFields(t *testing.T) {
	derived := New().WithFields(Fields{"a": 1, "b": 2})
	if derived.contextFields["a"] != 1 || derived.contextFields["b"] != 2 {
		t.Errorf("contextFields = %v", derived.contextFields)
	}
}

func TestLoggerWithSessionID(t *testing.T) {
	derived := New().WithSessionID("sess-9")
	if derived.sessionID != "sess-9" {
		t.Errorf("sessionID = %v, want sess-9", derived.sessionID)
	}
}

func TestLoggerWithCaller(t *testing.T) {
	derived := New().WithCaller(1)
	if !derived.enableCaller {
		t.Error("WithCaller() should enable caller capture")
	}
	if derived.callerSkipFrames != 1 {
		t.Errorf("callerSkipFrames = %v, want 1", derived.callerSkipFrames)
	}
}

func TestLoggerLogLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON).WithLevel(LevelDebug)

	tests := []struct {
		name  string
		logFn func(string, ...Fields)
		level Level
	}{
		{"Debug", logger.Debug, LevelDebug},
		{"Info", logger.Info, LevelInfo},
		{"Warn", logger.Warn, LevelWarn},
		{"Error", logger.Error, LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFn("recording", Fields{"device": "mic0"})

			if buf.Len() == 0 {
				t.Fatalf("%s() should write to output", tt.name)
			}

			var decoded map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
				t.Fatalf("output is not valid JSON: %v", err)
			}
			if decoded["level"] != tt.level.String() {
				t.Errorf("level = %v, want %v", decoded["level"], tt.level.String())
			}
			if decoded["message"] != "recording" {
				t.Errorf("message = %v, want recording", decoded["message"])
			}
			if decoded["device"] != "mic0" {
				t.Errorf("device = %v, want mic0", decoded["device"])
			}
		})
	}
}

func TestLoggerBelowMinimumLevelIsSuppressed(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithLevel(LevelWarn)

	logger.Debug("should not appear")
	logger.Info("should not appear either")

	if buf.Len() != 0 {
		t.Errorf("expected no output below the minimum level, got %q", buf.String())
	}
}

func TestLoggerErrorWithErr(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON)

	logger.ErrorWithErr("transcription failed", errors.New("timeout"))

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["message"] != "transcription failed" {
		t.Errorf("message = %v", decoded["message"])
	}
	if decoded["error"] != "timeout" {
		t.Errorf("error = %v", decoded["error"])
	}
}

func TestLoggerWarnWithErr(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON)

	logger.WarnWithErr("retrying", errors.New("device busy"))

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["level"] != "warn" {
		t.Errorf("level = %v, want warn", decoded["level"])
	}
}

func TestLoggerLogErrorNilIsNoop(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON)

	logger.LogError(nil)

	if buf.Len() != 0 {
		t.Error("LogError(nil) should not write to output")
	}
}

func TestLoggerLogErrorPlainError(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON)

	logger.LogError(errors.New("disk full"))

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["message"] != "disk full" {
		t.Errorf("message = %v", decoded["message"])
	}
	if decoded["level"] != "error" {
		t.Errorf("level = %v, want error", decoded["level"])
	}
}

type severityError struct {
	msg    string
	level  Level
	fields Fields
}

func (e *severityError) Error() string  { return e.msg }
func (e *severityError) LogLevel() Level { return e.level }
func (e *severityError) Fields() Fields  { return e.fields }

func TestLoggerLogErrorSeverityLeveler(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON).WithLevel(LevelWarn)

	logger.LogError(&severityError{msg: "mic unavailable", level: LevelWarn, fields: Fields{"device": "default"}})

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["level"] != "warn" {
		t.Errorf("level = %v, want warn", decoded["level"])
	}
	if decoded["device"] != "default" {
		t.Errorf("device = %v, want default", decoded["device"])
	}
}

func TestLoggerIsLevelEnabled(t *testing.T) {
	logger := New().WithLevel(LevelWarn)

	tests := []struct {
		level   Level
		enabled bool
	}{
		{LevelDebug, false},
		{LevelInfo, false},
		{LevelWarn, true},
		{LevelError, true},
		{LevelFatal, true},
	}

	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			if got := logger.IsLevelEnabled(tt.level); got != tt.enabled {
				t.Errorf("IsLevelEnabled(%v) = %v, want %v", tt.level, got, tt.enabled)
			}
		})
	}
}

func TestLoggerAsyncEnabledStartsWorker(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithConfig(Config{
		Level:        LevelInfo,
		Format:       FormatJSON,
		Output:       &buf,
		AsyncEnabled: true,
	})

	if logger.asyncBuffer == nil {
		t.Fatal("AsyncEnabled should allocate the async buffer")
	}
	logger.Close()
}

func TestGetSetDefault(t *testing.T) {
	original := GetDefault()
	defer SetDefault(original)

	var buf bytes.Buffer
	replacement := New().WithOutput(&buf).WithFormat(FormatJSON)
	SetDefault(replacement)

	Info("package level message")

	if buf.Len() == 0 {
		t.Error("package-level Info() should use the default logger")
	}
}
