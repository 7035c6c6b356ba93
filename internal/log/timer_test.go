package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewTimer(t *testing.T) {
	logger := New()
	timer := NewTimer(logger, "transcribe")

	if timer.operation != "transcribe" {
		t.Errorf("operation = %v, want transcribe", timer.operation)
	}
	if timer.level != LevelDebug {
		t.Errorf("level = %v, want %v", timer.level, LevelDebug)
	}
}

func TestTimerElapsed(t *testing.T) {
	timer := NewTimer(New(), "chunk")
	time.Sleep(time.Millisecond)

	if timer.Elapsed() <= 0 {
		t.Error("Elapsed() should be positive after sleeping")
	}
}

func TestTimerStopLogsOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON).WithLevel(LevelDebug)

	timer := NewTimer(logger, "vad-window").WithField("frames", 160)
	timer.Stop()
	firstLen := buf.Len()

	if firstLen == 0 {
		t.Fatal("Stop() should log the completion")
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["message"] != "vad-window completed" {
		t.Errorf("message = %v, want 'vad-window completed'", decoded["message"])
	}
	if decoded["frames"] != float64(160) {
		t.Errorf("frames = %v, want 160", decoded["frames"])
	}
	if _, ok := decoded["duration_ms"]; !ok {
		t.Error("expected duration_ms in output")
	}

	buf.Reset()
	timer.Stop()
	if buf.Len() != 0 {
		t.Error("a second Stop() should not log again")
	}
}

func TestTimerStopWithNilLogger(t *testing.T) {
	timer := NewTimer(nil, "noop")
	elapsed := timer.Stop()
	if elapsed < 0 {
		t.Errorf("Stop() elapsed = %v, want non-negative", elapsed)
	}
}

func TestTimerStopWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := New().WithOutput(&buf).WithFormat(FormatJSON)

	timer := NewTimer(logger, "model-load")
	timer.StopWithError(errors.New("checksum mismatch"))

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded["message"] != "model-load failed" {
		t.Errorf("message = %v, want 'model-load failed'", decoded["message"])
	}
	if decoded["error"] != "checksum mismatch" {
		t.Errorf("error = %v, want 'checksum mismatch'", decoded["error"])
	}
	if decoded["success"] != false {
		t.Errorf("success = %v, want false", decoded["success"])
	}
}

func TestTimerStopWithErrorTwiceIsNoop(t *testing.T) {
	timer := NewTimer(New(), "op")
	timer.StopWithError(errors.New("first"))
	if elapsed := timer.StopWithError(errors.New("second")); elapsed != 0 {
		t.Errorf("second StopWithError() elapsed = %v, want 0", elapsed)
	}
}

func TestLoggerStartTimer(t *testing.T) {
	logger := New()
	timer := logger.StartTimer("capture")

	if timer.operation != "capture" {
		t.Errorf("operation = %v, want capture", timer.operation)
	}
	if timer.logger != logger {
		t.Error("StartTimer() should bind the originating logger")
	}
}
