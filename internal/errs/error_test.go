package errs

import (
	"errors"
	"testing"

	"github.com/msto63/speakd/internal/errkind"
)

func TestNew(t *testing.T) {
	err := New("device probe failed")

	if err.Error() != "device probe failed" {
		t.Errorf("Error() = %q, want %q", err.Error(), "device probe failed")
	}
	if err.Code() != errkind.CodeUnknown {
		t.Errorf("Code() = %v, want %v", err.Code(), errkind.CodeUnknown)
	}
	if err.Severity() != SeverityMedium {
		t.Errorf("Severity() = %v, want %v", err.Severity(), SeverityMedium)
	}
	if err.Timestamp().IsZero() {
		t.Error("Timestamp() should not be zero")
	}
	if len(err.StackTrace()) == 0 {
		t.Error("StackTrace() should not be empty")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "wrapper") != nil {
		t.Error("Wrap(nil, ...) should return nil")
	}

	plain := Wrap(errors.New("original"), "wrapper")
	if plain.Error() != "wrapper: original" {
		t.Errorf("Error() = %q, want %q", plain.Error(), "wrapper: original")
	}

	inner := New("model missing").WithCode(errkind.CodeModelLoadFailed)
	outer := Wrap(inner, "startup failed")
	if outer.Error() != "startup failed: model missing" {
		t.Errorf("Error() = %q, want %q", outer.Error(), "startup failed: model missing")
	}
	if outer.Code() != errkind.CodeModelLoadFailed {
		t.Errorf("Code() = %v, want inherited %v", outer.Code(), errkind.CodeModelLoadFailed)
	}
	if outer.Severity() != SeverityHigh {
		t.Errorf("Severity() = %v, want inherited %v", outer.Severity(), SeverityHigh)
	}
	if !errors.Is(outer, inner) {
		t.Error("errors.Is should traverse Unwrap() to the inner *Error")
	}
}

func TestWithCodeDerivesSeverity(t *testing.T) {
	cases := []struct {
		code errkind.Code
		want Severity
	}{
		{errkind.CodeNoInputDevice, SeverityHigh},
		{errkind.CodeModelLoadFailed, SeverityHigh},
		{errkind.CodeHotkeyPermissionDenied, SeverityHigh},
		{errkind.CodeTranscribeFailed, SeverityMedium},
		{errkind.CodeInjectionFailed, SeverityMedium},
	}
	for _, c := range cases {
		err := New("x").WithCode(c.code)
		if err.Severity() != c.want {
			t.Errorf("WithCode(%v) severity = %v, want %v", c.code, err.Severity(), c.want)
		}
	}
}

func TestWithSeverityOverridesDerivation(t *testing.T) {
	err := New("x").WithSeverity(SeverityLow).WithCode(errkind.CodeNoInputDevice)
	if err.Severity() != SeverityLow {
		t.Errorf("explicit WithSeverity before WithCode should stick, got %v", err.Severity())
	}
}

func TestWithDetailAndFields(t *testing.T) {
	err := New("transcription timed out").
		WithCode(errkind.CodeTranscribeFailed).
		WithOperation("Transcriber.Transcribe").
		WithDetail("chunk_index", 2)

	fields := err.Fields()
	if fields["error_code"] != string(errkind.CodeTranscribeFailed) {
		t.Errorf("Fields()[error_code] = %v", fields["error_code"])
	}
	if fields["error_operation"] != "Transcriber.Transcribe" {
		t.Errorf("Fields()[error_operation] = %v", fields["error_operation"])
	}
	if fields["error_chunk_index"] != 2 {
		t.Errorf("Fields()[error_chunk_index] = %v", fields["error_chunk_index"])
	}
}

func TestLogLevel(t *testing.T) {
	cases := []struct {
		sev  Severity
		want string
	}{
		{SeverityLow, "info"},
		{SeverityMedium, "warn"},
		{SeverityHigh, "error"},
	}
	for _, c := range cases {
		err := New("x").WithSeverity(c.sev)
		if got := err.LogLevel().String(); got != c.want {
			t.Errorf("severity %v LogLevel() = %q, want %q", c.sev, got, c.want)
		}
	}
}

func TestHasCodeGetCodeGetSeverity(t *testing.T) {
	err := New("no mic").WithCode(errkind.CodeNoInputDevice)

	if !HasCode(err, errkind.CodeNoInputDevice) {
		t.Error("HasCode should match the assigned code")
	}
	if HasCode(err, errkind.CodeInjectionFailed) {
		t.Error("HasCode should not match an unrelated code")
	}
	if GetCode(err) != errkind.CodeNoInputDevice {
		t.Errorf("GetCode() = %v", GetCode(err))
	}
	if GetSeverity(err) != SeverityHigh {
		t.Errorf("GetSeverity() = %v", GetSeverity(err))
	}

	plain := errors.New("not ours")
	if GetCode(plain) != errkind.CodeUnknown {
		t.Errorf("GetCode(plain) = %v, want CodeUnknown", GetCode(plain))
	}
	if HasCode(plain, errkind.CodeUnknown) {
		t.Error("HasCode should not match a non-*Error even against CodeUnknown")
	}
}

func TestMarshalJSON(t *testing.T) {
	err := New("bad state").WithCode(errkind.CodeConfig).WithDetail("field", "log_level")
	data, marshalErr := err.MarshalJSON()
	if marshalErr != nil {
		t.Fatalf("MarshalJSON failed: %v", marshalErr)
	}
	if len(data) == 0 {
		t.Error("MarshalJSON returned empty output")
	}
}
