package errs

import "github.com/msto63/speakd/internal/errkind"

// Severity indicates how urgently an error deserves operator attention.
type Severity int

const (
	// SeverityLow: a minor, recoverable condition (e.g. hallucination drop).
	SeverityLow Severity = iota
	// SeverityMedium: affects functionality but the daemon keeps running.
	SeverityMedium
	// SeverityHigh: a collaborator (device, model, hotkey, injector) failed
	// and the operation was aborted.
	SeverityHigh
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// severityFromCode assigns a default severity to each errkind.Code so that
// call sites that don't care can just use New/Wrap without WithSeverity.
func severityFromCode(c errkind.Code) Severity {
	switch c {
	case errkind.CodeNoInputDevice, errkind.CodeModelLoadFailed, errkind.CodeHotkeyPermissionDenied:
		return SeverityHigh
	case errkind.CodeTranscribeFailed, errkind.CodeConfig, errkind.CodeInjectionFailed:
		return SeverityMedium
	default:
		return SeverityMedium
	}
}
