package log

import "time"

// Timer measures and logs the duration of an operation.
type Timer struct {
	logger    *Logger
	operation string
	startTime time.Time
	fields    Fields
	level     Level
	stopped   bool
}

// NewTimer starts a timer for the given operation name.
func NewTimer(logger *Logger, operation string) *Timer {
	return &Timer{
		logger:    logger,
		operation: operation,
		startTime: time.Now(),
		fields:    make(Fields),
		level:     LevelDebug,
	}
}

// WithField attaches a field to be logged when the timer completes.
func (t *Timer) WithField(key string, value interface{}) *Timer {
	t.fields[key] = value
	return t
}

// Elapsed returns the time elapsed since the timer started.
func (t *Timer) Elapsed() time.Duration { return time.Since(t.startTime) }

// Stop logs completion at the timer's configured level and returns the
// elapsed duration. A timer stopped twice logs only once.
func (t *Timer) Stop() time.Duration {
	if t.stopped {
		return 0
	}
	elapsed := t.Elapsed()
	t.stopped = true

	t.fields["operation"] = t.operation
	t.fields["duration_ms"] = float64(elapsed.Nanoseconds()) / 1e6

	if t.logger == nil {
		return elapsed
	}
	message := t.operation + " completed"
	switch t.level {
	case LevelDebug:
		t.logger.Debug(message, t.fields)
	case LevelInfo:
		t.logger.Info(message, t.fields)
	case LevelWarn:
		t.logger.Warn(message, t.fields)
	case LevelError:
		t.logger.Error(message, t.fields)
	}
	return elapsed
}

// StopWithError logs failure at error level with the elapsed duration.
func (t *Timer) StopWithError(err error) time.Duration {
	if t.stopped {
		return 0
	}
	elapsed := t.Elapsed()
	t.stopped = true

	t.fields["operation"] = t.operation
	t.fields["duration_ms"] = float64(elapsed.Nanoseconds()) / 1e6
	t.fields["success"] = false

	if t.logger != nil {
		t.logger.ErrorWithErr(t.operation+" failed", err, t.fields)
	}
	return elapsed
}
