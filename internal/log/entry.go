package log

import "time"

// Entry represents a single log entry with all its metadata.
type Entry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Logger    string

	// SessionID correlates every log line emitted during one recording
	// session (capture start through output dispatch).
	SessionID string

	Fields Fields
	Error  error

	Duration time.Duration
	Caller   *CallerInfo
}

// CallerInfo contains information about where the log was called from.
type CallerInfo struct {
	Function string
	File     string
	Line     int
}

// Fields represents custom key-value pairs for structured logging.
type Fields map[string]interface{}

// Field creates a single field for logging.
func Field(key string, value interface{}) Fields { return Fields{key: value} }

// Err creates an error field for logging.
func Err(err error) Fields { return Fields{"error": err} }

// Duration creates a duration field for logging.
func Duration(key string, duration time.Duration) Fields { return Fields{key: duration} }

// Int creates an integer field for logging.
func Int(key string, value int) Fields { return Fields{key: value} }

// Float64 creates a float64 field for logging.
func Float64(key string, value float64) Fields { return Fields{key: value} }

// String creates a string field for logging.
func String(key string, value string) Fields { return Fields{key: value} }

// Bool creates a boolean field for logging.
func Bool(key string, value bool) Fields { return Fields{key: value} }

// Any creates a field with any value type for logging.
func Any(key string, value interface{}) Fields { return Fields{key: value} }

// Merge combines multiple Fields into one, with other taking priority.
func (f Fields) Merge(other Fields) Fields {
	result := make(Fields, len(f)+len(other))
	for k, v := range f {
		result[k] = v
	}
	for k, v := range other {
		result[k] = v
	}
	return result
}

// With adds a field to the existing Fields.
func (f Fields) With(key string, value interface{}) Fields {
	if f == nil {
		f = make(Fields)
	}
	f[key] = value
	return f
}

// Clone creates a copy of the Fields.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	result := make(Fields, len(f))
	for k, v := range f {
		result[k] = v
	}
	return result
}

// NewEntry creates a new log entry with the given level and message.
func NewEntry(level Level, message string) *Entry {
	return &Entry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Fields:    make(Fields),
	}
}

// WithFields merges custom fields into the entry.
func (e *Entry) WithFields(fields Fields) *Entry {
	if e.Fields == nil {
		e.Fields = make(Fields)
	}
	for k, v := range fields {
		e.Fields[k] = v
	}
	return e
}

// WithError attaches error information to the entry.
func (e *Entry) WithError(err error) *Entry {
	e.Error = err
	return e
}

// WithDuration attaches a duration measurement to the entry.
func (e *Entry) WithDuration(d time.Duration) *Entry {
	e.Duration = d
	return e
}

// WithSessionID tags the entry with a recording-session correlation id.
func (e *Entry) WithSessionID(id string) *Entry {
	e.SessionID = id
	return e
}

// WithLogger sets the logger name for the entry.
func (e *Entry) WithLogger(logger string) *Entry {
	e.Logger = logger
	return e
}

// Clone creates a deep copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	clone := &Entry{
		Timestamp: e.Timestamp,
		Level:     e.Level,
		Message:   e.Message,
		Logger:    e.Logger,
		SessionID: e.SessionID,
		Fields:    e.Fields.Clone(),
		Error:     e.Error,
		Duration:  e.Duration,
	}
	if e.Caller != nil {
		caller := *e.Caller
		clone.Caller = &caller
	}
	return clone
}
