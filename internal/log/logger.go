package log

import (
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
)

// Logger is a structured logger carrying immutable context fields.
type Logger struct {
	level     Level
	formatter Formatter
	output    io.Writer
	name      string
	sessionID string

	contextFields Fields

	enableCaller     bool
	callerSkipFrames int

	asyncEnabled bool
	asyncBuffer  chan *Entry
	asyncDone    chan struct{}
	asyncOnce    sync.Once

	mutex sync.RWMutex
}

// Config configures a new Logger.
type Config struct {
	Level            Level
	Format           Format
	Output           io.Writer
	Name             string
	EnableCaller     bool
	CallerSkipFrames int

	// AsyncEnabled offloads formatting/writing to a background goroutine
	// with a bounded buffer; entries are dropped to synchronous logging
	// if the buffer is full. Useful for loggers on the capture hot path.
	AsyncEnabled    bool
	AsyncBufferSize int
}

// New creates a logger with sensible defaults (info level, JSON, stdout).
func New() *Logger {
	return &Logger{
		level:         DefaultLevel(),
		formatter:     NewJSONFormatter(),
		output:        os.Stdout,
		contextFields: make(Fields),
	}
}

// NewWithConfig creates a logger from an explicit Config.
func NewWithConfig(config Config) *Logger {
	logger := &Logger{
		level:            config.Level,
		output:           config.Output,
		name:             config.Name,
		contextFields:    make(Fields),
		enableCaller:     config.EnableCaller,
		callerSkipFrames: config.CallerSkipFrames,
		asyncEnabled:     config.AsyncEnabled,
	}
	if logger.output == nil {
		logger.output = os.Stdout
	}
	logger.formatter = GetFormatter(config.Format)

	if config.AsyncEnabled {
		bufferSize := config.AsyncBufferSize
		if bufferSize <= 0 {
			bufferSize = 1000
		}
		logger.asyncBuffer = make(chan *Entry, bufferSize)
		logger.asyncDone = make(chan struct{})
		logger.startAsyncWorker()
	}
	return logger
}

// WithLevel returns a copy of the logger with a new minimum level.
func (l *Logger) WithLevel(level Level) *Logger {
	clone := l.clone()
	clone.level = level
	return clone
}

// WithFormat returns a copy of the logger using a different formatter.
func (l *Logger) WithFormat(format Format) *Logger {
	clone := l.clone()
	clone.formatter = GetFormatter(format)
	return clone
}

// WithOutput returns a copy of the logger writing to a different destination.
func (l *Logger) WithOutput(output io.Writer) *Logger {
	clone := l.clone()
	clone.output = output
	return clone
}

// WithName returns a copy of the logger tagged with a component name.
func (l *Logger) WithName(name string) *Logger {
	clone := l.clone()
	clone.name = name
	return clone
}

// WithField returns a copy of the logger carrying one additional persistent field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	clone := l.clone()
	clone.contextFields[key] = value
	return clone
}

// WithFields returns a copy of the logger carrying additional persistent fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	clone := l.clone()
	for k, v := range fields {
		clone.contextFields[k] = v
	}
	return clone
}

// WithSessionID returns a copy of the logger tagged with a recording-session id.
func (l *Logger) WithSessionID(id string) *Logger {
	clone := l.clone()
	clone.sessionID = id
	return clone
}

// WithCaller returns a copy of the logger that attaches caller info to entries.
func (l *Logger) WithCaller(skip int) *Logger {
	clone := l.clone()
	clone.enableCaller = true
	clone.callerSkipFrames = skip
	return clone
}

func (l *Logger) Debug(message string, fields ...Fields) { l.log(LevelDebug, message, nil, fields...) }
func (l *Logger) Info(message string, fields ...Fields)  { l.log(LevelInfo, message, nil, fields...) }
func (l *Logger) Warn(message string, fields ...Fields)  { l.log(LevelWarn, message, nil, fields...) }
func (l *Logger) Error(message string, fields ...Fields) { l.log(LevelError, message, nil, fields...) }

// Fatal logs at fatal level and terminates the process.
func (l *Logger) Fatal(message string, fields ...Fields) {
	l.log(LevelFatal, message, nil, fields...)
	os.Exit(1)
}

// ErrorWithErr logs an error-level message carrying an error value.
func (l *Logger) ErrorWithErr(message string, err error, fields ...Fields) {
	l.log(LevelError, message, err, fields...)
}

// WarnWithErr logs a warn-level message carrying an error value.
func (l *Logger) WarnWithErr(message string, err error, fields ...Fields) {
	l.log(LevelWarn, message, err, fields...)
}

// severityLeveler lets internal/errs.Error participate in LogError without
// this package importing internal/errs (which would create an import cycle
// with errs' own use of this package for nothing errs actually needs).
type severityLeveler interface {
	error
	LogLevel() Level
	Fields() Fields
}

// LogError logs err at a level derived from its severity when it implements
// severityLeveler (as internal/errs.Error does), or at error level otherwise.
func (l *Logger) LogError(err error) {
	if err == nil {
		return
	}
	if sl, ok := err.(severityLeveler); ok {
		l.log(sl.LogLevel(), err.Error(), err, sl.Fields())
		return
	}
	l.log(LevelError, err.Error(), err)
}

// StartTimer begins a performance timer that logs its own duration on Stop.
func (l *Logger) StartTimer(operation string) *Timer {
	return NewTimer(l, operation)
}

// IsLevelEnabled reports whether a level would currently be emitted.
func (l *Logger) IsLevelEnabled(level Level) bool {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return level.ShouldLog(l.level)
}

func (l *Logger) log(level Level, message string, err error, fields ...Fields) {
	l.mutex.RLock()
	if !level.ShouldLog(l.level) {
		l.mutex.RUnlock()
		return
	}

	entry := NewEntry(level, message)
	entry.Logger = l.name
	entry.SessionID = l.sessionID
	entry.Error = err

	for k, v := range l.contextFields {
		entry.Fields[k] = v
	}
	for _, fieldSet := range fields {
		for k, v := range fieldSet {
			entry.Fields[k] = v
		}
	}
	if l.enableCaller {
		if function, file, line, ok := l.getCaller(); ok {
			entry.Caller = &CallerInfo{Function: function, File: file, Line: line}
		}
	}

	if l.asyncEnabled && l.asyncBuffer != nil {
		select {
		case l.asyncBuffer <- entry:
			l.mutex.RUnlock()
			return
		default:
			// buffer full: fall through to synchronous write below
		}
	}

	formatter := l.formatter
	output := l.output
	l.mutex.RUnlock()

	if formatted, formatErr := formatter.Format(entry); formatErr == nil {
		output.Write(formatted)
	}
}

func (l *Logger) getCaller() (function, file string, line int, ok bool) {
	skip := 3 + l.callerSkipFrames
	pc, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "", "", 0, false
	}
	function = "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		function = fn.Name()
		if idx := strings.LastIndex(function, "."); idx != -1 {
			function = function[idx+1:]
		}
	}
	if idx := strings.LastIndex(file, "/"); idx != -1 {
		file = file[idx+1:]
	}
	return function, file, line, true
}

func (l *Logger) clone() *Logger {
	clone := &Logger{
		level:            l.level,
		formatter:        l.formatter,
		output:           l.output,
		name:             l.name,
		sessionID:        l.sessionID,
		enableCaller:     l.enableCaller,
		callerSkipFrames: l.callerSkipFrames,
		contextFields:    make(Fields, len(l.contextFields)),
	}
	for k, v := range l.contextFields {
		clone.contextFields[k] = v
	}
	return clone
}

func (l *Logger) startAsyncWorker() {
	l.asyncOnce.Do(func() { go l.asyncWorker() })
}

func (l *Logger) asyncWorker() {
	write := func(entry *Entry) {
		l.mutex.RLock()
		formatter := l.formatter
		output := l.output
		l.mutex.RUnlock()
		if formatted, err := formatter.Format(entry); err == nil {
			output.Write(formatted)
		}
	}
	for {
		select {
		case entry := <-l.asyncBuffer:
			write(entry)
		case <-l.asyncDone:
			for {
				select {
				case entry := <-l.asyncBuffer:
					write(entry)
				default:
					return
				}
			}
		}
	}
}

// Close flushes and stops async logging, if enabled. No-op otherwise.
func (l *Logger) Close() {
	if l.asyncEnabled && l.asyncDone != nil {
		close(l.asyncDone)
	}
}

var defaultLogger = New()

// GetDefault returns the package-wide default logger.
func GetDefault() *Logger { return defaultLogger }

// SetDefault replaces the package-wide default logger.
func SetDefault(logger *Logger) { defaultLogger = logger }

func Debug(message string, fields ...Fields) { defaultLogger.Debug(message, fields...) }
func Info(message string, fields ...Fields)  { defaultLogger.Info(message, fields...) }
func Warn(message string, fields ...Fields)  { defaultLogger.Warn(message, fields...) }
func Error(message string, fields ...Fields) { defaultLogger.Error(message, fields...) }
func Fatal(message string, fields ...Fields) { defaultLogger.Fatal(message, fields...) }
