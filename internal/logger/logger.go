package logger

import (
	"fmt"
	"strings"
	"sync"
)

type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel maps a flag value such as "info" or "WARN" to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level: %q", s)
	}
}

// Logger is the diagnostic sink handed to every processing component.
// component names the emitting stage, e.g. "NavBarDetector".
type Logger interface {
	Debug(component, message string, fields map[string]interface{})
	Info(component, message string, fields map[string]interface{})
	Warning(component, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Debug(component, message string, fields map[string]interface{})   {}
func (NoOpLogger) Info(component, message string, fields map[string]interface{})    {}
func (NoOpLogger) Warning(component, message string, fields map[string]interface{}) {}
func (NoOpLogger) Error(component string, err error, fields map[string]interface{}) {}

// Entry is a single diagnostic captured by Recorder.
type Entry struct {
	Level     LogLevel
	Component string
	Message   string
	Err       error
	Fields    map[string]interface{}
}

// Recorder keeps diagnostics in memory so callers can inspect what a
// processing call reported.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Debug(component, message string, fields map[string]interface{}) {
	r.add(Entry{Level: DebugLevel, Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Info(component, message string, fields map[string]interface{}) {
	r.add(Entry{Level: InfoLevel, Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Warning(component, message string, fields map[string]interface{}) {
	r.add(Entry{Level: WarnLevel, Component: component, Message: message, Fields: fields})
}

func (r *Recorder) Error(component string, err error, fields map[string]interface{}) {
	r.add(Entry{Level: ErrorLevel, Component: component, Message: errorMessage(err), Err: err, Fields: fields})
}

// errorMessage is the message an Error entry carries: the error text, or a
// generic one when err is nil.
func errorMessage(err error) string {
	if err == nil {
		return "operation failed"
	}
	return err.Error()
}

func (r *Recorder) add(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// AtLevel returns the recorded entries with exactly the given level.
func (r *Recorder) AtLevel(level LogLevel) []Entry {
	var out []Entry
	for _, e := range r.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}
