// Package logging provides the leveled, session-scoped logger and audit
// trail used across every component: OT/PSI session open/close, phase
// timing in the orchestrator, and key-authority release events.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is a logging severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func parseLevel(s string) Level {
	switch s {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Options configures a Logger.
type Options struct {
	Level       string
	File        string
	EnableAudit bool
	AuditFile   string
}

// Logger is a session-scoped leveled logger with an optional separate audit
// trail.
type Logger struct {
	level       Level
	main        *log.Logger
	audit       *log.Logger
	mu          sync.RWMutex
	sessionID   string
}

var (
	global     *Logger
	globalOnce sync.Once
)

// Init sets the process-wide global logger; subsequent calls are no-ops,
// matching the original singleton discipline.
func Init(opts Options, sessionID string) error {
	var err error
	globalOnce.Do(func() {
		global, err = New(opts, sessionID)
	})
	return err
}

// Get returns the global logger, falling back to a stdout-only logger if
// Init was never called.
func Get() *Logger {
	if global == nil {
		return &Logger{level: Info, main: log.New(os.Stdout, "[paramexchange] ", log.LstdFlags), sessionID: "default"}
	}
	return global
}

// New constructs a standalone Logger (used by tests and CLIs that want an
// instance separate from the process-wide global).
func New(opts Options, sessionID string) (*Logger, error) {
	l := &Logger{level: parseLevel(opts.Level), sessionID: sessionID}

	var mainWriter io.Writer = os.Stdout
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open log file: %w", err)
		}
		mainWriter = f
	}
	l.main = log.New(mainWriter, fmt.Sprintf("[paramexchange-%s] ", sessionID), log.LstdFlags)

	if opts.EnableAudit {
		auditFile := opts.AuditFile
		if auditFile == "" {
			auditFile = "audit.log"
		}
		if err := os.MkdirAll(filepath.Dir(auditFile), 0o755); err != nil {
			return nil, fmt.Errorf("logging: create audit dir: %w", err)
		}
		f, err := os.OpenFile(auditFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("logging: open audit file: %w", err)
		}
		l.audit = log.New(f, fmt.Sprintf("[AUDIT-%s] ", sessionID), log.LstdFlags)
	}
	return l, nil
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.level > level {
		return
	}
	l.main.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...any) { l.log(Debug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(Info, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(Warn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(Error, format, args...) }

// Audit records a security/accountability event (OT release, session open)
// to the audit trail, and mirrors it to the main log at Warn level.
func (l *Logger) Audit(event string, details map[string]any) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	msg := fmt.Sprintf("event=%s timestamp=%s session=%s", event, time.Now().UTC().Format(time.RFC3339), l.sessionID)
	for k, v := range details {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	if l.audit != nil {
		l.audit.Println(msg)
	}
	if l.level <= Warn {
		l.main.Printf("[AUDIT] %s", msg)
	}
}

// Phase returns a function that, when called, logs the elapsed time since
// Phase was invoked under the given label. Used by the orchestrator to mark
// each of its six query phases the way the original client timed them.
func (l *Logger) Phase(label string) func() {
	start := time.Now()
	return func() {
		l.Info("phase=%s elapsed=%s", label, time.Since(start))
	}
}

func Debug(format string, args ...any)              { Get().Debug(format, args...) }
func Info(format string, args ...any)                { Get().Info(format, args...) }
func Warn(format string, args ...any)                { Get().Warn(format, args...) }
func Error(format string, args ...any)                { Get().Error(format, args...) }
func Audit(event string, details map[string]any)      { Get().Audit(event, details) }
