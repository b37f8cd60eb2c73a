// Package telemetry provides scan-core's structured logging backend, a
// thin wrapper around go-logging that emits one line per event: a name,
// a level, a timestamp, the process-wide correlation id, and a field bag.
package telemetry

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"

	domaintypes "provinode/scan-core/internal/domain/types"
)

// Backend owns the go-logging module-level backend used by every
// scan-core subsystem logger.
type Backend struct {
	sync.RWMutex

	backend       logging.LeveledBackend
	correlationID domaintypes.SortableID
}

// New initializes a logging backend at the given level ("DEBUG", "INFO",
// "NOTICE", "WARNING", "ERROR"), writing formatted lines to stderr, and
// stamps every event with correlationID.
func New(level string, correlationID domaintypes.SortableID) (*Backend, error) {
	lvl, err := logLevelFromString(level)
	if err != nil {
		return nil, err
	}
	logFmt := logging.MustStringFormatter("%{time:2006-01-02T15:04:05.000Z07:00} %{level:.4s} %{module}: %{message}")
	base := logging.NewLogBackend(os.Stderr, "", 0)
	formatted := logging.NewBackendFormatter(base, logFmt)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")

	return &Backend{backend: leveled, correlationID: correlationID}, nil
}

// Logger returns a per-module structured logger backed by b.
func (b *Backend) Logger(module string) *Logger {
	l := logging.MustGetLogger(module)
	l.SetBackend(b.backend)
	return &Logger{raw: l, correlationID: b.correlationID}
}

func logLevelFromString(l string) (logging.Level, error) {
	switch strings.ToUpper(l) {
	case "ERROR":
		return logging.ERROR, nil
	case "WARNING":
		return logging.WARNING, nil
	case "NOTICE":
		return logging.NOTICE, nil
	case "INFO":
		return logging.INFO, nil
	case "DEBUG":
		return logging.DEBUG, nil
	default:
		return logging.CRITICAL, fmt.Errorf("telemetry: invalid level: %q", l)
	}
}

// Fields is the structured field bag attached to a single log event.
type Fields map[string]any

// Logger emits structured events for one module.
type Logger struct {
	raw           *logging.Logger
	correlationID domaintypes.SortableID
}

// Event logs a named event at the given level with an attached field bag.
func (l *Logger) Event(level logging.Level, event string, fields Fields) {
	line := l.render(event, fields)
	switch level {
	case logging.ERROR:
		l.raw.Error(line)
	case logging.WARNING:
		l.raw.Warning(line)
	case logging.NOTICE:
		l.raw.Notice(line)
	case logging.INFO:
		l.raw.Info(line)
	case logging.DEBUG:
		l.raw.Debug(line)
	default:
		l.raw.Critical(line)
	}
}

// Info logs event at INFO with fields.
func (l *Logger) Info(event string, fields Fields) { l.Event(logging.INFO, event, fields) }

// Warning logs event at WARNING with fields.
func (l *Logger) Warning(event string, fields Fields) { l.Event(logging.WARNING, event, fields) }

// Error logs event at ERROR with fields.
func (l *Logger) Error(event string, fields Fields) { l.Event(logging.ERROR, event, fields) }

// Debug logs event at DEBUG with fields.
func (l *Logger) Debug(event string, fields Fields) { l.Event(logging.DEBUG, event, fields) }

func (l *Logger) render(event string, fields Fields) string {
	var sb strings.Builder
	sb.WriteString(event)
	sb.WriteString(" correlation_id=")
	sb.WriteString(l.correlationID.String())

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, " %s=%v", k, fields[k])
	}
	return sb.String()
}
