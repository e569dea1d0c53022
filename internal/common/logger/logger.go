package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/AlibekovAA/margarine/internal/common/constants"
)

type Fields map[string]interface{}

type Level int

const (
	DEBUG Level = iota
	INFO
	WARNING
	ERROR
	CRITICAL
)

func (lv Level) String() string {
	switch lv {
	case DEBUG:
		return "DEBUG"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case CRITICAL:
		return "CRITICAL"
	default:
		return "INFO"
	}
}

// Logger writes one line per record:
// [LEVEL] [service] [trace_id=... key=value] file:line message
// The level is fixed at construction.
type Logger struct {
	level   Level
	out     *log.Logger
	closer  io.Closer
	service string
}

// New writes to stdout and, when logDir is set, to a rotated app.log inside it.
func New(logDir, serviceName, level string) (*Logger, error) {
	if logDir == "" {
		return NewWithWriter(os.Stdout, serviceName, level), nil
	}

	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotated := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    constants.LoggerMaxSize,
		MaxBackups: constants.LoggerMaxBackups,
		MaxAge:     constants.LoggerMaxAge,
		Compress:   true,
	}

	l := NewWithWriter(io.MultiWriter(os.Stdout, rotated), serviceName, level)
	l.closer = rotated
	return l, nil
}

func NewWithWriter(w io.Writer, serviceName, level string) *Logger {
	return &Logger{
		level:   parseLevel(level),
		out:     log.New(w, "", log.LstdFlags),
		service: serviceName,
	}
}

func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// write must be called directly by an exported method so the caller frame
// points at the code that logged.
func (l *Logger) write(level Level, ctx context.Context, fields Fields, msg string) {
	if level < l.level {
		return
	}

	var b strings.Builder
	b.WriteString("[" + level.String() + "]")
	if l.service != "" {
		b.WriteString(" [" + l.service + "]")
	}

	if attrs := formatFields(ctx, fields); attrs != "" {
		b.WriteString(" [" + attrs + "]")
	}

	if _, file, line, ok := runtime.Caller(2); ok {
		fmt.Fprintf(&b, " %s:%d", filepath.Base(file), line)
	} else {
		b.WriteString(" unknown:0")
	}

	b.WriteString(" " + msg)
	_ = l.out.Output(0, b.String())
}

func formatFields(ctx context.Context, fields Fields) string {
	parts := make([]string, 0, len(fields)+1)
	if ctx != nil {
		if traceID, ok := ctx.Value(constants.TraceIDKey).(string); ok && traceID != "" {
			parts = append(parts, "trace_id="+traceID)
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return strings.Join(parts, " ")
}

func (l *Logger) Info(msg string) { l.write(INFO, nil, nil, msg) }
func (l *Logger) Warn(msg string) { l.write(WARNING, nil, nil, msg) }

func (l *Logger) Infof(format string, args ...any) {
	l.write(INFO, nil, nil, fmt.Sprintf(format, args...))
}

func (l *Logger) Warnf(format string, args ...any) {
	l.write(WARNING, nil, nil, fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...any) {
	l.write(ERROR, nil, nil, fmt.Sprintf(format, args...))
}

func (l *Logger) Criticalf(format string, args ...any) {
	l.write(CRITICAL, nil, nil, fmt.Sprintf(format, args...))
}

// WithFields binds the trace id carried by ctx and the given fields to the
// records written through the returned Entry.
func (l *Logger) WithFields(ctx context.Context, fields Fields) *Entry {
	return &Entry{logger: l, ctx: ctx, fields: fields}
}

type Entry struct {
	logger *Logger
	ctx    context.Context
	fields Fields
}

func (e *Entry) Debug(msg string) { e.logger.write(DEBUG, e.ctx, e.fields, msg) }
func (e *Entry) Info(msg string)  { e.logger.write(INFO, e.ctx, e.fields, msg) }
func (e *Entry) Warn(msg string)  { e.logger.write(WARNING, e.ctx, e.fields, msg) }

func (e *Entry) Infof(format string, args ...any) {
	e.logger.write(INFO, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func (e *Entry) Warnf(format string, args ...any) {
	e.logger.write(WARNING, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func (e *Entry) Errorf(format string, args ...any) {
	e.logger.write(ERROR, e.ctx, e.fields, fmt.Sprintf(format, args...))
}

func parseLevel(value string) Level {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "DEBUG":
		return DEBUG
	case "WARNING", "WARN":
		return WARNING
	case "ERROR":
		return ERROR
	case "CRITICAL":
		return CRITICAL
	default:
		return INFO
	}
}
