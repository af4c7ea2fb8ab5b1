package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields type alias for logrus.Fields to maintain compatibility
type Fields map[string]interface{}

// Log wraps logrus.Logger with component counters and an optional metric sink.
type Log struct {
	*logrus.Logger
	counters *counters
	metrics  *CloudWatch
}

// Entry wraps logrus.Entry with additional functionality
type Entry struct {
	*logrus.Entry
	log *Log
}

func callerPrettyfier(f *runtime.Frame) (string, string) {
	file := filepath.Base(f.File)
	return "", fmt.Sprintf("%s:%d", file, f.Line)
}

func jsonFormatter() *logrus.JSONFormatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: callerPrettyfier,
	}
}

// New returns a logger writing JSON to stdout at the level named by LOG_LEVEL
// (info when unset or invalid).
func New() *Log {
	logger := logrus.New()
	logger.SetReportCaller(true)

	logger.SetLevel(logrus.InfoLevel)
	if lvl, err := ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	logger.SetFormatter(jsonFormatter())
	logger.AddHook(newCallerHook())
	return &Log{Logger: logger, counters: newCounters()}
}

// Discard returns a logger that drops everything; handy for tests.
func Discard() *Log {
	l := New()
	l.SetOutput(io.Discard)
	return l
}

// ParseLevel accepts logrus level names plus WARNING and CRITICAL.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return logrus.InfoLevel, fmt.Errorf("empty log level")
	case "warning":
		return logrus.WarnLevel, nil
	case "critical":
		return logrus.ErrorLevel, nil
	default:
		return logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	}
}

func (l *Log) entry(e *logrus.Entry) *Entry {
	return &Entry{Entry: e, log: l}
}

func (l *Log) WithComponent(component string) *Entry {
	return l.entry(l.Logger.WithField("component", component))
}

func (l *Log) WithFields(fields Fields) *Entry {
	return l.entry(l.Logger.WithFields(logrus.Fields(fields)))
}

func (l *Log) WithError(err error) *Entry {
	return l.entry(l.Logger.WithError(err))
}

// WithEnv attaches environment variable values to the log entry
func (l *Log) WithEnv(envs ...string) *Entry {
	fields := logrus.Fields{}
	for _, env := range envs {
		fields[env] = os.Getenv(env)
	}
	return l.entry(l.Logger.WithFields(fields))
}

func (e *Entry) WithComponent(component string) *Entry {
	return &Entry{Entry: e.Entry.WithField("component", component), log: e.log}
}

func (e *Entry) WithFields(fields Fields) *Entry {
	return &Entry{Entry: e.Entry.WithFields(logrus.Fields(fields)), log: e.log}
}

func (e *Entry) WithError(err error) *Entry {
	return &Entry{Entry: e.Entry.WithError(err), log: e.log}
}

func (e *Entry) Warn(args ...interface{}) {
	if component, ok := e.Entry.Data["component"].(string); ok && e.log != nil {
		e.log.counters.warn(component)
	}
	e.Entry.Warn(args...)
}

func (e *Entry) Error(args ...interface{}) {
	if component, ok := e.Entry.Data["component"].(string); ok && e.log != nil {
		e.log.counters.error(component)
	}
	e.Entry.Error(args...)
}

// LogMetric logs a metric and forwards numeric values to CloudWatch when a
// sink is attached.
func (e *Entry) LogMetric(component string, metric string, value interface{}, metricType string, fields Fields) {
	out := make(Fields, len(fields)+3)
	for k, v := range fields {
		out[k] = v
	}
	if metricType == "" {
		metricType = "counter"
	}
	out["metric"] = metric
	out["value"] = value
	out["metric_type"] = metricType

	e.WithComponent(component).WithFields(out).Debug("metric")

	if e.log == nil || e.log.metrics == nil {
		return
	}
	var val float64
	switch v := value.(type) {
	case int:
		val = float64(v)
	case int32:
		val = float64(v)
	case int64:
		val = float64(v)
	case float32:
		val = float64(v)
	case float64:
		val = v
	case time.Duration:
		val = float64(v) / float64(time.Millisecond)
	default:
		return
	}
	e.log.metrics.put(component, metric, val, fields)
}

func (l *Log) LogMetric(component string, metric string, value interface{}, metricType string, fields Fields) {
	l.WithComponent(component).LogMetric(component, metric, value, metricType, fields)
}

// LogPerformanceEntry records how long an operation took.
func LogPerformanceEntry(entry *Entry, component string, operation string, duration time.Duration, fields Fields) {
	out := Fields{
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
		"operation":   operation,
	}
	for k, v := range fields {
		out[k] = v
	}
	entry.WithFields(out).WithComponent(component).Info("performance metric")
}

// Configure sets up the logger with the provided configuration
func (l *Log) Configure(level string, format string, output string, maxAge int) error {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		level = env
	}

	lvl, err := ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level '%s'", level)
	}
	l.SetLevel(lvl)

	l.SetReportCaller(true)

	switch strings.ToLower(format) {
	case "json", "":
		l.SetFormatter(jsonFormatter())
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  time.RFC3339,
			CallerPrettyfier: callerPrettyfier,
		})
	default:
		return fmt.Errorf("invalid log format '%s'", format)
	}

	switch output {
	case "stdout", "":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		if dir := filepath.Dir(output); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create log directory '%s': %w", dir, err)
			}
		}
		if maxAge > 0 {
			l.SetOutput(&lumberjack.Logger{
				Filename: output,
				MaxAge:   maxAge,
				MaxSize:  100,
				Compress: true,
			})
		} else {
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				return fmt.Errorf("failed to open log file '%s': %w", output, err)
			}
			l.SetOutput(file)
		}
	}

	return nil
}

func (l *Log) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

func (l *Log) SetLevel(level logrus.Level) {
	l.Logger.SetLevel(level)
}

func (l *Log) SetFormatter(formatter logrus.Formatter) {
	l.Logger.SetFormatter(formatter)
}
