// Package logger is the structured, per-service logger shared by every
// automation service. Each entry is written to the console with color coding
// and appended as a JSON line to <dir>/<service>-<YYYY-MM-DD>.log.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Level orders severities; lower values are more severe
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = map[Level]string{
	LevelError: "error",
	LevelWarn:  "warn",
	LevelInfo:  "info",
	LevelDebug: "debug",
}

var zerologLevels = map[Level]zerolog.Level{
	LevelError: zerolog.ErrorLevel,
	LevelWarn:  zerolog.WarnLevel,
	LevelInfo:  zerolog.InfoLevel,
	LevelDebug: zerolog.DebugLevel,
}

const (
	colorRed    = "\x1b[31m"
	colorYellow = "\x1b[33m"
	colorCyan   = "\x1b[36m"
	colorWhite  = "\x1b[37m"
	colorReset  = "\x1b[0m"
)

var levelColors = map[string]string{
	"ERROR": colorRed,
	"WARN":  colorYellow,
	"INFO":  colorCyan,
	"DEBUG": colorWhite,
}

func init() {
	zerolog.TimestampFieldName = "timestamp"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.000Z07:00"
	zerolog.LevelFieldMarshalFunc = func(l zerolog.Level) string {
		return strings.ToUpper(l.String())
	}
}

// String returns the lower-case level name
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "info"
}

// ParseLevel maps a level name to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError
	case "warn", "warning":
		return LevelWarn
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Options configures a Logger
type Options struct {
	Dir       string
	Level     string
	ToFile    bool
	ToConsole bool

	// Fs defaults to the OS filesystem
	Fs afero.Fs
	// Console defaults to stdout
	Console io.Writer
	// Now defaults to time.Now
	Now func() time.Time
}

// Logger writes leveled entries for one service
type Logger struct {
	service string
	level   Level
	fs      afero.Fs
	dir     string
	now     func() time.Time
	zl      zerolog.Logger
}

// New creates a Logger for service
func New(service string, opts Options) *Logger {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Join("seo-automation", "logs")
	}

	l := &Logger{
		service: service,
		level:   ParseLevel(opts.Level),
		fs:      opts.Fs,
		dir:     opts.Dir,
		now:     opts.Now,
	}

	var writers []io.Writer
	if opts.ToConsole {
		out := opts.Console
		if out == nil {
			out = os.Stdout
		}
		writers = append(writers, newConsoleWriter(out, service))
	}
	if opts.ToFile {
		writers = append(writers, &dailyFile{logger: l})
	}

	switch len(writers) {
	case 0:
		l.zl = zerolog.Nop()
	case 1:
		l.zl = zerolog.New(writers[0])
	default:
		l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...))
	}
	return l
}

// Nop returns a Logger that discards everything
func Nop() *Logger {
	return New("nop", Options{Fs: afero.NewMemMapFs()})
}

func newConsoleWriter(out io.Writer, service string) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:           out,
		TimeFormat:    time.Kitchen,
		FieldsExclude: []string{"service"},
		FormatLevel: func(i any) string {
			name := strings.ToUpper(fmt.Sprint(i))
			return fmt.Sprintf("%s%-5s [%s]%s", levelColors[name], name, service, colorReset)
		},
	}
}

// Service returns the service name
func (l *Logger) Service() string {
	return l.service
}

// ShouldLog reports whether entries at level pass the threshold
func (l *Logger) ShouldLog(level Level) bool {
	return level <= l.level
}

// Error logs at error level
func (l *Logger) Error(msg string, data ...any) { l.Log(LevelError, msg, data...) }

// Warn logs at warn level
func (l *Logger) Warn(msg string, data ...any) { l.Log(LevelWarn, msg, data...) }

// Info logs at info level
func (l *Logger) Info(msg string, data ...any) { l.Log(LevelInfo, msg, data...) }

// Debug logs at debug level
func (l *Logger) Debug(msg string, data ...any) { l.Log(LevelDebug, msg, data...) }

// Log writes one entry. A single data argument is stored as-is; several are
// stored as an array. Errors are stored by message.
func (l *Logger) Log(level Level, msg string, data ...any) {
	if !l.ShouldLog(level) {
		return
	}

	ev := l.zl.WithLevel(zerologLevels[level]).
		Time(zerolog.TimestampFieldName, l.now().UTC()).
		Str("service", l.service)

	if payload := normalizeData(data); payload != nil {
		ev = ev.Interface("data", payload)
	}
	ev.Msg(msg)
}

func normalizeData(data []any) any {
	switch len(data) {
	case 0:
		return nil
	case 1:
		return normalizeValue(data[0])
	default:
		out := make([]any, len(data))
		for i, d := range data {
			out[i] = normalizeValue(d)
		}
		return out
	}
}

func normalizeValue(v any) any {
	if err, ok := v.(error); ok && err != nil {
		return map[string]string{"error": err.Error()}
	}
	return v
}

// Timer measures one operation
type Timer struct {
	logger    *Logger
	operation string
	start     time.Time
}

// StartTimer begins timing operation
func (l *Logger) StartTimer(operation string) *Timer {
	return &Timer{logger: l, operation: operation, start: l.now()}
}

// End logs the elapsed time as a performance entry and returns it
func (t *Timer) End(data ...map[string]any) time.Duration {
	elapsed := t.logger.now().Sub(t.start)
	ms := elapsed.Milliseconds()

	payload := map[string]any{"duration": ms, "operation": t.operation}
	for _, d := range data {
		for k, v := range d {
			payload[k] = v
		}
	}
	t.logger.Info(fmt.Sprintf("Performance: %s completed in %dms", t.operation, ms), payload)
	return elapsed
}

// APICall logs an outbound request; level follows the status class
func (l *Logger) APICall(method, url string, status int, duration time.Duration) {
	ms := duration.Milliseconds()
	msg := fmt.Sprintf("API %s %s - %d (%dms)", method, url, status, ms)
	payload := map[string]any{"method": method, "url": url, "status": status, "duration": ms}

	switch {
	case status >= 400:
		l.Error(msg, payload)
	case status >= 300:
		l.Warn(msg, payload)
	default:
		l.Info(msg, payload)
	}
}

// fileName returns the log path for the given day
func (l *Logger) fileName(day time.Time) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s-%s.log", l.service, day.UTC().Format("2006-01-02")))
}

// dailyFile appends each write to the service's file for the current UTC day
type dailyFile struct {
	logger *Logger
	mu     sync.Mutex
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	l := d.logger
	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		return 0, err
	}
	f, err := l.fs.OpenFile(l.fileName(l.now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.Write(p)
}
