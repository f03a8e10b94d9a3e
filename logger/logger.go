package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// FormatPretty is an alias of the console format.
const FormatPretty = "pretty"

// Logger is a zerolog logger scoped to one service.
type Logger struct {
	zl      zerolog.Logger
	service string
}

// New creates a logger writing to cfg.Output.
func New(cfg *Config, service string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, service, out)
}

// NewWithWriter creates a logger writing to w. An unknown level logs at
// info.
func NewWithWriter(cfg *Config, service string, w io.Writer) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var zl zerolog.Logger
	switch strings.ToLower(cfg.Format) {
	case "console", FormatPretty:
		zl = zerolog.New(consoleWriter(w, service, cfg.NoColor))
	default:
		zl = zerolog.New(w).With().Str("service", service).Logger()
	}
	zc := zl.Level(level).With()
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return &Logger{zl: zc.Logger(), service: service}
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) derive(zc zerolog.Context) *Logger {
	return &Logger{zl: zc.Logger(), service: l.service}
}

// WithContext adds the request id and the active trace and span ids
// found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	zc := l.zl.With()
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
	}
	if id := RequestIDFromContext(ctx); id != "" {
		zc = zc.Str(FieldRequestID, id)
	}
	return l.derive(zc)
}

// WithComponent tags every line with a component name.
func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(l.zl.With().Str(FieldComponent, name))
}

// WithFields adds fields to every line.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.derive(l.zl.With().Fields(fields))
}

func (l *Logger) Debug(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Warn(), msg, fields)
}

func (l *Logger) Error(msg string, fields ...map[string]interface{}) {
	emit(l.zl.Error(), msg, fields)
}

func emit(e *zerolog.Event, msg string, fields []map[string]interface{}) {
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

var (
	globalMu sync.RWMutex
	global   *Logger
)

// SetGlobalLogger replaces the logger behind the package-level functions.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	global = l
	globalMu.Unlock()
}

func globalLogger() *Logger {
	globalMu.RLock()
	l := global
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		cfg := Config{}
		cfg.ApplyDefaults()
		global = New(&cfg, "default")
	}
	return global
}

// Get returns the global logger tagged with a component name. Packages
// use it when no logger was injected.
func Get(component string) *Logger {
	return globalLogger().WithComponent(component)
}

// WithContext is Logger.WithContext on the global logger.
func WithContext(ctx context.Context) *Logger {
	return globalLogger().WithContext(ctx)
}

func Debug(msg string, fields ...map[string]interface{}) { globalLogger().Debug(msg, fields...) }
func Info(msg string, fields ...map[string]interface{})  { globalLogger().Info(msg, fields...) }
func Warn(msg string, fields ...map[string]interface{})  { globalLogger().Warn(msg, fields...) }
func Error(msg string, fields ...map[string]interface{}) { globalLogger().Error(msg, fields...) }

var levelStyles = map[string]struct{ tag, color string }{
	"TRACE": {"[TRC]", "\033[90m"},
	"DEBUG": {"[DBG]", "\033[36m"},
	"INFO":  {"[INF]", "\033[32m"},
	"WARN":  {"[WRN]", "\033[33m"},
	"ERROR": {"[ERR]", "\033[31m"},
	"FATAL": {"[FTL]", "\033[35m"},
	"PANIC": {"[PNC]", "\033[35m"},
}

// consoleWriter prefixes each line with a short service tag and a level
// tag, e.g. "[END][INF]".
func consoleWriter(w io.Writer, service string, noColor bool) zerolog.ConsoleWriter {
	paint := func(color, s string) string {
		if noColor {
			return s
		}
		return color + s + "\033[0m"
	}
	prefix := ""
	if len(service) >= 3 && service != "default" {
		prefix = paint("\033[34m", "["+strings.ToUpper(service[:3])+"]")
	}
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		FormatLevel: func(i interface{}) string {
			raw := strings.ToUpper(fmt.Sprint(i))
			style, ok := levelStyles[raw]
			if !ok {
				return prefix + "[" + raw + "]"
			}
			return prefix + paint(style.color, style.tag)
		},
		FormatFieldName: func(i interface{}) string { return fmt.Sprint(i) + ":" },
	}
}
