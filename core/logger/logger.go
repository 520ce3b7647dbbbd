package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/mangadesu/premiumbot/core/buildinfo"
)

var (
	initOnce   sync.Once
	shutdownMu sync.Mutex
	shutdowned bool

	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(1, 50)
	traceOverride bool

	// L is the base logger exposed for call sites that have no context yet.
	// It starts on the process-wide slog logger so logging is safe before
	// Init installs the configured handler.
	L = slog.Default()

	// DB logs database events.
	DB = L.With("component", "db")
	// MIG logs database migration events.
	MIG = L.With("component", "db.migrate")
	// BOT logs Telegram transport events.
	BOT = L.With("component", "bot")
	// WIRE logs bot wiring steps.
	WIRE = L.With("component", "bot.wire")
	// ORD logs order state machine activity.
	ORD = L.With("component", "order")
	// ACT logs activation engine activity.
	ACT = L.With("component", "order.activation")
	// API logs admin HTTP API activity.
	API = L.With("component", "admin.api")
	// NOTIF logs outbound notification dispatch.
	NOTIF = L.With("component", "notify")
)

// Options carries the logging configuration. It is deliberately decoupled
// from the application config package so the storage and transport layers can
// log without import cycles.
type Options struct {
	Level       string
	Format      string
	DebugSample string
	Dir         string
	File        string
	Profile     string
}

// Init configures the global structured logger. It may be called only once.
func Init(opts Options) error {
	var initErr error
	initOnce.Do(func() {
		levelVar.Set(selectLevel(opts.Level))

		num, den := parseDebugSample(opts.DebugSample)
		debugSampler.Set(num, den)
		traceOverride = detectTraceFlag()

		out, closers, err := buildOutput(opts)
		if err != nil {
			initErr = err
			return
		}
		logClosers = closers

		var handler slog.Handler
		hopts := &slog.HandlerOptions{Level: &levelVar}
		if selectFormat(opts) == formatKV {
			handler = slog.NewTextHandler(out, hopts)
		} else {
			handler = slog.NewJSONHandler(out, hopts)
		}

		logger := slog.New(handler)
		L = logger
		slog.SetDefault(logger)

		wireComponents()
		logStartup(opts)
	})
	return initErr
}

func wireComponents() {
	if L == nil {
		return
	}
	DB = L.With("component", "db")
	MIG = L.With("component", "db.migrate")
	BOT = L.With("component", "bot")
	WIRE = L.With("component", "bot.wire")
	ORD = L.With("component", "order")
	ACT = L.With("component", "order.activation")
	API = L.With("component", "admin.api")
	NOTIF = L.With("component", "notify")
}

func logStartup(opts Options) {
	if L == nil {
		return
	}
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("go_version", runtime.Version()),
		slog.String("build_commit", buildinfo.Commit),
		slog.String("build_time", buildinfo.Date),
		slog.String("cfg_profile", selectProfile(opts)),
	)
}

// Shutdown closes opened log sinks.
func Shutdown() error {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	if shutdowned {
		return nil
	}
	shutdowned = true

	var errs []error
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

func selectFormat(opts Options) logFormat {
	switch strings.ToLower(strings.TrimSpace(opts.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	// Prefer human-friendly format when profile indicates debug/dev mode.
	if strings.EqualFold(opts.Profile, "debug") || strings.EqualFold(opts.Profile, "dev") {
		return formatKV
	}
	return formatJSON
}

func selectLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildOutput(opts Options) (io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	var closers []io.Closer
	dir := strings.TrimSpace(opts.Dir)
	file := strings.TrimSpace(opts.File)
	if dir != "" && file != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Printf("logger: failed to create log dir %s: %v", dir, err)
		} else {
			path := filepath.Join(dir, file)
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				log.Printf("logger: failed to open log file %s: %v", path, err)
			} else {
				writers = append(writers, f)
				closers = append(closers, f)
			}
		}
	}
	if len(writers) == 1 {
		return writers[0], closers, nil
	}
	return io.MultiWriter(writers...), closers, nil
}

func selectProfile(opts Options) string {
	if profile := strings.TrimSpace(opts.Profile); profile != "" {
		return strings.ToLower(profile)
	}
	return "prod"
}

// Background returns context.Background() provided for symmetry with the
// context helpers in this package.
func Background() context.Context {
	return context.Background()
}

// LogEvent logs with a guaranteed event attribute using context-aware logging.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		logg = L
	}
	if logg == nil {
		return
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, event, attrs...)
}

// Component constructs a logger scoped to the provided component attribute.
func Component(name string) *slog.Logger {
	if L == nil {
		return nil
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return L
	}
	return L.With("component", trimmed)
}

// Event logs with component scope resolved automatically.
func Event(ctx context.Context, component string, level slog.Level, event string, attrs ...slog.Attr) {
	logg := Component(component)
	if logg == nil {
		logg = FromContext(ctx)
		if logg != nil && strings.TrimSpace(component) != "" {
			logg = logg.With("component", strings.TrimSpace(component))
		}
	}
	LogEvent(ctx, logg, level, event, attrs...)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

func parseDebugSample(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 1, 50
	}
	num, den := parseRatioSpec(spec)
	if num == 0 && den == 0 {
		return 0, 0
	}
	if num <= 0 || den <= 0 {
		return 1, 50
	}
	return num, den
}

func detectTraceFlag() bool {
	return isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// ShouldSampleDebug reports whether debug-level details should be logged for high-volume events.
func ShouldSampleDebug() bool {
	if traceOverride {
		return true
	}
	return debugSampler.Allow()
}

// TraceEnabled indicates whether trace override is forcing full debug output.
func TraceEnabled() bool {
	return traceOverride
}
