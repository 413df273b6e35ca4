// Package logging provides the console logger of the orgonboard command.
//
// The logger writes human readable lines through zerolog's ConsoleWriter and satisfies
// onboarding.Logger, so the onboarding components log through it without knowing zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel     = "ORGONBOARD_LOG_LEVEL"
	EnvLogTimestamp = "ORGONBOARD_LOG_TIMESTAMP"
	EnvLogNoColor   = "ORGONBOARD_LOG_NOCOLOR"
	EnvLogJSON      = "ORGONBOARD_LOG_JSON"
)

const badKey = "!BADKEY"

// Config controls the console output.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
	JSON      bool
}

// DefaultConfig returns the runtime defaults with environment overrides applied.
func DefaultConfig() Config {
	cfg := Config{
		Level:     zerolog.InfoLevel,
		Timestamp: true,
	}
	applyEnvOverrides(&cfg)

	return cfg
}

// Logger adapts a zerolog.Logger to key/value style logging.
type Logger struct {
	zl zerolog.Logger
}

// New creates a Logger writing to out, tagged with the application name.
func New(app string, out io.Writer, cfg Config) *Logger {
	if out == nil {
		out = os.Stderr
	}

	if !cfg.JSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    cfg.NoColor,
			TimeFormat: time.RFC3339,
		}
	}

	zctx := zerolog.New(out).Level(cfg.Level).With().Str("app", app)
	if cfg.Timestamp {
		zctx = zctx.Timestamp()
	}

	return &Logger{zl: zctx.Logger()}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	emit(l.zl.Debug(), msg, args)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	emit(l.zl.Info(), msg, args)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...any) {
	emit(l.zl.Warn(), msg, args)
}

// Error logs at error level.
func (l *Logger) Error(msg string, args ...any) {
	emit(l.zl.Error(), msg, args)
}

// emit turns alternating key/value args into typed fields. A key that is not a string is
// logged under !BADKEY, mirroring log/slog.
func emit(event *zerolog.Event, msg string, args []any) {
	if event == nil {
		return
	}

	for i := 0; i < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok || i+1 >= len(args) {
			event = event.Interface(badKey, args[i])
			i--
			continue
		}

		event = field(event, key, args[i+1])
	}

	event.Msg(msg)
}

func field(event *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return event.Str(key, v)
	case int:
		return event.Int(key, v)
	case int32:
		return event.Int32(key, v)
	case int64:
		return event.Int64(key, v)
	case float64:
		return event.Float64(key, v)
	case bool:
		return event.Bool(key, v)
	case time.Duration:
		return event.Dur(key, v)
	case time.Time:
		return event.Time(key, v)
	case error:
		return event.AnErr(key, v)
	case fmt.Stringer:
		return event.Stringer(key, v)
	default:
		return event.Interface(key, v)
	}
}

func applyEnvOverrides(cfg *Config) {
	if lvl, ok := parseLevel(os.Getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(os.Getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
	if v, ok := parseBool(os.Getenv(EnvLogJSON)); ok {
		cfg.JSON = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "disable", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
