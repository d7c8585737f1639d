package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var root = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Setup sets the process-wide log level. Unknown levels fall back to info.
func Setup(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	root = root.Level(parseLevel(level))
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func emit(level zerolog.Level, msg string, fields map[string]any) {
	e := root.WithLevel(level)
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}

func Debug(msg string, fields map[string]any) { emit(zerolog.DebugLevel, msg, fields) }
func Info(msg string, fields map[string]any)  { emit(zerolog.InfoLevel, msg, fields) }
func Warn(msg string, fields map[string]any)  { emit(zerolog.WarnLevel, msg, fields) }
func Error(msg string, fields map[string]any) { emit(zerolog.ErrorLevel, msg, fields) }
