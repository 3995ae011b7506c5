// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	EnvLogLevel  = "SWAYIPC_LOG_LEVEL"
	EnvLogFormat = "SWAYIPC_LOG_FORMAT"
)

// Profile selects baseline defaults before env overrides apply.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

var configureOnce sync.Once

// ConfigureRuntime applies runtime defaults: info level, console output
// when stderr is a terminal, JSON otherwise.
func ConfigureRuntime() {
	Configure(ProfileRuntime, "", "")
}

// ConfigureTests applies test defaults: warn level, plain console output.
func ConfigureTests() {
	Configure(ProfileTest, "", "")
}

// Configure sets up the global logger once. level and format override the
// profile defaults when non-empty; the SWAYIPC_LOG_* env vars override
// both.
func Configure(profile Profile, level, format string) {
	configureOnce.Do(func() {
		if v := os.Getenv(EnvLogLevel); v != "" {
			level = v
		}
		if v := os.Getenv(EnvLogFormat); v != "" {
			format = v
		}

		lvl, ok := parseLevel(level)
		if !ok {
			lvl = zerolog.InfoLevel
			if profile == ProfileTest {
				lvl = zerolog.WarnLevel
			}
		}
		zerolog.SetGlobalLevel(lvl)
		log.Logger = newLogger(profile, format)
	})
}

func newLogger(profile Profile, format string) zerolog.Logger {
	if profile == ProfileTest {
		w := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}
		return zerolog.New(w).With().Timestamp().Logger()
	}
	if useConsole(format) {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
		return zerolog.New(w).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func useConsole(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		return true
	case "json":
		return false
	}
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
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
	case "none", "off", "disabled":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
