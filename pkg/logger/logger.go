package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration
type Config struct {
	Level      string `mapstructure:"level" envconfig:"level"`
	Format     string `mapstructure:"format" envconfig:"format" validate:"omitempty,oneof=console json"`
	TimeFormat string `mapstructure:"time_format" envconfig:"time_format"`
}

// New creates a zerolog logger writing to out. A nil out means stdout.
func New(cfg Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: cfg.TimeFormat,
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Setup installs the configured logger as the global one and as the
// fallback for contexts that carry no logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	l := New(cfg, os.Stdout)
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return l
}
