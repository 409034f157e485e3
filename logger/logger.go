// Package logger builds the zerolog loggers used by qkdsim.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const consoleTimeFormat = time.RFC3339

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFunc = utcNow
}

func utcNow() time.Time {
	return time.Now().UTC()
}

// Config selects where log output goes.
type Config struct {
	// MinLevel is a zerolog level name. Unparseable levels fall back to info.
	MinLevel string
	// Console enables human-readable output on Console, or stderr if nil.
	Console    bool
	ConsoleOut io.Writer
	// File, if set, receives JSON lines rotated by size.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Create builds a logger writing to the outputs cfg enables. With no outputs
// enabled it returns a disabled logger.
func Create(cfg Config) *zerolog.Logger {
	var writers []io.Writer
	if cfg.Console {
		out := cfg.ConsoleOut
		if out == nil {
			out = os.Stderr
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat})
	}
	if cfg.File != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize == 0 {
			maxSize = 10
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    maxSize,
			MaxBackups: cfg.MaxBackups,
		})
	}
	if len(writers) == 0 {
		nop := zerolog.Nop()
		return &nop
	}

	level, levelErr := zerolog.ParseLevel(cfg.MinLevel)
	if levelErr != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp().Logger()
	if levelErr != nil {
		log.Error().Msgf("Failed to parse log level %q, using %q instead", cfg.MinLevel, level)
	}
	return &log
}
