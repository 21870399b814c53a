// Package logging configures the global zerolog logger used by the CLI and
// the API server.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/cx-miguel-neiva/crypto-analysis/internal/config"
)

// ParseLevel returns the zerolog level named by s, falling back to info.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// New builds a logger writing to console and, when cfg.File is set, to a
// rotating JSON log file. The returned closer releases the file.
func New(cfg config.LogConfig, console io.Writer) (zerolog.Logger, io.Closer) {
	if f, ok := console.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		console = zerolog.ConsoleWriter{Out: f, TimeFormat: time.Kitchen}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		writers = append(writers, file)
		closer = file
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Logger()
	return logger, closer
}

// Setup replaces the global logger with one built from cfg writing to stderr.
func Setup(cfg config.LogConfig) io.Closer {
	logger, closer := New(cfg, os.Stderr)
	zerolog.SetGlobalLevel(logger.GetLevel())
	log.Logger = logger
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
