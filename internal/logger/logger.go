package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config selects where log lines go and what gets scrubbed on the way out.
type Config struct {
	Level     string
	File      string
	Console   bool
	Pretty    bool
	Redaction bool
}

// Logger owns the configured zerolog instance and the log file handle,
// if any. Close releases the file.
type Logger struct {
	zl   zerolog.Logger
	file *os.File
}

// DefaultConfig is console output at info with redaction on.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Console:   true,
		Pretty:    true,
		Redaction: true,
	}
}

// New builds the process logger. An unrecognized level falls back to
// info rather than failing startup.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	sink, file, err := openSink(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Redaction {
		sink = NewRedactor().wrap(sink)
	}

	zl := zerolog.New(sink).Level(level).With().Timestamp().Logger()
	log.Logger = zl

	return &Logger{zl: zl, file: file}, nil
}

func openSink(cfg Config) (io.Writer, *os.File, error) {
	var sinks []io.Writer

	if cfg.Console {
		if cfg.Pretty {
			sinks = append(sinks, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
		} else {
			sinks = append(sinks, os.Stdout)
		}
	}

	var file *os.File
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		sinks = append(sinks, f)
	}

	switch len(sinks) {
	case 0:
		return os.Stdout, nil, nil
	case 1:
		return sinks[0], file, nil
	default:
		return io.MultiWriter(sinks...), file, nil
	}
}

// GetZerolog returns the underlying zerolog.Logger for components that
// take one by value.
func (l *Logger) GetZerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debug() *zerolog.Event { return l.zl.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.zl.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.zl.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.zl.Error() }

// Close flushes and releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
