// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type Config struct {
	// Minimum level of a log required to be written. Options: trace, debug,
	// info, warn, error.
	Level string
	// text or json.
	Format string
	// Path of the file logs are appended to. Blank writes to stdout.
	File string
}

// New returns the logger described by cfg. The returned closer releases the
// log file, if any.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	lvl := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		if lvl, err = logrus.ParseLevel(cfg.Level); err != nil {
			return nil, nil, fmt.Errorf("parsing log level: %w", err)
		}
	}

	var formatter logrus.Formatter
	switch cfg.Format {
	case "", "text":
		formatter = &logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
			DisableSorting:  true,
		}
	case "json":
		formatter = &logrus.JSONFormatter{}
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		w, closer = f, f
	}

	return &logrus.Logger{
		Out:       w,
		Formatter: formatter,
		Hooks:     make(logrus.LevelHooks),
		Level:     lvl,
		ExitFunc:  os.Exit,
	}, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
