// Package logging builds the root logrus logger of a pakd process from the
// log.* command line options.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/evalphobia/logrus_sentry"
	"github.com/sirupsen/logrus"
)

// Verbosity bounds, 0=fatal .. 5=trace.
const (
	MinVerbosity = 0
	MaxVerbosity = 5
)

var (
	// ErrVerbosity is returned for verbosities outside MinVerbosity..MaxVerbosity.
	ErrVerbosity = errors.New("log verbosity out of range")
	// ErrFormat is returned for formats other than text and json.
	ErrFormat = errors.New("unknown log format")
)

// Config mirrors the log.* flags.
type Config struct {
	Verbosity int
	Format    string // text|json
	Color     bool
	Sentry    string // DSN; empty disables error reporting

	// Output defaults to stderr.
	Output io.Writer
}

// SentryLevels are forwarded to Sentry when a DSN is configured.
var SentryLevels = []logrus.Level{
	logrus.PanicLevel,
	logrus.FatalLevel,
	logrus.ErrorLevel,
}

// Level maps a verbosity to its logrus level.
func Level(verbosity int) (logrus.Level, error) {
	if verbosity < MinVerbosity || verbosity > MaxVerbosity {
		return 0, fmt.Errorf("%w: %d", ErrVerbosity, verbosity)
	}
	// logrus counts panic as 0, so fatal sits one above.
	return logrus.Level(verbosity + 1), nil
}

// New returns a logger configured by cfg.
func New(cfg Config) (*logrus.Logger, error) {
	level, err := Level(cfg.Verbosity)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	} else {
		logger.SetOutput(os.Stderr)
	}

	switch cfg.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{
			ForceColors:   cfg.Color,
			DisableColors: !cfg.Color,
			FullTimestamp: true,
		})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, cfg.Format)
	}

	if cfg.Sentry != "" {
		hook, err := logrus_sentry.NewSentryHook(cfg.Sentry, SentryLevels)
		if err != nil {
			return nil, fmt.Errorf("sentry hook: %w", err)
		}
		hook.StacktraceConfiguration.Enable = true
		logger.AddHook(hook)
	}
	return logger, nil
}

// Module returns the entry a component logs through.
func Module(logger *logrus.Logger, module string) *logrus.Entry {
	return logger.WithField("module", module)
}
