// Package logging configures the logrus logger shared by the binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Formats accepted by Configure
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options controls logger setup
type Options struct {
	Level  string // logrus level name, "info" when empty
	Format string // "text" (default) or "json"
	Debug  bool   // forces debug level
	Output io.Writer
}

// Configure applies opts to logger
func Configure(logger *logrus.Logger, opts Options) error {
	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	if opts.Debug {
		level = logrus.DebugLevel
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case FormatJSON:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	default:
		return fmt.Errorf("log format %q: must be %s or %s", opts.Format, FormatText, FormatJSON)
	}

	out := opts.Output
	if out == nil {
		// stdout carries the MCP stdio protocol
		out = os.Stderr
	}
	logger.SetOutput(out)
	logger.SetLevel(level)
	return nil
}

// Setup configures the standard logrus logger
func Setup(opts Options) error {
	return Configure(logrus.StandardLogger(), opts)
}
