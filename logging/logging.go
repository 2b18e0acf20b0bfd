/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package logging provides the logrus loggers used across doccontext. Every
// component logs through Named, so level and format are configured in one place.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	baseOnce sync.Once
	base     *logrus.Logger
)

// Base returns the logger every named entry writes through.
func Base() *logrus.Logger {
	baseOnce.Do(func() {
		base = logrus.New()
		base.SetOutput(os.Stderr)
		base.SetLevel(logrus.InfoLevel)
		base.SetFormatter(formatter("text"))
	})
	return base
}

// Named returns an entry tagged with the component name.
func Named(component string) *logrus.Entry {
	return Base().WithField("component", component)
}

// Configure sets the level ("trace" through "panic") and format ("text" or
// "json") of the base logger. Unknown levels fall back to info.
func Configure(level, format string) {
	l := Base()
	l.SetLevel(ParseLevel(level))
	l.SetFormatter(formatter(format))
}

// SetOutput redirects the base logger, typically to a buffer in tests.
func SetOutput(w io.Writer) {
	Base().SetOutput(w)
}

// ParseLevel maps a level name to a logrus level.
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "info", "":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return &logrus.JSONFormatter{TimestampFormat: timestampFormat}
	}
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		DisableColors:   true,
	}
}
