// File: internal/logging/logger.go
// Author: momentics <momentics@gmail.com>
//
// Package-scoped structured loggers backed by logrus.

package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

var baseLogger = logrus.New()

// PackageLogger returns a logger tagged with the given component name.
func PackageLogger(component string) *logrus.Entry {
	return baseLogger.WithField("component", component)
}

// SetLevel parses and applies a level name such as "debug" or "warn".
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	baseLogger.SetLevel(lvl)
	return nil
}

// SetOutput redirects every package logger.
func SetOutput(w io.Writer) {
	baseLogger.SetOutput(w)
}

// Base exposes the shared logger for callers that need hooks or formatters.
func Base() *logrus.Logger {
	return baseLogger
}
