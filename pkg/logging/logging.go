// Copyright 2026 The Gantry Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging provides the shared logger used across gantry.
// All diagnostic output goes to stderr so that stdout stays reserved
// for machine-readable output (dry-run specs, streamed job logs).
package logging

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		ForceColors:      isatty.IsTerminal(os.Stderr.Fd()),
	})
	if os.Getenv("GANTRY_DEBUG") != "" {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetOutput redirects all log output, primarily for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	logger.Infof(format, args...)
}

// Warn logs a formatted message at warning level.
func Warn(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	logger.Errorf(format, args...)
}

// Fatal logs a formatted message at fatal level and exits with code 1.
func Fatal(format string, args ...any) {
	logger.Fatalf(format, args...)
}
