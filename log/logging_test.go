// SPDX-License-Identifier: GPL-3.0-or-later
package log

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestGetLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"TRACE", logrus.TraceLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"bogus", logrus.InfoLevel},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.expected, getLevel(tc.in))
		})
	}
}

func TestLogger(t *testing.T) {
	InitLogging("warn")
	assert.Equal(t, logrus.WarnLevel, Logger(LOG_SCANNER).Level)

	SetLogLevel("debug")
	assert.Equal(t, logrus.DebugLevel, Logger(LOG_MODEL).Level)

	assert.Panics(t, func() { Logger("XX") })
}

func TestPrefixLogger(t *testing.T) {
	formatter := NewPrefixLogger(LOG_MAIN)

	text, err := formatter.Format(logrus.NewEntry(logrus.New()).WithField("a", 1))

	assert.NoError(t, err)
	assert.Contains(t, string(text), "MA:\t")
	assert.Contains(t, string(text), "a=1")
}
