package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"bogus", logrus.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SetupLogger(tt.level, "json").GetLevel(), tt.level)
	}
}

func TestSetupLogger_Format(t *testing.T) {
	_, isJSON := SetupLogger("info", "json").Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)

	_, isText := SetupLogger("info", "text").Formatter.(*logrus.TextFormatter)
	assert.True(t, isText)
}
