package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"info", logrus.InfoLevel},
		{"", logrus.InfoLevel},
		{"nonsense", logrus.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewFormatterByEnvironment(t *testing.T) {
	prod := New("info", "production")
	assert.IsType(t, &logrus.JSONFormatter{}, prod.Formatter)

	dev := New("debug", "development")
	assert.IsType(t, &logrus.TextFormatter{}, dev.Formatter)
	assert.Equal(t, logrus.DebugLevel, dev.GetLevel())
}
