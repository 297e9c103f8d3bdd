package logging

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds the process logger. Production output is JSON so log
// shippers can index fields; everything else gets human-readable text.
func New(level, environment string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(ParseLevel(level))

	if strings.ToLower(environment) == "production" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// ParseLevel converts a config string to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
