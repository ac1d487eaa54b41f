package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// configureLogger creates a logger for the given level name. "silent"
// suppresses everything short of a panic.
func configureLogger(level string) (*logrus.Logger, error) {
	var logLevel logrus.Level
	switch level {
	case "debug":
		logLevel = logrus.DebugLevel
	case "info", "":
		logLevel = logrus.InfoLevel
	case "warn":
		logLevel = logrus.WarnLevel
	case "error":
		logLevel = logrus.ErrorLevel
	case "silent":
		logLevel = logrus.PanicLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, error or silent)", level)
	}

	logger := logrus.New()
	logger.SetLevel(logLevel)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return logger, nil
}
