package config

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger creates the agent logger. Logs go to w (stderr in the CLI) because
// stdout carries the sample stream.
func NewLogger(w io.Writer, debug, jsonFormat bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if jsonFormat {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
