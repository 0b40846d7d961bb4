package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns the logger shared by the binaries. LOG_LEVEL wins over
// verbose when it parses.
func NewLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()

	// Set timestamp format with milliseconds
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
			return logger
		}
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}
