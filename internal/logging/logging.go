package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns the root log entry for the service. Unknown levels fall back
// to info; format "json" selects the JSON formatter, anything else the text
// formatter with full timestamps.
func New(level, format string) *logrus.Entry {
	return NewWithOutput(os.Stderr, level, format)
}

func NewWithOutput(out io.Writer, level, format string) *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(out)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	return logger.WithField("service", "docsearch")
}
