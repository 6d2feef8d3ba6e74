package main

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger builds the command logger. Unknown levels fall back to info.
func newLogger(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	if lvl, err := logrus.ParseLevel(level); err == nil {
		l.SetLevel(lvl)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

func defaultLogger() *logrus.Logger {
	return newLogger("info", "text", os.Stderr)
}
