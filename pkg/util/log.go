package util

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger builds a logger handle for injection into a run. Nothing in this
// module logs through package-level state.
func NewLogger(w io.Writer, level string, json bool) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	if json {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05Z07:00",
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return l, nil
}

// DiscardLogger returns a logger that drops everything. Used when a caller
// injects no logger.
func DiscardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// WithDevice returns a logger with device context
func WithDevice(l logrus.FieldLogger, device string) logrus.FieldLogger {
	return l.WithField("device", device)
}
