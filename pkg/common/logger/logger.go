package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

func Init() {
	Log = logrus.New()
	Log.SetOutput(os.Stdout)
	Log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	Log.SetLevel(logLevel)
}

// InitQuiet keeps only errors; used by tests and the CLI --quiet mode.
func InitQuiet() {
	Init()
	Log.SetLevel(logrus.ErrorLevel)
}

func WithField(key string, value interface{}) *logrus.Entry {
	ensure()
	return Log.WithField(key, value)
}

func WithFields(fields logrus.Fields) *logrus.Entry {
	ensure()
	return Log.WithFields(fields)
}

func ensure() {
	if Log == nil {
		Init()
	}
}
