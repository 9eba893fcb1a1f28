package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

// InitLogger sets up the shared structured logger. JSON to stdout; level
// comes from LOG_LEVEL and defaults to info.
func InitLogger() {
	Log = logrus.New()
	Log.SetFormatter(&logrus.JSONFormatter{})
	Log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)
}

// Logger returns the shared logger, initializing it on first use so tests
// that skip InitLogger still get a working instance.
func Logger() *logrus.Logger {
	if Log == nil {
		InitLogger()
	}
	return Log
}
