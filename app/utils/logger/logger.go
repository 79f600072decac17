package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once     sync.Once
	instance *logrus.Logger
)

// GetLogger returns the process-wide logger, configured from LOG_LEVEL and LOG_FORMAT on first use.
func GetLogger() *logrus.Logger {
	once.Do(func() {
		instance = logrus.New()
		instance.SetOutput(os.Stdout)
		if strings.EqualFold(os.Getenv("LOG_FORMAT"), "text") {
			instance.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		} else {
			instance.SetFormatter(&logrus.JSONFormatter{})
		}
		level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
		if err != nil {
			level = logrus.InfoLevel
		}
		instance.SetLevel(level)
	})
	return instance
}
