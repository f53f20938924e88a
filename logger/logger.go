package logger

import (
	"io"
	"os"
	"strings"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"fleet-ops-api/config"
)

// Setup configures the standard logrus logger and returns the writer it
// logs to, so that request logging can share the same sink.
func Setup(cfg config.LogConfig) io.Writer {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 7,
			MaxAge:     7, // days
			Compress:   true,
		}
	}
	logrus.SetOutput(out)

	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logrus.WithField("level", cfg.Level).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	return out
}
