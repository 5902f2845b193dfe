// Package logger configures the process-wide structured logger.
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

var Log = logrus.New()

type Entry = logrus.Entry

// Init configures level and format. JSON output is meant for the scheduled
// pipeline runs; the text formatter is friendlier when running locally.
func Init(level string, jsonFormat bool) {
	Log.SetOutput(os.Stderr)

	if jsonFormat {
		Log.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}
