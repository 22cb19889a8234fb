package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls the process-wide logger.
type Options struct {
	// Level is a logrus level name; empty or unknown falls back to info.
	Level string
	// JSON switches from the text formatter to JSON output.
	JSON bool
	// File, when set, also writes logs to a size-rotated file.
	File string
}

// Setup configures the global logrus logger. Level defaults come from the
// LOG_LEVEL environment variable when Options.Level is empty.
func Setup(opts Options) {
	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		logrus.SetLevel(lvl)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	if opts.JSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var out io.Writer = os.Stdout
	if opts.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    50, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, rotated)
	}
	logrus.SetOutput(out)
}
