package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. It is usable before Init is called so that
// packages and tests never see a nil logger.
var Log = logrus.New()

// Init configures Log from a level name and an optional log file. Output goes
// to stderr and, when filePath is set, to the file as well.
func Init(levelStr, filePath string) error {
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	Log.SetLevel(level)

	writers := []io.Writer{os.Stderr}
	if filePath != "" {
		if dir := filepath.Dir(filePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating log directory: %w", err)
			}
		}
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, file)
	}
	Log.SetOutput(io.MultiWriter(writers...))
	return nil
}

// Degraded logs that an optional subsystem answered with a fallback value.
func Degraded(subsystem, projectCode string, err error) {
	Log.WithFields(logrus.Fields{
		"subsystem":    subsystem,
		"project_code": projectCode,
		"degraded":     true,
	}).WithError(err).Warn("optional subsystem unavailable, using fallback")
}
