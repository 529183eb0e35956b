package common

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerWrapper is a leveled logger used across the daemon and the resolution engine.
// Info() takes a verbosity: 0 is always printed, greater values only if LogLevel from the configuration allows.
// Warnings and errors are always printed.
type LoggerWrapper struct {
	impl      *log.Logger
	verbosity int
	file      *os.File
}

// MakeLogger creates a logger writing to logFileName ("stderr" or empty means stderr).
// If duplicateToStderr is set, messages written to a file are also printed to stderr.
func MakeLogger(logFileName string, verbosity int, duplicateToStderr bool) (*LoggerWrapper, error) {
	var out io.Writer = os.Stderr
	var file *os.File

	if logFileName != "" && logFileName != "stderr" {
		if err := MkdirForFile(logFileName); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(logFileName, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		file = f
		out = f
		if duplicateToStderr {
			out = io.MultiWriter(f, os.Stderr)
		}
	}

	return &LoggerWrapper{
		impl:      makeLogImpl(out),
		verbosity: verbosity,
		file:      file,
	}, nil
}

// MakeStderrLogger is a logger that never fails to be created, used until MakeLogger is called.
func MakeStderrLogger(verbosity int) *LoggerWrapper {
	return &LoggerWrapper{
		impl:      makeLogImpl(os.Stderr),
		verbosity: verbosity,
	}
}

func makeLogImpl(out io.Writer) *log.Logger {
	return log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           log.DebugLevel,
	})
}

func (logger *LoggerWrapper) Info(verbosity int, args ...any) {
	if verbosity <= logger.verbosity {
		logger.impl.Info(joinLogArgs(args))
	}
}

func (logger *LoggerWrapper) Warn(args ...any) {
	logger.impl.Warn(joinLogArgs(args))
}

func (logger *LoggerWrapper) Error(args ...any) {
	logger.impl.Error(joinLogArgs(args))
}

func (logger *LoggerWrapper) Close() error {
	if logger.file == nil {
		return nil
	}
	return logger.file.Close()
}

// joinLogArgs formats args like fmt.Println does: always space-separated.
func joinLogArgs(args []any) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}
