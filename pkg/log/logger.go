package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// OutputConfig describes where the global logger writes.
type OutputConfig struct {
	// File is the path of a rotated log file. Empty means stderr only.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// SetupLogger configures the global zerolog provider with the given level and output.
func SetupLogger(level string, out OutputConfig) error {
	lvl, err := ToLogLevel(level)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stderr
	if out.File != "" {
		rotated := &lumberjack.Logger{
			Filename:   out.File,
			MaxSize:    orDefault(out.MaxSizeMB, 100), // MB
			MaxBackups: orDefault(out.MaxBackups, 3),
			MaxAge:     orDefault(out.MaxAgeDays, 28), // days
		}
		// debug では端末にも出す
		if lvl == LevelDebug {
			w = io.MultiWriter(rotated, os.Stderr)
		} else {
			w = rotated
		}
	}

	SetLoggerProvider(NewZerologProvider(w, lvl))
	return nil
}

// ToLogLevel parses a level name.
func ToLogLevel(level string) (Level, error) {
	switch strings.ToLower(level) {
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)
