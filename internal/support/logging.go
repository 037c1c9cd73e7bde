package support

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ConfigureLogging sets the level of the default logger and, when LOG_FILE is
// set, tees the output into a rotating file. The returned closer flushes the file.
func ConfigureLogging(production bool) io.Closer {
	level := log.DebugLevel
	if production {
		level = log.InfoLevel
	}
	if raw := GetEnv("LOG_LEVEL", ""); raw != "" {
		if parsed, err := log.ParseLevel(strings.ToLower(raw)); err == nil {
			level = parsed
		} else {
			log.Warn("invalid LOG_LEVEL, keeping default", "value", raw)
		}
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)

	path := GetEnv("LOG_FILE", "")
	if path == "" {
		return nopCloser{}
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    GetEnvInt("LOG_MAX_SIZE_MB", 50),
		MaxBackups: GetEnvInt("LOG_MAX_BACKUPS", 5),
		MaxAge:     GetEnvInt("LOG_MAX_AGE_DAYS", 14),
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	log.Info("Logging to file", "path", path)

	return file
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
