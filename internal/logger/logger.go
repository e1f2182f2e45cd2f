// Package logger writes structured logs to a rotating file under the data
// directory. Until Init runs every helper is a no-op, so packages can log
// unconditionally and tests need no setup.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/julianstephens/identityforge/internal/constants"
)

// Logger is nil until Init succeeds.
var Logger *log.Logger

type Config struct {
	// Debug lowers the level to debug, adds caller info and mirrors output
	// to stderr.
	Debug bool
	// DataDir is the directory holding the store file.
	DataDir string
}

// Path returns the active log file for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, constants.LogDirName, constants.AppName+".log")
}

func Init(cfg Config) error {
	file := Path(cfg.DataDir)
	if err := os.MkdirAll(filepath.Dir(file), 0700); err != nil {
		return err
	}

	var out io.Writer = &lumberjack.Logger{
		Filename:   file,
		MaxSize:    constants.LogMaxSizeMB,
		MaxBackups: constants.LogMaxBackups,
		MaxAge:     constants.LogMaxAgeDays,
		Compress:   true,
	}
	level := log.InfoLevel
	if cfg.Debug {
		out = io.MultiWriter(os.Stderr, out)
		level = log.DebugLevel
	}

	Logger = log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          constants.AppName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		ReportCaller:    cfg.Debug,
	})
	return nil
}

func Debug(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Helper()
		Logger.Debug(msg, keyvals...)
	}
}

func Info(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Helper()
		Logger.Info(msg, keyvals...)
	}
}

func Warn(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Helper()
		Logger.Warn(msg, keyvals...)
	}
}

func Error(msg string, keyvals ...any) {
	if Logger != nil {
		Logger.Helper()
		Logger.Error(msg, keyvals...)
	}
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, keyvals ...any) {
	Error(msg, keyvals...)
	os.Exit(1)
}
