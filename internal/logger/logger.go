package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Elaine-one/shaanxi-heritage-ai-platform-sub001/internal/constants"
)

var (
	// Logger is the global logger instance
	Logger *log.Logger

	fileOutput io.Writer
	debugMode  bool
)

// Config holds logger configuration
type Config struct {
	Debug     bool
	ConfigDir string

	// Quiet suppresses the stderr mirror in debug mode, used while a full-screen UI owns the terminal
	Quiet bool
}

// Init initializes the global logger with the given configuration
func Init(cfg Config) error {
	logDir := filepath.Join(cfg.ConfigDir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, constants.AppName+".log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	fileOutput = fileWriter
	debugMode = cfg.Debug

	Logger = log.NewWithOptions(output(cfg.Quiet), log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          constants.AppName,
	})

	return nil
}

func output(quiet bool) io.Writer {
	if debugMode && !quiet {
		return io.MultiWriter(os.Stderr, fileOutput)
	}
	return fileOutput
}

// SetQuiet turns the stderr mirror of debug mode off or back on
func SetQuiet(quiet bool) {
	if Logger == nil {
		return
	}
	Logger.SetOutput(output(quiet))
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Debug(msg, keyvals...)
	}
}

// Info logs an info message
func Info(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Info(msg, keyvals...)
	}
}

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Warn(msg, keyvals...)
	}
}

// Error logs an error message
func Error(msg string, keyvals ...interface{}) {
	if Logger != nil {
		Logger.Error(msg, keyvals...)
	}
}
