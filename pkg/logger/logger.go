package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	// Logger process-wide logger; also installed as the logrus standard logger
	// so package-level entries (logrus.WithField) share its level and outputs.
	Logger = logrus.StandardLogger()

	currentLogFile string
	logMu          sync.Mutex
)

// Config logging settings
type Config struct {
	Level      string // debug, info, warn, error
	OutputFile string // empty = console only
	MaxSize    int    // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
	// Console also writes to stdout when a file is set. The TUI turns it off
	// so log lines do not tear the screen.
	Console bool
}

// Init configures the standard logger.
func Init(config Config) error {
	logMu.Lock()
	defer logMu.Unlock()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	Logger.SetLevel(level)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "06-01-02 15:04:05",
		ForceColors:     config.OutputFile == "",
	})

	var writers []io.Writer
	if config.OutputFile == "" || config.Console {
		writers = append(writers, os.Stdout)
	}

	if config.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputFile), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    orDefault(config.MaxSize, 100),
			MaxBackups: orDefault(config.MaxBackups, 3),
			MaxAge:     orDefault(config.MaxAge, 7),
			Compress:   config.Compress,
		})
		currentLogFile = config.OutputFile
	} else {
		currentLogFile = ""
	}

	Logger.SetOutput(io.MultiWriter(writers...))
	return nil
}

// InitDefault console logging at info level.
func InitDefault() error {
	return Init(Config{Level: "info"})
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func Debug(args ...interface{}) { Logger.Debug(args...) }

func Debugf(format string, args ...interface{}) { Logger.Debugf(format, args...) }

func Info(args ...interface{}) { Logger.Info(args...) }

func Infof(format string, args ...interface{}) { Logger.Infof(format, args...) }

func Warn(args ...interface{}) { Logger.Warn(args...) }

func Warnf(format string, args ...interface{}) { Logger.Warnf(format, args...) }

func Error(args ...interface{}) { Logger.Error(args...) }

func Errorf(format string, args ...interface{}) { Logger.Errorf(format, args...) }

// WithField entry with one field
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields entry with several fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// GetCurrentLogFile returns the active log file, "" when logging to console only.
func GetCurrentLogFile() string {
	logMu.Lock()
	defer logMu.Unlock()
	return currentLogFile
}
