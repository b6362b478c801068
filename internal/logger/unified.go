package logger

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// LogType represents the type of log message
type LogType string

const (
	UserLog LogType = "user"
	OpLog   LogType = "op"
)

// Status prefixes for user-facing messages
const (
	StatusStarting = "STARTING"
	StatusSuccess  = "SUCCESS"
	StatusFailed   = "FAILED"
	StatusBlocked  = "BLOCKED"
)

// UnifiedLogger wraps the process logrus logger shared by User and Op
type UnifiedLogger struct {
	mu     sync.RWMutex
	logger *logrus.Logger
}

var (
	unifiedLog *UnifiedLogger
	once       sync.Once
)

// GetLogger returns the global logger instance, initializing it if necessary
func GetLogger() *UnifiedLogger {
	once.Do(func() {
		initDefaultLogger()
	})
	return unifiedLog
}

func initDefaultLogger() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&CLIFormatter{
		DisableTimestamp: true,
		DisableLevel:     true,
	})

	unifiedLog = &UnifiedLogger{
		logger: logger,
	}
}

// GetInternalLogger returns the underlying logrus logger
func (l *UnifiedLogger) GetInternalLogger() *logrus.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.logger
}
