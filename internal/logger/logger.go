package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	User *UserLogger // Clean progress messages for users (stdout)
	Op   *OpLogger   // Detailed operational logs (stderr)
)

// init ensures loggers are never nil
func init() {
	internal := GetLogger().GetInternalLogger()
	User = &UserLogger{logger: internal}
	Op = &OpLogger{logger: internal}
}

type UserLogger struct {
	logger *logrus.Logger
}

type OpLogger struct {
	logger *logrus.Logger
}

func (u *UserLogger) entry(status string) *logrus.Entry {
	fields := logrus.Fields{"log_type": string(UserLog)}
	if status != "" {
		fields["status"] = status
	}
	return u.logger.WithFields(fields)
}

func (u *UserLogger) Info(msg string) {
	u.entry("").Info(msg)
}

func (u *UserLogger) Infof(format string, args ...interface{}) {
	u.entry("").Infof(format, args...)
}

func (u *UserLogger) Error(msg string) {
	u.entry(StatusFailed).Error(msg)
}

func (u *UserLogger) Errorf(format string, args ...interface{}) {
	u.entry(StatusFailed).Errorf(format, args...)
}

func (u *UserLogger) Warn(msg string) {
	u.entry(StatusBlocked).Warn(msg)
}

func (u *UserLogger) Warnf(format string, args ...interface{}) {
	u.entry(StatusBlocked).Warnf(format, args...)
}

// Starting reports a task or batch being dispatched
func (u *UserLogger) Starting(msg string) {
	u.entry(StatusStarting).Info(msg)
}

func (u *UserLogger) Startingf(format string, args ...interface{}) {
	u.entry(StatusStarting).Infof(format, args...)
}

// Success reports a task or run finishing cleanly
func (u *UserLogger) Success(msg string) {
	u.entry(StatusSuccess).Info(msg)
}

func (u *UserLogger) Successf(format string, args ...interface{}) {
	u.entry(StatusSuccess).Infof(format, args...)
}

// OpLogger methods - operational logs for debugging the scheduler
func (o *OpLogger) Info(msg string) {
	o.logger.WithField("log_type", string(OpLog)).Info(msg)
}

func (o *OpLogger) Infof(format string, args ...interface{}) {
	o.logger.WithField("log_type", string(OpLog)).Infof(format, args...)
}

func (o *OpLogger) Error(msg string) {
	o.logger.WithField("log_type", string(OpLog)).Error(msg)
}

func (o *OpLogger) Errorf(format string, args ...interface{}) {
	o.logger.WithField("log_type", string(OpLog)).Errorf(format, args...)
}

func (o *OpLogger) Warn(msg string) {
	o.logger.WithField("log_type", string(OpLog)).Warn(msg)
}

func (o *OpLogger) Warnf(format string, args ...interface{}) {
	o.logger.WithField("log_type", string(OpLog)).Warnf(format, args...)
}

func (o *OpLogger) Debug(msg string) {
	o.logger.WithField("log_type", string(OpLog)).Debug(msg)
}

func (o *OpLogger) Debugf(format string, args ...interface{}) {
	o.logger.WithField("log_type", string(OpLog)).Debugf(format, args...)
}

func (o *OpLogger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["log_type"] = string(OpLog)
	return o.logger.WithFields(fields)
}

// Component returns an operational entry tagged with the given component name.
// Each scheduler instance holds its own entry so instances stay independent.
func (o *OpLogger) Component(name string) *logrus.Entry {
	return o.WithFields(map[string]interface{}{"component": name})
}

// CLIFormatter provides clean output for CLI applications
type CLIFormatter struct {
	DisableTimestamp bool
	DisableLevel     bool
	DisableColors    bool
}

func (f *CLIFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer

	if f.DisableLevel && f.DisableTimestamp {
		b.WriteString(entry.Message)
		b.WriteByte('\n')
		return b.Bytes(), nil
	}

	if !f.DisableTimestamp {
		b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}

	if !f.DisableLevel {
		levelColor := ""
		resetColor := ""
		if !f.DisableColors {
			switch entry.Level {
			case logrus.ErrorLevel:
				levelColor = "\033[31m" // Red
			case logrus.WarnLevel:
				levelColor = "\033[33m" // Yellow
			case logrus.InfoLevel:
				levelColor = "\033[36m" // Cyan
			case logrus.DebugLevel:
				levelColor = "\033[37m" // White
			}
			resetColor = "\033[0m"
		}

		b.WriteString(levelColor)
		b.WriteString(strings.ToUpper(entry.Level.String()))
		b.WriteString(resetColor)
		b.WriteString(": ")
	}

	b.WriteString(entry.Message)

	// Fields in stable order, routing fields omitted
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k == "log_type" || k == "status" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(" %s=%v", k, entry.Data[k]))
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

// Environment overrides applied by Setup
const (
	EnvLogMode   = "DEPSCHED_LOG_MODE"   // quiet|verbose|debug
	EnvLogFormat = "DEPSCHED_LOG_FORMAT" // json|text
)

// Setup configures output routing and verbosity. EnvLogMode and EnvLogFormat
// override the flags.
func Setup(verbose bool, jsonLogs bool, quiet bool) {
	if envLogMode := os.Getenv(EnvLogMode); envLogMode != "" {
		switch envLogMode {
		case "quiet":
			quiet = true
			verbose = false
		case "verbose", "debug":
			verbose = true
			quiet = false
		}
	}

	if envLogFormat := os.Getenv(EnvLogFormat); envLogFormat != "" {
		switch envLogFormat {
		case "json":
			jsonLogs = true
		case "text":
			jsonLogs = false
		}
	}

	ul := GetLogger()
	internalLogger := ul.GetInternalLogger()

	var level logrus.Level
	if quiet {
		level = logrus.ErrorLevel
	} else if verbose {
		level = logrus.DebugLevel
	} else {
		level = logrus.InfoLevel
	}

	internalLogger.Hooks = make(logrus.LevelHooks)
	internalLogger.SetLevel(level)
	// Output is handled by the routing hook
	internalLogger.SetOutput(io.Discard)

	hook := NewOutputRouterHook()
	if jsonLogs {
		internalLogger.SetFormatter(&logrus.JSONFormatter{})
		hook.UserFormatter = &logrus.JSONFormatter{}
		hook.OpFormatter = &logrus.JSONFormatter{}
	} else {
		internalLogger.SetFormatter(&logrus.TextFormatter{})
		hook.UserFormatter = &CLIFormatter{
			DisableTimestamp: true,
			DisableLevel:     true,
		}
		if verbose {
			hook.OpFormatter = &logrus.TextFormatter{
				FullTimestamp: true,
				ForceColors:   isatty.IsTerminal(os.Stderr.Fd()),
			}
		} else {
			hook.OpFormatter = &CLIFormatter{
				DisableTimestamp: true,
				DisableColors:    !isatty.IsTerminal(os.Stderr.Fd()),
			}
		}
	}
	internalLogger.AddHook(hook)

	User = &UserLogger{logger: internalLogger}
	Op = &OpLogger{logger: internalLogger}
}
