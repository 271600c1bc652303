package logger

import (
	"os"
	"strings"

	"means-server/src/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger provides named, leveled logging backed by zap
type Logger struct {
	name   string
	sugar  *zap.SugaredLogger
	config *models.MConfig
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance. A nil config logs at INFO to the console.
func NewLogger(config *models.MConfig, name string) *Logger {
	level, format := "INFO", "console"
	if config != nil {
		if config.LogLevel != "" {
			level = config.LogLevel
		}
		if config.LogFormat != "" {
			format = config.LogFormat
		}
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(format, "json") {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), ParseLevel(level))

	return &Logger{
		name:   name,
		sugar:  zap.New(core).Named(name).Sugar(),
		config: config,
	}
}

// -----------------------------------------------------------------------------

// NewNopLogger returns a Logger that discards everything (tests)
func NewNopLogger() *Logger {
	return &Logger{name: "nop", sugar: zap.NewNop().Sugar()}
}

// -----------------------------------------------------------------------------

// ParseLevel maps config level names onto zap levels
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	case "CRITICAL", "FATAL":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Named returns a child logger sharing the same core
func (l *Logger) Named(name string) *Logger {
	return &Logger{
		name:   l.name + "." + name,
		sugar:  l.sugar.Named(name),
		config: l.config,
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs at fatal level (shown even at CRITICAL) and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	// Fatal entries sync and exit inside zap; os.Exit covers a disabled core
	l.sugar.Logf(zapcore.FatalLevel, "CRITICAL: "+format, args...)
	l.Sync()
	os.Exit(1)
}

// -----------------------------------------------------------------------------

// Sync flushes any buffered entries
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}
