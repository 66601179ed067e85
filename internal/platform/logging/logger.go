package logging

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/janisto/hello-devops/internal/platform/timeutil"
)

var (
	loggerOnce sync.Once
	baseLogger *zap.Logger
	loggerErr  error

	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

	projectMu sync.RWMutex
	projectID string
)

// Options adjusts the process-wide logger after startup configuration is known.
type Options struct {
	// Level is one of debug, info, warn or error. Empty keeps the current level.
	Level string
	// ProjectID enables Cloud Trace correlation fields when set.
	ProjectID string
}

// Configure applies opts to the shared logger. It is safe to call before or after Logger.
func Configure(opts Options) error {
	if opts.Level != "" {
		lvl, err := ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level.SetLevel(lvl)
	}
	projectMu.Lock()
	projectID = opts.ProjectID
	projectMu.Unlock()
	return nil
}

// ParseLevel accepts the level names allowed in configuration.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Level reports the currently enabled level.
func Level() zapcore.Level {
	return level.Level()
}

func currentProjectID() string {
	projectMu.RLock()
	defer projectMu.RUnlock()
	return projectID
}

func encodeTimeMicros(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(timeutil.FormatMicros(t))
}

// encodeSeverity maps zap levels to Cloud Logging severity names.
func encodeSeverity(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var severity string
	switch l {
	case zapcore.DebugLevel:
		severity = "DEBUG"
	case zapcore.InfoLevel:
		severity = "INFO"
	case zapcore.WarnLevel:
		severity = "WARNING"
	case zapcore.ErrorLevel:
		severity = "ERROR"
	case zapcore.DPanicLevel:
		severity = "CRITICAL"
	case zapcore.PanicLevel:
		severity = "ALERT"
	case zapcore.FatalLevel:
		severity = "EMERGENCY"
	default:
		severity = "DEFAULT"
	}
	enc.AppendString(severity)
}

func initLogger() {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stdout"}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = encodeTimeMicros
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.EncodeLevel = encodeSeverity
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.CallerKey = "caller"

	baseLogger, loggerErr = cfg.Build(zap.AddCaller())
	if loggerErr != nil {
		baseLogger = zap.NewNop()
	}
}

// Logger returns the process-wide zap.Logger instance.
func Logger() *zap.Logger {
	loggerOnce.Do(initLogger)
	return baseLogger
}

// Sync flushes buffered log entries. Call during shutdown.
func Sync() error {
	loggerOnce.Do(initLogger)
	return baseLogger.Sync()
}

// Err reports initialization failure, if any.
func Err() error {
	loggerOnce.Do(initLogger)
	return loggerErr
}
