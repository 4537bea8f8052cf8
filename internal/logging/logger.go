package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLogFile is where the detailed debug log is written unless
// overridden with the LOG_FILE environment variable.
const DefaultLogFile = "google-cloud-bench.log"

var (
	// Default logger instance
	defaultLogger *zap.Logger
)

// InitLogger initializes the default logger with two sinks: a
// human-readable console stream on stdout and a detailed JSON debug
// log written to a file. The file is truncated on every run.
func InitLogger() error {
	consoleLevel := zapcore.InfoLevel
	if os.Getenv("LOG_LEVEL") == "debug" {
		consoleLevel = zapcore.DebugLevel
	}

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = DefaultLogFile
	}

	file, err := os.Create(logFile)
	if err != nil {
		return err
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig()), zapcore.Lock(os.Stdout), consoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig()), zapcore.AddSync(file), zapcore.DebugLevel),
	)

	defaultLogger = zap.New(core)

	// Replace global logger and route third-party libraries that use
	// the standard library logger through zap at warn level only.
	zap.ReplaceGlobals(defaultLogger)
	zap.RedirectStdLogAt(defaultLogger, zapcore.WarnLevel)
	return nil
}

// consoleEncoderConfig builds the simplified stdout format: timestamp,
// level and message.
func consoleEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return cfg
}

// fileEncoderConfig builds the detailed file format with caller and
// stacktrace information preserved.
func fileEncoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.LevelKey = "level"
	cfg.MessageKey = "message"
	cfg.CallerKey = "caller"
	cfg.StacktraceKey = "stacktrace"
	return cfg
}

// Logger returns the default logger instance
func Logger() *zap.Logger {
	if defaultLogger == nil {
		// Fallback to basic logger if not initialized
		logger, err := zap.NewProduction()
		if err != nil {
			// If production logger fails, try development logger as last resort
			logger, err = zap.NewDevelopment()
			if err != nil {
				// If all else fails, use Nop logger to prevent nil pointer
				logger = zap.NewNop()
			}
		}
		defaultLogger = logger
	}
	return defaultLogger
}

// Sync flushes any buffered log entries
func Sync() error {
	if defaultLogger != nil {
		if err := defaultLogger.Sync(); err != nil {
			// Sync errors are often safe to ignore (e.g., /dev/stderr on Linux)
			// but we log them for debugging
			defaultLogger.Error("failed to sync logger", zap.Error(err))
			return err
		}
	}
	return nil
}
