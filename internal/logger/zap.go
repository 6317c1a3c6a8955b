package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.DebugLevel

// toZapLevel converts a textual level to zapcore.Level using known level constants.
func toZapLevel(levelStr string) zapcore.Level {
	switch levelStr {
	case InfoLevel:
		return zapcore.InfoLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return defaultZapLevel
	}
}

// newConsoleCore builds a zapcore.Core with a console encoder. Output goes to
// stdout, teed into filePath when one is given.
func newConsoleCore(level zapcore.Level, filePath string) (zapcore.Core, error) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	encoder := zapcore.NewConsoleEncoder(cfg)
	ws := zapcore.Lock(os.Stdout) // thread-safe writer
	sink := zapcore.WriteSyncer(ws)
	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level)), err
		}
		sink = zapcore.NewMultiWriteSyncer(ws, zapcore.AddSync(f))
	}
	return zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(level)), nil
}

// newZapLogger constructs a sugared zap logger with the provided level string
// and optional file sink.
func newZapLogger(levelStr, filePath string) *Logger {
	core, err := newConsoleCore(toZapLevel(levelStr), filePath)
	log := &Logger{
		SugaredLogger: zap.New(core).Sugar(),
	}
	if err != nil {
		log.Warnw("log file unavailable, stdout only", "path", filePath, "err", err)
	}
	return log
}
