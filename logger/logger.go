// Package logger builds kgchat's zap loggers. Log files rotate via
// lumberjack. The TUI uses the file-only variant so log lines never
// tear the rendered interface.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func rotator(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

func fileCore(path string, level zapcore.Level) zapcore.Core {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(rotator(path)),
		level,
	)
}

// New returns a logger that tees to the rotated file and stderr.
// Suitable for the headless session subcommands.
func New(path string, debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.Lock(os.Stderr),
		level,
	)
	return zap.New(zapcore.NewTee(fileCore(path, level), consoleCore), zap.AddCaller())
}

// NewFileOnly returns a logger that writes to the rotated file and
// nothing else, for use while the TUI owns the terminal.
func NewFileOnly(path string, debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	return zap.New(fileCore(path, level), zap.AddCaller())
}
