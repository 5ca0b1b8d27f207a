package logger

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	timeKey   = "time"
	levelKey  = "level"
	sourceKey = "source"
	callerKey = "caller"
	msgKey    = "msg"
)

var (
	once        sync.Once
	sugarLogger *zap.SugaredLogger

	level  = zap.NewAtomicLevelAt(zap.InfoLevel)
	logDir = "logs"
)

// Configure sets the level and log directory. It must run before the first
// NewNamedLogger call to affect the file location.
func Configure(levelName, dir string) {
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}
	if dir != "" {
		logDir = dir
	}
}

func initializeLogger() {
	logPath := filepath.Join(logDir, "app.log")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		logPath = "app.log"
	}

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    50,
		MaxBackups: 10,
		MaxAge:     28,
		Compress:   true,
		LocalTime:  true,
	})
	stdWriter := zapcore.AddSync(os.Stdout)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        timeKey,
		LevelKey:       levelKey,
		NameKey:        sourceKey,
		CallerKey:      callerKey,
		MessageKey:     msgKey,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), fileWriter, level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), stdWriter, level),
	)

	sugarLogger = zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).Sugar()
}

// NewNamedLogger returns a SugaredLogger scoped to the given component.
func NewNamedLogger(name string) *zap.SugaredLogger {
	once.Do(initializeLogger)
	return sugarLogger.Named(name)
}

// Sync flushes buffered entries.
func Sync() {
	if sugarLogger != nil {
		_ = sugarLogger.Sync()
	}
}
