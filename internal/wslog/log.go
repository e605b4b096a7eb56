// Package wslog builds the zap.Logger the rest of the server shares,
// wiring the configured log level and an optional lumberjack rotation sink.
package wslog

import (
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Level mirrors the configuration surface's log_level enum:
// debug/info/warn/error/critical. "critical" has no direct zap equivalent
// and maps to zap's DPanicLevel, the closest "something is badly wrong"
// level zap ships.
type Level string

const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarn     Level = "warn"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

func (l Level) zapLevel() (zapcore.Level, error) {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel, nil
	case LevelInfo, "":
		return zapcore.InfoLevel, nil
	case LevelWarn:
		return zapcore.WarnLevel, nil
	case LevelError:
		return zapcore.ErrorLevel, nil
	case LevelCritical:
		return zapcore.DPanicLevel, nil
	default:
		return 0, errors.Errorf("wslog: unknown log level %q", l)
	}
}

// RotationConfig configures the lumberjack sink. A zero value (Filename
// empty) disables rotation and logs to stderr only.
type RotationConfig struct {
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New builds a production zap.Logger at level, optionally tee-ing to a
// rotating file sink.
func New(level Level, rotation RotationConfig) (*zap.Logger, error) {
	zapLevel, err := level.zapLevel()
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), zapLevel),
	}
	if rotation.Filename != "" {
		sink := &lumberjack.Logger{
			Filename:   rotation.Filename,
			MaxSize:    rotation.MaxSizeMB,
			MaxBackups: rotation.MaxBackups,
			MaxAge:     rotation.MaxAgeDays,
			Compress:   rotation.Compress,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(sink), zapLevel))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.ErrorOutput(zapcore.AddSync(os.Stderr))), nil
}
