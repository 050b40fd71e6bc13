package logging

import (
	"os"
	"strings"

	"github.com/ogurasousui/business-license-api/internal/platform/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger は JSON 形式の構造化ロガーを生成します。
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	return newLogger(cfg, zapcore.AddSync(os.Stdout))
}

func newLogger(cfg config.LogConfig, out zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level == "" {
		level.SetLevel(zapcore.InfoLevel)
	} else if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return nil, err
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "severity",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeLevel:    severityEncoder,
	}

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), out, level)

	logger := zap.New(core, zap.AddCaller())
	if cfg.Component != "" {
		logger = logger.With(zap.String("component", cfg.Component))
	}

	return logger, nil
}

func severityEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		enc.AppendString("ALERT")
	case zapcore.FatalLevel:
		enc.AppendString("CRITICAL")
	default:
		enc.AppendString(strings.ToUpper(l.String()))
	}
}
