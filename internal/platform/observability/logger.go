package observability

import (
	"context"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/skm-mango/storefront/internal/platform/requestctx"
)

const (
	defaultLogLevel     = "info"
	defaultMaxSizeMB    = 64
	defaultMaxBackups   = 7
	defaultMaxAgeDays   = 7
	severityKey         = "severity"
	messageKey          = "message"
	timestampKey        = "timestamp"
	defaultStringLimit  = 256
	maxRouteLength      = 180
	maxIdentifierLength = 64
)

// LoggerOptions controls logger construction. Zero values fall back to LOG_LEVEL and LOG_FILE.
type LoggerOptions struct {
	Level string
	File  string
}

// NewLogger builds a JSON zap logger writing to stdout and, when a file is set, to a rotated log file.
func NewLogger(opts ...LoggerOptions) (*zap.Logger, error) {
	var options LoggerOptions
	if len(opts) > 0 {
		options = opts[0]
	}
	if strings.TrimSpace(options.Level) == "" {
		options.Level = os.Getenv("LOG_LEVEL")
	}
	if strings.TrimSpace(options.File) == "" {
		options.File = os.Getenv("LOG_FILE")
	}

	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(options.Level)))); err != nil {
		_ = level.UnmarshalText([]byte(defaultLogLevel))
	}

	encoder := zapcore.NewJSONEncoder(encoderConfig())
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
	}
	if file := strings.TrimSpace(options.File); file != "" {
		rotated := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    defaultMaxSizeMB,
			MaxBackups: defaultMaxBackups,
			MaxAge:     defaultMaxAgeDays,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotated), level))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.ErrorOutput(zapcore.Lock(os.Stderr))), nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey: messageKey,
		TimeKey:    timestampKey,
		LevelKey:   severityKey,
		CallerKey:  "caller",
		EncodeTime: zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(strings.ToUpper(level.String()))
		},
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

// EventLogger adapts zap to the event logger signature used by services. The request logger on ctx wins
// over fallback so service events carry request fields.
func EventLogger(fallback *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	if fallback == nil {
		fallback = zap.NewNop()
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		logger := requestctx.Logger(ctx)
		if logger == requestctx.NoopLogger() {
			logger = fallback
		}
		zfields := make([]zap.Field, 0, len(fields))
		for k, v := range fields {
			zfields = append(zfields, zap.Any(k, v))
		}
		logger.Info(event, zfields...)
	}
}

func cleanString(value string, limit int) string {
	if limit <= 0 {
		limit = defaultStringLimit
	}
	out := make([]rune, 0, len(value))
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return string(out)
}
