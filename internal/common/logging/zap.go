package logging

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapAdapter implements Logger on top of a zap console encoder
type ZapAdapter struct {
	z *zap.Logger
}

func NewZapLogger(config LogConfig) (Logger, error) {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.CallerKey = zapcore.OmitKey
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	enc.EncodeTime = zapcore.RFC3339TimeEncoder
	if config.TimeFormat != "" && config.TimeFormat != time.RFC3339 {
		enc.EncodeTime = zapcore.TimeEncoderOfLayout(config.TimeFormat)
	}

	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(out), zapLevel(config.Level))
	z := zap.New(core)
	if config.Prefix != "" {
		z = z.Named(config.Prefix)
	}
	return &ZapAdapter{z: z}, nil
}

// NewNopLogger discards every record
func NewNopLogger() Logger {
	return &ZapAdapter{z: zap.NewNop()}
}

func (a *ZapAdapter) Debug(msg string, fields ...Field) { a.z.Debug(msg, zapFields(fields)...) }
func (a *ZapAdapter) Info(msg string, fields ...Field)  { a.z.Info(msg, zapFields(fields)...) }
func (a *ZapAdapter) Warn(msg string, fields ...Field)  { a.z.Warn(msg, zapFields(fields)...) }

func (a *ZapAdapter) Error(msg string, err error, fields ...Field) {
	zf := zapFields(fields)
	if err != nil {
		zf = append(zf, zap.Error(err))
	}
	a.z.Error(msg, zf...)
}

func (a *ZapAdapter) WithFields(fields ...Field) Logger {
	if len(fields) == 0 {
		return a
	}
	return &ZapAdapter{z: a.z.With(zapFields(fields)...)}
}

// WithContext copies the request, analysis and graph ids found in ctx. It
// returns the receiver when ctx carries none of them.
func (a *ZapAdapter) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return a
	}

	var zf []zap.Field
	for _, key := range contextKeys {
		if v, _ := ctx.Value(key).(string); v != "" {
			zf = append(zf, zap.String(string(key), v))
		}
	}
	if zf == nil {
		return a
	}
	return &ZapAdapter{z: a.z.With(zf...)}
}

func (a *ZapAdapter) Sync() error {
	return a.z.Sync()
}

// zapLevel relies on zap's levels running Debug(-1) through Error(2) in the
// same order as LogLevel
func zapLevel(level LogLevel) zapcore.Level {
	if level < DebugLevel || level > ErrorLevel {
		return zapcore.InfoLevel
	}
	return zapcore.DebugLevel + zapcore.Level(level)
}

func zapFields(fields []Field) []zap.Field {
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return zf
}
