// Package logging adapts zap and zerolog to autocrud.Logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-autocrud"
)

// Config holds logger configuration
type Config struct {
	Level   string // debug, info, warn, error
	Backend string // zap or zerolog
	Pretty  bool
	Output  io.Writer
}

// New returns the logger selected by cfg.Backend, zap by default.
func New(cfg Config) autocrud.Logger {
	if cfg.Backend == "zerolog" {
		return NewZerolog(cfg)
	}
	return NewZap(cfg)
}

// Zap wraps a sugared zap logger.
type Zap struct {
	sugar *zap.SugaredLogger
}

var _ autocrud.Logger = (*Zap)(nil)

// NewZap builds a JSON zap logger, console encoded when cfg.Pretty.
func NewZap(cfg Config) *Zap {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	encoder := zapcore.NewJSONEncoder(encoderCfg)
	if cfg.Pretty {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(output), level)
	return &Zap{sugar: zap.New(core).Named("autocrud").Sugar()}
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) *Zap {
	return &Zap{sugar: l.Sugar()}
}

func (z *Zap) Debug(format string, args ...any) { z.sugar.Debugf(format, args...) }
func (z *Zap) Info(format string, args ...any)  { z.sugar.Infof(format, args...) }
func (z *Zap) Warn(format string, args ...any)  { z.sugar.Warnf(format, args...) }
func (z *Zap) Error(format string, args ...any) { z.sugar.Errorf(format, args...) }

// Sync flushes buffered entries.
func (z *Zap) Sync() error {
	return z.sugar.Sync()
}

// Zerolog wraps a zerolog logger.
type Zerolog struct {
	zlog zerolog.Logger
}

var _ autocrud.Logger = (*Zerolog)(nil)

// NewZerolog builds a zerolog logger. Unlike zerolog.SetGlobalLevel the
// level only applies to the returned logger.
func NewZerolog(cfg Config) *Zerolog {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "autocrud").
		Logger()

	return &Zerolog{zlog: zlog}
}

// FromZerolog wraps an existing zerolog logger.
func FromZerolog(l zerolog.Logger) *Zerolog {
	return &Zerolog{zlog: l}
}

func (z *Zerolog) Debug(format string, args ...any) { z.zlog.Debug().Msgf(format, args...) }
func (z *Zerolog) Info(format string, args ...any)  { z.zlog.Info().Msgf(format, args...) }
func (z *Zerolog) Warn(format string, args ...any)  { z.zlog.Warn().Msgf(format, args...) }
func (z *Zerolog) Error(format string, args ...any) { z.zlog.Error().Msgf(format, args...) }
