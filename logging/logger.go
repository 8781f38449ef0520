// Package logging monta o *zap.Logger do gateway. O logger é injetado nos
// componentes; nada aqui é global.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func New(cfg Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}

	if lvl := strings.TrimSpace(cfg.Level); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", lvl, err)
		}
		zc.Level.SetLevel(level)
	}

	zc.EncoderConfig.CallerKey = "caller"
	zc.EncoderConfig.StacktraceKey = "stacktrace"
	zc.EncoderConfig.TimeKey = "timestamp"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zc.Build()
}
