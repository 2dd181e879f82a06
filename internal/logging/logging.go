// Package logging builds the zap loggers shared by the services.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger tagged with the service name. Debug switches to
// the human-readable development encoder at debug level.
func New(service string, debug bool) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.Fields(zap.String("service", service)))
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Must is New that falls back to a no-op logger instead of failing.
func Must(service string, debug bool) *zap.SugaredLogger {
	l, err := New(service, debug)
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return l
}
