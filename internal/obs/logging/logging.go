/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package logging sets up structured logging for vsteer. All components log
// through logr.Logger backed by zap, so log statements stay decoupled from
// the sink configuration.
package logging

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logging configuration.
type Config struct {
	Level       string
	Format      string // json or console
	Development bool
}

// DefaultConfig returns default logging configuration, overridable from the
// environment.
func DefaultConfig() *Config {
	return &Config{
		Level:       getEnvWithDefault("VSTEER_LOG_LEVEL", "info"),
		Format:      getEnvWithDefault("VSTEER_LOG_FORMAT", "console"),
		Development: getEnvBoolWithDefault("VSTEER_LOG_DEVELOPMENT", false),
	}
}

// New builds a logr.Logger from the configuration.
func New(config *Config) (logr.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if config.Development {
		zapConfig = zap.NewDevelopmentConfig()
	}

	if config.Format == "console" {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		zapConfig.Encoding = "json"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	level := zap.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zap.DebugLevel
	case "info":
		level = zap.InfoLevel
	case "warn", "warning":
		level = zap.WarnLevel
	case "error":
		level = zap.ErrorLevel
	default:
		return logr.Logger{}, fmt.Errorf("unknown log level %q", config.Level)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	// Logs go to stderr so the JSON action result on stdout stays parseable.
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	zapLog, err := zapConfig.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("failed to build logger: %w", err)
	}

	return zapr.NewLogger(zapLog), nil
}

type contextKey struct{}

// IntoContext stores the logger in the context.
func IntoContext(ctx context.Context, log logr.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext retrieves the logger from the context, falling back to a
// discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	if log, ok := ctx.Value(contextKey{}).(logr.Logger); ok {
		return log
	}
	return logr.Discard()
}

func getEnvWithDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBoolWithDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
