/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package log

import (
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseLevel maps a config string to a Level, defaulting to InfoLevel.
func ParseLevel(s string) Level {
	var zl zapcore.Level
	if err := zl.UnmarshalText([]byte(s)); err != nil {
		return InfoLevel
	}
	switch zl {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.WarnLevel:
		return WarnLevel
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return ErrorLevel
	}
	return InfoLevel
}

var (
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger atomic.Pointer[zap.SugaredLogger]
)

func init() {
	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.Sampling = nil
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		l = zap.NewNop()
	}
	logger.Store(l.Sugar())
}

// SetLogLevel changes the level of the package logger.
func SetLogLevel(l Level) {
	level.SetLevel(l.zapLevel())
}

// AtomicLevel is the level SetLogLevel controls. Loggers passed to SetLogger
// follow SetLogLevel only if they are built with it.
func AtomicLevel() zap.AtomicLevel {
	return level
}

// SetLogger replaces the package logger, e.g. with one built by the CLI.
// Callers keep ownership of the logger and are responsible for Sync.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l.WithOptions(zap.AddCallerSkip(1)).Sugar())
}

// Logger returns the underlying zap logger.
func Logger() *zap.Logger {
	return logger.Load().Desugar()
}

func Sync() error {
	return logger.Load().Sync()
}

func Debug(format string, args ...any) {
	logger.Load().Debugf(format, args...)
}

func Info(format string, args ...any) {
	logger.Load().Infof(format, args...)
}

func Warn(format string, args ...any) {
	logger.Load().Warnf(format, args...)
}

func Error(format string, args ...any) {
	logger.Load().Errorf(format, args...)
}
