// Copyright 2024 The Context-Fabric Authors
// This file is part of Context-Fabric.
//
// Context-Fabric is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Context-Fabric is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Context-Fabric. If not, see <http://www.gnu.org/licenses/>.

// Package log wires the library's ambient logging (spec §6 "silent"
// verbosity, §7 "messages include the offending node id, feature name, and
// byte/line offset") to zap, the structured logger the teacher's own outer
// repo requires directly.
package log

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Silent mirrors spec §6's silent config values.
type Silent string

const (
	SilentDeep  Silent = "deep"  // only fatal
	SilentTerse Silent = "terse" // warnings and above
	SilentOff   Silent = "off"   // info and above
)

// Config configures a logger for one Fabric/compile session.
type Config struct {
	Silent Silent
	Output io.Writer
}

// New builds a logger honoring cfg.Silent's verbosity (spec §7 "User-visible
// failure: silent controls verbosity").
func New(cfg Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Silent {
	case SilentDeep:
		level = zapcore.ErrorLevel
	case SilentTerse:
		level = zapcore.WarnLevel
	default:
		level = zapcore.InfoLevel
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(out), level)
	return zap.New(core)
}

// WithStore returns a child logger tagged with the store directory, used
// throughout pkg/compiler and pkg/fabric so every log line is attributable
// to a specific store.
func WithStore(l *zap.Logger, dir string) *zap.Logger {
	return l.With(zap.String("store", dir))
}

// WithFeature tags a logger with the feature name being compiled/loaded —
// spec §7's "Messages include the offending node id, feature name...".
func WithFeature(l *zap.Logger, name string) *zap.Logger {
	return l.With(zap.String("feature", name))
}
