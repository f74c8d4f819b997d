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

package store

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// The error taxonomy from spec §7. Callers branch on kind with errors.Is
// against these sentinels; pkgerrors.Wrapf attaches file/path/node context
// without losing the underlying sentinel (errors.Is still matches through
// the wrap chain, and pkgerrors.Cause unwraps to it for logging).
var (
	// ErrNotPresent: optional file/feature absent. Recoverable.
	ErrNotPresent = errors.New("context-fabric: not present")
	// ErrSchemaMismatch: store version incompatible with this reader.
	ErrSchemaMismatch = errors.New("context-fabric: schema mismatch")
	// ErrMalformed: source file violates the feature-file grammar.
	ErrMalformed = errors.New("context-fabric: malformed source")
	// ErrInvariantViolation: data violates a documented invariant.
	ErrInvariantViolation = errors.New("context-fabric: invariant violation")
	// ErrCorruption: store file header/length mismatch.
	ErrCorruption = errors.New("context-fabric: store corruption")
	// ErrIoError: underlying I/O failure.
	ErrIoError = errors.New("context-fabric: io error")
)

// NotPresentf wraps ErrNotPresent with a formatted message.
func NotPresentf(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrNotPresent, format, args...)
}

// SchemaMismatchf wraps ErrSchemaMismatch with a formatted message.
func SchemaMismatchf(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrSchemaMismatch, format, args...)
}

// Malformedf wraps ErrMalformed with file:line context, per spec §7's
// "report file:line:message."
func Malformedf(path string, line int, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return pkgerrors.Wrapf(ErrMalformed, "%s:%d: %s", path, line, msg)
}

// InvariantViolationf wraps ErrInvariantViolation with a formatted message.
func InvariantViolationf(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrInvariantViolation, format, args...)
}

// Corruptionf wraps ErrCorruption with a formatted message, typically
// including the offending file path.
func Corruptionf(path string, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return pkgerrors.Wrapf(ErrCorruption, "%s: %s", path, msg)
}

// IoErrorf wraps ErrIoError with path context.
func IoErrorf(path string, err error) error {
	return pkgerrors.Wrapf(ErrIoError, "%s: %v", path, err)
}
