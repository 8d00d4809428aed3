// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package multialign

import (
	goerrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies engine errors.  Callers decide how far an error propagates
// from its kind alone.
type Kind int

const (
	// StoreInvariantViolation means a handle resolved to a missing or
	// impossible record.  It is always an internal logic error and
	// terminates the batch.
	StoreInvariantViolation Kind = iota + 1
	// AlignmentNotFound means the overlap retry ladder was exhausted.  The
	// placement is skipped or its unitig/contig aborted.
	AlignmentNotFound
	// MalformedLayout means upstream positions do not cover the claimed
	// unitig/contig.
	MalformedLayout
	// LengthExceeded means an input exceeds the working buffer limit.
	LengthExceeded
	// TraceMismatch means an edit trace is inconsistent with the sequences
	// it claims to align.  The placement is rejected before any mutation.
	TraceMismatch
)

var kindNames = map[Kind]string{
	StoreInvariantViolation: "store invariant violation",
	AlignmentNotFound:       "alignment not found",
	MalformedLayout:         "malformed layout",
	LengthExceeded:          "length exceeded",
	TraceMismatch:           "trace mismatch",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Fatal returns true for kinds that terminate a whole batch rather than a
// single unitig/contig.
func (k Kind) Fatal() bool {
	return k == StoreInvariantViolation || k == LengthExceeded
}

// Error is the error type returned by the engine.
type Error struct {
	Kind Kind
	Msg  string
	// Err is the underlying error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// Errorf creates an *Error of the given kind.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapKind attaches a kind to an existing error.
func WrapKind(kind Kind, err error, msg string) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error found in err's chain, or 0.
// Both pkg/errors causes and Unwrap chains are followed.
func KindOf(err error) Kind {
	for err != nil {
		var e *Error
		if goerrors.As(err, &e) {
			return e.Kind
		}
		cause := errors.Cause(err)
		if cause == err {
			return 0
		}
		err = cause
	}
	return 0
}

// IsKind returns true if err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func invariantf(format string, args ...interface{}) error {
	return Errorf(StoreInvariantViolation, format, args...)
}
