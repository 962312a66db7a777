// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"time"

	"github.com/bassosimone/tracemon/wire"
)

// Span is a bounded region of execution reconstructed from NewSpan,
// SpanUpdate, and CloseSpan messages (§3.2).
type Span struct {
	Meta      wire.Meta
	Fields    *wire.Fields
	StartAt   time.Duration
	CloseAt   *time.Duration
	CalcScope *Id // the scope active when the span was created, if any
}

// CalcScope is a reconstruction of one entry/exit pair for a span,
// tracking the active call stack position at entry (§3.2).
type CalcScope struct {
	ParentScope *Id // enclosing scope, if any
	Host        Id  // the span this scope entered (always IdKindSpan)
	EnterAt     time.Duration
	ExitAt      *time.Duration
}

// Event is a point-in-time observation, optionally situated inside a
// scope (§3.2).
type Event struct {
	Meta      wire.Meta
	Fields    *wire.Fields
	TimeStamp time.Duration
	CalcScope *Id // the scope active at emission, if any
}
