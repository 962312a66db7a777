// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import "time"

// MonitorMsg is the discriminated union of messages flowing from an
// instrumented producer to the monitor server. Concrete types satisfy
// this interface via an unexported marker method, the idiomatic Go
// rendition of a tagged union whose variants carry different payloads.
type MonitorMsg interface {
	monitorMsg()
}

// Event is a point-in-time observation, optionally situated inside a span.
type Event struct {
	Meta       Meta          `msgpack:"meta"`
	Fields     *Fields       `msgpack:"fields"`
	TimeStamp  time.Duration `msgpack:"time_stamp"`
	ParentSpan *uint64       `msgpack:"parent_span,omitempty"`
}

func (Event) monitorMsg() {}

// NewSpan creates a span identified by Id, producer-assigned.
type NewSpan struct {
	ID         uint64        `msgpack:"id"`
	Meta       Meta          `msgpack:"meta"`
	Fields     *Fields       `msgpack:"fields"`
	TimeStamp  time.Duration `msgpack:"time_stamp"`
	ParentSpan *uint64       `msgpack:"parent_span,omitempty"`
}

func (NewSpan) monitorMsg() {}

// SpanUpdate merges Changes into the fields of the span named by Id.
type SpanUpdate struct {
	ID        uint64        `msgpack:"id"`
	Changes   *Fields       `msgpack:"changes"`
	TimeStamp time.Duration `msgpack:"time_stamp"`
}

func (SpanUpdate) monitorMsg() {}

// EnterSpan records that the span named by Id became the active scope.
type EnterSpan struct {
	ID        uint64        `msgpack:"id"`
	TimeStamp time.Duration `msgpack:"time_stamp"`
}

func (EnterSpan) monitorMsg() {}

// ExitSpan records that the current scope for the span named by Id ended.
type ExitSpan struct {
	ID        uint64        `msgpack:"id"`
	TimeStamp time.Duration `msgpack:"time_stamp"`
}

func (ExitSpan) monitorMsg() {}

// CloseSpan records that the span named by Id will receive no further
// mutation.
type CloseSpan struct {
	ID        uint64        `msgpack:"id"`
	TimeStamp time.Duration `msgpack:"time_stamp"`
}

func (CloseSpan) monitorMsg() {}

// MonitorError is a soft diagnostic emitted by any component when
// something in-band fails but should not terminate the stream.
type MonitorError struct {
	Reason string `msgpack:"reason"`
}

func (MonitorError) monitorMsg() {}
