// SPDX-License-Identifier: GPL-3.0-or-later

package tracemon

import (
	"sync/atomic"
	"time"

	"github.com/bassosimone/tracemon/wire"
)

// Sender is the log pipeline producer endpoint a [Layer] submits
// messages to. [*pipeline.Pipeline] satisfies this interface.
type Sender interface {
	Send(msg wire.MonitorMsg)
}

// Layer is the host-side API attached to instrumented code: one Layer
// per producer process, constructing a [wire.MonitorMsg] for each event
// or span lifecycle call and submitting it to the configured [Sender]
// (§6 of the governing specification).
//
// Grounded on `ribir-tracing/src/layer.rs`'s MonitorLayer: the same
// start-instant-relative timestamp and per-level construction gating,
// adapted from tracing-subscriber's Layer trait callbacks to an explicit
// method-call API (Go has no ambient span/event macro system to hook
// into).
type Layer struct {
	cfg       *Config
	sender    Sender
	startTime time.Time
	nextID    atomic.Uint64
}

// NewLayer constructs a [*Layer]. cfg may be nil to use [NewConfig]'s
// defaults. The layer's start instant is cfg.TimeNow() at construction
// time; every emitted time_stamp is relative to it.
func NewLayer(cfg *Config, sender Sender) *Layer {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Layer{cfg: cfg, sender: sender, startTime: cfg.TimeNow()}
}

func (l *Layer) timeStamp() time.Duration {
	return l.cfg.TimeNow().Sub(l.startTime)
}

func (l *Layer) enabled(level wire.Level) bool {
	switch level {
	case wire.LevelError:
		return l.cfg.EnableError
	case wire.LevelWarn:
		return l.cfg.EnableWarn
	case wire.LevelInfo:
		return l.cfg.EnableInfo
	case wire.LevelDebug:
		return l.cfg.EnableDebug
	case wire.LevelTrace:
		return l.cfg.EnableTrace
	default:
		return false
	}
}

// errorSink reports a Field Visitor serialization failure as a
// MonitorError on the pipeline (§4.1).
func (l *Layer) errorSink(reason string) {
	l.sender.Send(wire.MonitorError{Reason: reason})
}

// NewVisitor returns a [*wire.Visitor] that populates fields, reporting
// serialization failures as a MonitorError submitted to this layer's
// sender.
func (l *Layer) NewVisitor(fields *wire.Fields) *wire.Visitor {
	return wire.NewVisitor(fields, l.errorSink)
}

// Event submits a point-in-time observation. Event is a no-op if meta's
// level is disabled by this layer's [Config].
func (l *Layer) Event(meta wire.Meta, fields *wire.Fields) {
	if !l.enabled(meta.Level) {
		return
	}
	l.sender.Send(wire.Event{
		Meta:      meta,
		Fields:    fields,
		TimeStamp: l.timeStamp(),
	})
}

// NewSpan creates a span and returns a handle for its Enter/Exit/Close/
// Update lifecycle calls. NewSpan returns nil if meta's level is
// disabled; all [*Span] methods are safe to call on a nil receiver and
// are no-ops in that case, so callers never need a level check at every
// call site.
func (l *Layer) NewSpan(meta wire.Meta, fields *wire.Fields) *Span {
	if !l.enabled(meta.Level) {
		return nil
	}
	id := l.nextID.Add(1)
	l.sender.Send(wire.NewSpan{
		ID:        id,
		Meta:      meta,
		Fields:    fields,
		TimeStamp: l.timeStamp(),
	})
	return &Span{layer: l, id: id}
}

// Span is a handle to one span created by [Layer.NewSpan].
type Span struct {
	layer *Layer
	id    uint64
}

// ID returns the wire-level span identifier, or 0 for a nil Span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Enter records that this span became the active scope.
func (s *Span) Enter() {
	if s == nil {
		return
	}
	s.layer.sender.Send(wire.EnterSpan{ID: s.id, TimeStamp: s.layer.timeStamp()})
}

// Exit records that the current scope for this span ended.
func (s *Span) Exit() {
	if s == nil {
		return
	}
	s.layer.sender.Send(wire.ExitSpan{ID: s.id, TimeStamp: s.layer.timeStamp()})
}

// Close records that this span will receive no further mutation.
func (s *Span) Close() {
	if s == nil {
		return
	}
	s.layer.sender.Send(wire.CloseSpan{ID: s.id, TimeStamp: s.layer.timeStamp()})
}

// Update merges changes into this span's recorded fields.
func (s *Span) Update(changes *wire.Fields) {
	if s == nil || changes == nil {
		return
	}
	s.layer.sender.Send(wire.SpanUpdate{
		ID:        s.id,
		Changes:   changes,
		TimeStamp: s.layer.timeStamp(),
	})
}
