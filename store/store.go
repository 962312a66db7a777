// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"fmt"
	"time"

	"github.com/bassosimone/tracemon/wire"
)

// Config holds a [ClientInfoStore]'s tunables.
type Config struct {
	// ClientName labels the store. The store itself does not read it.
	//
	// Set by [NewConfig] to "".
	ClientName string

	// ClientStartAt is the wall-clock instant all of this client's
	// relative timestamps are anchored to.
	//
	// Set by [NewConfig] to [time.Now]'s return value.
	ClientStartAt time.Time

	// SpanLimit is the threshold at which closing a top-level span
	// triggers causal eviction (§4.6/§4.6.1).
	//
	// Set by [NewConfig] to 1024.
	SpanLimit int

	// Logger receives lifecycle and per-message log events.
	Logger SLogger

	// Diagnostic receives a structured diagnostic message whenever §4.6
	// calls for one (unmatched ExitSpan, double CloseSpan, a forwarded
	// MonitorError) rather than a general log line.
	Diagnostic func(reason string)
}

// NewConfig returns a [*Config] with sensible defaults: a 1024 span
// limit, matching the governing specification's default, client start
// anchored to now, and a no-op diagnostic sink.
func NewConfig() *Config {
	return &Config{
		ClientStartAt: time.Now(),
		SpanLimit:     1024,
		Logger:        DefaultSLogger(),
		Diagnostic:    func(string) {},
	}
}

// ClientInfoStore is the stateful, per-client reconstruction of spans,
// entered/exited scopes, and events observed from one monitor
// connection, preserving causal parent/child relations and, when a
// top-level span closes with the span budget (§4.6) reached, evicting the
// oldest span's causal subtree.
//
// A ClientInfoStore is owned by exactly one goroutine (typically the
// monitorserver per-client handler): no method is safe to call
// concurrently with another (§5 of the governing specification: "no
// cross-task shared mutable state inside the Client Info Store; each
// store is owned by exactly one task").
type ClientInfoStore struct {
	cfg *Config

	spans      map[Id]*Span
	calcScopes map[Id]*CalcScope
	events     map[Id]*Event
	timelines  []Id
	callStack  []Id

	eventIDAcc     uint64
	calcScopeIDAcc uint64
}

// New constructs an empty [*ClientInfoStore]. cfg may be nil to use
// [NewConfig]'s defaults.
func New(cfg *Config) *ClientInfoStore {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &ClientInfoStore{
		cfg:        cfg,
		spans:      make(map[Id]*Span),
		calcScopes: make(map[Id]*CalcScope),
		events:     make(map[Id]*Event),
	}
}

// SpanCount returns the number of spans currently retained.
func (s *ClientInfoStore) SpanCount() int { return len(s.spans) }

// CalcScopeCount returns the number of calc scopes currently retained.
func (s *ClientInfoStore) CalcScopeCount() int { return len(s.calcScopes) }

// EventCount returns the number of events currently retained.
func (s *ClientInfoStore) EventCount() int { return len(s.events) }

// TimelineLen returns the number of ids currently in the timeline.
func (s *ClientInfoStore) TimelineLen() int { return len(s.timelines) }

// Span returns the span named by id, if it exists.
func (s *ClientInfoStore) Span(id Id) (*Span, bool) {
	v, ok := s.spans[id]
	return v, ok
}

// CalcScope returns the calc scope named by id, if it exists.
func (s *ClientInfoStore) CalcScope(id Id) (*CalcScope, bool) {
	v, ok := s.calcScopes[id]
	return v, ok
}

// Event returns the event named by id, if it exists.
func (s *ClientInfoStore) Event(id Id) (*Event, bool) {
	v, ok := s.events[id]
	return v, ok
}

// top returns the calc scope currently on top of the call stack, if any.
func (s *ClientInfoStore) top() *Id {
	if len(s.callStack) == 0 {
		return nil
	}
	id := s.callStack[len(s.callStack)-1]
	return &id
}

// Record ingests one decoded [wire.MonitorMsg], applying the record
// semantics of §4.6 for the concrete message kind. Record never returns
// an error: every failure mode named in §4.6/§7 (unknown span, unmatched
// ExitSpan, double CloseSpan) is handled in-band, per the "no
// propagation beyond the component" policy of §7.
func (s *ClientInfoStore) Record(msg wire.MonitorMsg) {
	switch m := msg.(type) {
	case wire.Event:
		s.recordEvent(m)
	case wire.NewSpan:
		s.recordNewSpan(m)
	case wire.SpanUpdate:
		s.recordSpanUpdate(m)
	case wire.EnterSpan:
		s.recordEnterSpan(m)
	case wire.ExitSpan:
		s.recordExitSpan(m)
	case wire.CloseSpan:
		s.recordCloseSpan(m)
	case wire.MonitorError:
		s.cfg.Diagnostic(m.Reason)
	default:
		s.cfg.Logger.Debug("store: unrecognized message type", "type", fmt.Sprintf("%T", msg))
	}
}

func (s *ClientInfoStore) newEventID() Id {
	s.eventIDAcc++
	return EventID(s.eventIDAcc)
}

func (s *ClientInfoStore) newCalcScopeID() Id {
	s.calcScopeIDAcc++
	return CalcScopeID(s.calcScopeIDAcc)
}

func (s *ClientInfoStore) recordEvent(m wire.Event) {
	id := s.newEventID()
	s.timelines = append(s.timelines, id)
	s.events[id] = &Event{
		Meta:      m.Meta,
		Fields:    m.Fields,
		TimeStamp: m.TimeStamp,
		CalcScope: s.top(),
	}
	s.cfg.Logger.Debug("store: recorded event", "id", id)
}

func (s *ClientInfoStore) recordNewSpan(m wire.NewSpan) {
	id := SpanID(m.ID)
	s.timelines = append(s.timelines, id)
	s.spans[id] = &Span{
		Meta:      m.Meta,
		Fields:    m.Fields,
		StartAt:   m.TimeStamp,
		CloseAt:   nil,
		CalcScope: s.top(),
	}
	s.cfg.Logger.Debug("store: recorded new span", "id", id)
}

func (s *ClientInfoStore) recordSpanUpdate(m wire.SpanUpdate) {
	span, ok := s.spans[SpanID(m.ID)]
	if !ok {
		// The hot stream may be partial: silently drop (§4.6, §7).
		return
	}
	if span.Fields == nil {
		span.Fields = wire.NewFields()
	}
	span.Fields.Merge(m.Changes)
}

func (s *ClientInfoStore) recordEnterSpan(m wire.EnterSpan) {
	host := SpanID(m.ID)
	if _, ok := s.spans[host]; !ok {
		// Unknown span referenced: drop the message (§4.6, §7).
		return
	}
	id := s.newCalcScopeID()
	s.timelines = append(s.timelines, id)
	s.calcScopes[id] = &CalcScope{
		ParentScope: s.top(),
		Host:        host,
		EnterAt:     m.TimeStamp,
		ExitAt:      nil,
	}
	s.callStack = append(s.callStack, id)
	s.cfg.Logger.Debug("store: entered scope", "id", id, "host", host)
}

func (s *ClientInfoStore) recordExitSpan(m wire.ExitSpan) {
	if len(s.callStack) == 0 {
		return
	}
	poppedID := s.callStack[len(s.callStack)-1]
	s.callStack = s.callStack[:len(s.callStack)-1]

	scope, ok := s.calcScopes[poppedID]
	if !ok {
		return
	}
	if scope.Host != SpanID(m.ID) {
		s.cfg.Diagnostic("call stack record error")
		return
	}
	scope.ExitAt = &m.TimeStamp
	s.cfg.Logger.Debug("store: exited scope", "id", poppedID)
}

func (s *ClientInfoStore) recordCloseSpan(m wire.CloseSpan) {
	id := SpanID(m.ID)
	span, ok := s.spans[id]
	if !ok {
		// The hot stream may be partial: silently drop (§4.6, §7).
		return
	}
	if span.CloseAt != nil {
		s.cfg.Diagnostic("twice close a span")
		return
	}
	span.CloseAt = &m.TimeStamp
	s.cfg.Logger.Debug("store: closed span", "id", id)

	// Trigger reduce only when this is a top-level span (§4.6).
	if span.CalcScope == nil && len(s.spans) >= s.cfg.SpanLimit {
		s.reduceClosedSpans()
	}
}

// reduceClosedSpans performs the single-pass causal eviction of §4.6.1:
// walking timelines in creation order (ancestors necessarily precede
// descendants), building a removed set that cascades transitively
// through calc_scope/host/parent_scope references without recursion.
//
// The eviction seed follows the source behavior unchanged (§4.6.1, §9):
// the first span seen in timeline order is removed unconditionally once
// the pass starts, regardless of whether it is closed.
func (s *ClientInfoStore) reduceClosedSpans() {
	removed := make(map[Id]struct{})
	kept := s.timelines[:0:0]

	for _, id := range s.timelines {
		var shouldDrop bool
		switch id.Kind {
		case IdKindSpan:
			span, ok := s.spans[id]
			if !ok {
				continue
			}
			shouldDrop = len(removed) == 0 || (span.CalcScope != nil && isRemoved(removed, *span.CalcScope))
		case IdKindCalcScope:
			scope, ok := s.calcScopes[id]
			if !ok {
				continue
			}
			shouldDrop = isRemoved(removed, scope.Host) ||
				(scope.ParentScope != nil && isRemoved(removed, *scope.ParentScope))
		case IdKindEvent:
			event, ok := s.events[id]
			if !ok {
				continue
			}
			shouldDrop = event.CalcScope != nil && isRemoved(removed, *event.CalcScope)
		}

		if shouldDrop {
			removed[id] = struct{}{}
			continue
		}
		kept = append(kept, id)
	}
	s.timelines = kept

	for id := range removed {
		delete(s.spans, id)
		delete(s.calcScopes, id)
		delete(s.events, id)
	}
	s.cfg.Logger.Info("store: eviction ran", "removed", len(removed), "remaining", len(s.timelines))
}

func isRemoved(removed map[Id]struct{}, id Id) bool {
	_, ok := removed[id]
	return ok
}
