// SPDX-License-Identifier: GPL-3.0-or-later

package store_test

import (
	"testing"
	"time"

	"github.com/bassosimone/tracemon/store"
	"github.com/bassosimone/tracemon/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mockMeta() wire.Meta {
	return wire.Meta{Name: "test meta", Target: "monitor test", Level: wire.LevelError}
}

func newTestStore(spanLimit int) (*store.ClientInfoStore, *[]string) {
	var diagnostics []string
	cfg := store.NewConfig()
	cfg.SpanLimit = spanLimit
	cfg.Diagnostic = func(reason string) { diagnostics = append(diagnostics, reason) }
	return store.New(cfg), &diagnostics
}

// TestNestedSpansWithEvent exercises S1: two nested spans and one event,
// with span_limit = 2, checking intermediate state after the inner span
// closes and full eviction after the outer span closes.
func TestNestedSpansWithEvent(t *testing.T) {
	s, _ := newTestStore(2)

	s.Record(wire.NewSpan{ID: 0, Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.EnterSpan{ID: 0, TimeStamp: 0})

	s.Record(wire.NewSpan{ID: 1, Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.EnterSpan{ID: 1, TimeStamp: 0})
	s.Record(wire.Event{Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.ExitSpan{ID: 1, TimeStamp: 0})
	s.Record(wire.CloseSpan{ID: 1, TimeStamp: 0})

	s.Record(wire.ExitSpan{ID: 0, TimeStamp: 0})

	assert.Equal(t, 2, s.SpanCount())
	assert.Equal(t, 2, s.CalcScopeCount())
	assert.Equal(t, 1, s.EventCount())

	span1, ok := s.Span(store.SpanID(1))
	require.True(t, ok)
	assert.NotNil(t, span1.CloseAt)

	span0, ok := s.Span(store.SpanID(0))
	require.True(t, ok)
	assert.Nil(t, span0.CloseAt)

	// CalcScopeID(1) was minted for span 0's EnterSpan; CalcScopeID(2) for
	// span 1's, since scope ids are assigned in entry order.
	scope1, ok := s.CalcScope(store.CalcScopeID(2))
	require.True(t, ok)
	assert.NotNil(t, scope1.ExitAt)

	// Closing the outer span crosses span_limit and triggers eviction,
	// cascading through the entire causal subtree.
	s.Record(wire.CloseSpan{ID: 0, TimeStamp: 0})

	assert.Equal(t, 0, s.SpanCount())
	assert.Equal(t, 0, s.CalcScopeCount())
	assert.Equal(t, 0, s.EventCount())
	assert.Equal(t, 0, s.TimelineLen())
}

// TestSpanUpdateMerge exercises S2: a SpanUpdate overwrites existing
// field names and appends new ones.
func TestSpanUpdateMerge(t *testing.T) {
	s, _ := newTestStore(1024)

	fields := wire.NewFields()
	fields.Set("a", wire.I64Value(1))
	s.Record(wire.NewSpan{ID: 0, Meta: mockMeta(), Fields: fields, TimeStamp: 0})

	changes := wire.NewFields()
	changes.Set("a", wire.I64Value(2))
	changes.Set("b", wire.I64Value(3))
	s.Record(wire.SpanUpdate{ID: 0, Changes: changes, TimeStamp: 0})

	span, ok := s.Span(store.SpanID(0))
	require.True(t, ok)

	a, ok := span.Fields.Get("a")
	require.True(t, ok)
	assert.Equal(t, wire.I64Value(2), a)

	b, ok := span.Fields.Get("b")
	require.True(t, ok)
	assert.Equal(t, wire.I64Value(3), b)
}

// TestUnmatchedExitSpan exercises S3: an ExitSpan whose host mismatches
// the popped scope emits a diagnostic and mutates nothing.
func TestUnmatchedExitSpan(t *testing.T) {
	s, diagnostics := newTestStore(1024)

	s.Record(wire.NewSpan{ID: 0, Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.EnterSpan{ID: 0, TimeStamp: 0})
	s.Record(wire.ExitSpan{ID: 1, TimeStamp: 0})

	require.Len(t, *diagnostics, 1)
	assert.Equal(t, "call stack record error", (*diagnostics)[0])

	// Only one scope was ever created (for span 0's EnterSpan); the
	// mismatched ExitSpan{1} popped it off the call stack but must leave
	// it otherwise unmutated.
	scope0, ok := s.CalcScope(store.CalcScopeID(1))
	require.True(t, ok)
	assert.Nil(t, scope0.ExitAt, "the popped (but mismatched) scope must not be mutated")
}

func TestDoubleCloseSpanEmitsDiagnostic(t *testing.T) {
	s, diagnostics := newTestStore(1024)

	s.Record(wire.NewSpan{ID: 0, Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.CloseSpan{ID: 0, TimeStamp: 1 * time.Second})
	s.Record(wire.CloseSpan{ID: 0, TimeStamp: 2 * time.Second})

	require.Len(t, *diagnostics, 1)
	assert.Equal(t, "twice close a span", (*diagnostics)[0])

	span, ok := s.Span(store.SpanID(0))
	require.True(t, ok)
	assert.Equal(t, 1*time.Second, *span.CloseAt)
}

func TestSpanUpdateOnUnknownSpanIsDropped(t *testing.T) {
	s, diagnostics := newTestStore(1024)

	changes := wire.NewFields()
	changes.Set("a", wire.BoolValue(true))
	s.Record(wire.SpanUpdate{ID: 42, Changes: changes, TimeStamp: 0})

	assert.Empty(t, *diagnostics)
	_, ok := s.Span(store.SpanID(42))
	assert.False(t, ok)
}

func TestEnterSpanOnUnknownSpanIsDropped(t *testing.T) {
	s, _ := newTestStore(1024)

	s.Record(wire.EnterSpan{ID: 7, TimeStamp: 0})

	assert.Equal(t, 0, s.CalcScopeCount())
	assert.Equal(t, 0, s.TimelineLen())
}

// TestEventWithoutActiveScope checks an Event emitted with an empty call
// stack is recorded with a nil CalcScope.
func TestEventWithoutActiveScope(t *testing.T) {
	s, _ := newTestStore(1024)

	s.Record(wire.Event{Meta: mockMeta(), TimeStamp: 0})

	event, ok := s.Event(store.EventID(1))
	require.True(t, ok)
	assert.Nil(t, event.CalcScope)
}

// TestMonitorErrorForwardedToDiagnostic checks MonitorError messages are
// forwarded to the diagnostic sink untouched.
func TestMonitorErrorForwardedToDiagnostic(t *testing.T) {
	s, diagnostics := newTestStore(1024)

	s.Record(wire.MonitorError{Reason: "boom"})

	require.Len(t, *diagnostics, 1)
	assert.Equal(t, "boom", (*diagnostics)[0])
}

// TestEvictionPreservesReferentialClosure exercises P7: after eviction,
// no surviving entity references a removed id. span 0 seeds the
// unconditional-first-id removal (§4.6.1, §9); span 1's entered scope and
// event, created afterward with no causal relation to span 0, must
// survive with their cross-references intact.
func TestEvictionPreservesReferentialClosure(t *testing.T) {
	s, _ := newTestStore(2)

	s.Record(wire.NewSpan{ID: 0, Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.CloseSpan{ID: 0, TimeStamp: 0})

	s.Record(wire.NewSpan{ID: 1, Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.EnterSpan{ID: 1, TimeStamp: 0})
	s.Record(wire.Event{Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.ExitSpan{ID: 1, TimeStamp: 0})

	// span 2 is top-level (call stack is empty again) and its closure
	// crosses span_limit, triggering eviction.
	s.Record(wire.NewSpan{ID: 2, Meta: mockMeta(), TimeStamp: 0})
	s.Record(wire.CloseSpan{ID: 2, TimeStamp: 0})

	_, span0Exists := s.Span(store.SpanID(0))
	assert.False(t, span0Exists, "span 0 seeds the eviction and must be gone")

	span1, ok := s.Span(store.SpanID(1))
	require.True(t, ok, "span 1 has no causal relation to span 0 and must survive")
	assert.Nil(t, span1.CalcScope)

	scope, ok := s.CalcScope(store.CalcScopeID(1))
	require.True(t, ok)
	assert.Equal(t, store.SpanID(1), scope.Host)

	event, ok := s.Event(store.EventID(1))
	require.True(t, ok)
	require.NotNil(t, event.CalcScope)
	_, scopeStillExists := s.CalcScope(*event.CalcScope)
	assert.True(t, scopeStillExists, "event's calc_scope must still exist after eviction")
}
