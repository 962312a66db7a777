// SPDX-License-Identifier: GPL-3.0-or-later

// Package store implements the Client Info Store: the stateful
// reconstruction of one client's spans, entered/exited scopes, and
// events, preserving causal parent/child relations, and the bounded-size
// causal eviction policy (§4.6/§4.6.1 of the governing specification).
//
// Grounded directly on the upstream source's ClientInfoStore: the Id
// union, Span/CalcScope/Event entities, the ordered timeline, the call
// stack, and the single-pass causal-reduce eviction algorithm are all
// carried over with the same structure, expressed in Go's flat
// keyed-collection idiom (spec.md §9: "represent entities in flat keyed
// collections indexed by Id; store relationships as Id values, never
// embedded by-value").
package store

import "fmt"

// IdKind discriminates which entity kind an [Id] names.
type IdKind uint8

const (
	IdKindSpan IdKind = iota
	IdKindCalcScope
	IdKindEvent
)

// Id is the unified identifier space used across spans, scopes, and
// events: Span ids originate from the producer; CalcScope and Event ids
// are minted by the store from monotonically increasing counters.
type Id struct {
	Kind IdKind
	Num  uint64
}

// SpanID constructs an [Id] naming a span.
func SpanID(n uint64) Id { return Id{Kind: IdKindSpan, Num: n} }

// CalcScopeID constructs an [Id] naming a calc scope.
func CalcScopeID(n uint64) Id { return Id{Kind: IdKindCalcScope, Num: n} }

// EventID constructs an [Id] naming an event.
func EventID(n uint64) Id { return Id{Kind: IdKindEvent, Num: n} }

// String renders the id for diagnostics, e.g. "span(3)".
func (id Id) String() string {
	switch id.Kind {
	case IdKindSpan:
		return fmt.Sprintf("span(%d)", id.Num)
	case IdKindCalcScope:
		return fmt.Sprintf("calcScope(%d)", id.Num)
	case IdKindEvent:
		return fmt.Sprintf("event(%d)", id.Num)
	default:
		return fmt.Sprintf("unknown(%d)", id.Num)
	}
}
