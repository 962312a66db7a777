// SPDX-License-Identifier: GPL-3.0-or-later

package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// msgKind tags which concrete MonitorMsg variant an envelope carries.
type msgKind uint8

const (
	kindEvent msgKind = iota
	kindNewSpan
	kindSpanUpdate
	kindEnterSpan
	kindExitSpan
	kindCloseSpan
	kindMonitorError
)

// envelope is the on-the-wire representation of one MonitorMsg: a kind tag
// plus the concrete variant's own msgpack-encoded payload. This is the
// idiomatic way to put a Go interface-typed value on a schemaless wire
// format, standing in for a Rust enum's implicit discriminant.
type envelope struct {
	Kind    msgKind `msgpack:"kind"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// Encode deterministically serializes m into one binary payload suitable
// for a single WebSocket binary frame (§4.2 of the governing
// specification: decode(encode(m)) must equal m structurally).
func Encode(m MonitorMsg) ([]byte, error) {
	kind, err := kindOf(m)
	if err != nil {
		return nil, err
	}
	payload, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	return msgpack.Marshal(envelope{Kind: kind, Payload: payload})
}

func kindOf(m MonitorMsg) (msgKind, error) {
	switch m.(type) {
	case Event:
		return kindEvent, nil
	case NewSpan:
		return kindNewSpan, nil
	case SpanUpdate:
		return kindSpanUpdate, nil
	case EnterSpan:
		return kindEnterSpan, nil
	case ExitSpan:
		return kindExitSpan, nil
	case CloseSpan:
		return kindCloseSpan, nil
	case MonitorError:
		return kindMonitorError, nil
	default:
		return 0, fmt.Errorf("wire: unknown MonitorMsg type %T", m)
	}
}

// Decode parses one binary frame payload into a MonitorMsg. A decode
// failure here must not poison the caller's stream (§4.2); callers should
// log and continue with the next frame rather than treat this as fatal.
func Decode(data []byte) (MonitorMsg, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}
	switch env.Kind {
	case kindEvent:
		var v Event
		return v, unmarshalPayload(env.Payload, &v)
	case kindNewSpan:
		var v NewSpan
		return v, unmarshalPayload(env.Payload, &v)
	case kindSpanUpdate:
		var v SpanUpdate
		return v, unmarshalPayload(env.Payload, &v)
	case kindEnterSpan:
		var v EnterSpan
		return v, unmarshalPayload(env.Payload, &v)
	case kindExitSpan:
		var v ExitSpan
		return v, unmarshalPayload(env.Payload, &v)
	case kindCloseSpan:
		var v CloseSpan
		return v, unmarshalPayload(env.Payload, &v)
	case kindMonitorError:
		var v MonitorError
		return v, unmarshalPayload(env.Payload, &v)
	default:
		return nil, fmt.Errorf("wire: unknown envelope kind %d", env.Kind)
	}
}

func unmarshalPayload(data []byte, out any) error {
	if err := msgpack.Unmarshal(data, out); err != nil {
		return fmt.Errorf("wire: decode payload: %w", err)
	}
	return nil
}

// msgpackMarshal and msgpackUnmarshal back the Fields
// MarshalMsgpack/UnmarshalMsgpack methods in fields.go; they are thin
// wrappers so that fields.go does not need to import the msgpack package.
func msgpackMarshal(v any) ([]byte, error)        { return msgpack.Marshal(v) }
func msgpackUnmarshal(data []byte, out any) error { return msgpack.Unmarshal(data, out) }

// encodeAny is the deterministic binary encoder used by [Visitor.RecordDebug]
// for structured field values (§4.1/§4.2).
func encodeAny(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}
