// SPDX-License-Identifier: GPL-3.0-or-later

// Package tracemon provides the host-side API for an application-embedded
// tracing and monitoring pipeline: instrumented code emits structured
// span/event records through a [Layer], which hands them to an in-process
// log pipeline (package pipeline); a remote sender consumer (package
// remote) streams them over a persistent WebSocket to a monitor server
// (package monitorserver), which reconstructs each client's timeline in a
// client info store (package store).
//
// # Core Abstraction
//
// [Layer] is attached once per producer process. Each event or span
// lifecycle call constructs a wire.MonitorMsg populated with a timestamp
// relative to the layer's start instant, and submits it to the configured
// sender:
//
//	pl := pipeline.New(pipeline.NewConfig())
//	go pl.Run(ctx)
//	layer := tracemon.NewLayer(tracemon.NewConfig(), pl)
//	span := layer.NewSpan(wire.Meta{Name: "request", Target: "http", Level: wire.LevelInfo}, nil)
//	span.Enter()
//	layer.Event(wire.Meta{Name: "handled", Target: "http", Level: wire.LevelInfo}, nil)
//	span.Exit()
//	span.Close()
//
// # Available Components
//
//   - package wire: the normalized wire schema (Meta, FieldValue, Fields,
//     MonitorMsg) and its deterministic encoder/decoder
//   - package pipeline: the multi-producer, single-sink log pipeline with
//     a periodic drain loop and a dynamic consumer set
//   - package remote: a consumer that streams encoded batches over a
//     persistent client WebSocket connection
//   - package monitorserver: the accept loop that upgrades TCP connections
//     to WebSocket and hands decoded message streams to a client store
//   - package store: the stateful per-client reconstruction of spans,
//     scopes, events, and the causal eviction policy
//
// # Observability
//
// The pipeline, remote, monitorserver, and store packages each accept a
// logger with the same Debug/Info shape as [SLogger] (compatible with
// [log/slog]); [Layer] itself does not log. By default, logging is
// disabled: use a custom [*slog.Logger] to enable it. Error
// classification is configurable via [ErrClassifier]; by default a no-op
// classifier is used, and errclass.New (package errclass) is available as
// a drop-in platform-aware classifier.
//
// Lifecycle events (connect, disconnect, accept, handshake, eviction) are
// logged at [slog.LevelInfo]; per-message/per-frame events at
// [slog.LevelDebug].
//
// Use [NewSpanID] to generate a unique, time-ordered identifier (UUIDv7)
// for correlating all log entries emitted by one producer session or one
// monitor-server connection.
//
// # Verbosity Gating
//
// [Layer] gates span/event construction per level (error/warn/info/debug/
// trace) using runtime boolean flags on [Config] rather than compile-time
// feature flags: this costs a branch per call site but requires no code
// generation, and is the accepted tradeoff for environments that cannot
// express compile-time feature selection.
//
// # Non-goals
//
// This package does not persist traces, correlate data across clients,
// apply sampling policies, authenticate clients, or synchronize clocks
// between producers and the monitor. The choice of instrumentation
// macros, the WebSocket framing itself, and any UI that visualizes
// reconstructed timelines are external collaborators.
package tracemon
