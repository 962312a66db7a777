// SPDX-License-Identifier: GPL-3.0-or-later

// Package pipeline implements the in-process log pipeline: a
// multi-producer, single-sink channel draining on a fixed interval into a
// dynamic set of consumers.
//
// Grounded on the drain-loop/consumer-set shape of the teacher's
// upstream source (a channel-fed background worker collecting available
// messages and fanning them out to registered closures), cross-checked
// against channel-based fan-out idioms used elsewhere in the pack (a
// logs-agent sender looping "for payload := range inputChan", and a
// WebSocket hub's register/unregister/broadcast select loop).
package pipeline

import (
	"context"
	"time"

	"github.com/bassosimone/tracemon/wire"
)

// Config holds the pipeline's tunables.
type Config struct {
	// DrainInterval is how often the drain loop wakes to collect and
	// dispatch available messages. Defaults to 10ms.
	DrainInterval time.Duration

	// ChannelCapacity bounds the producer-side channel buffer. A full
	// channel causes Send to report failure to the ErrorSink rather than
	// block the caller.
	ChannelCapacity int

	// Logger receives lifecycle and per-batch log events.
	Logger SLogger

	// ErrorSink receives a description of any send that could not be
	// delivered because the channel was full. It is invoked synchronously
	// from Send: implementations should be fast and non-blocking.
	ErrorSink func(reason string)
}

// NewConfig returns a [*Config] with sensible defaults: a 10ms drain
// interval, matching the governing specification's default, and a modest
// channel buffer.
func NewConfig() *Config {
	return &Config{
		DrainInterval:   10 * time.Millisecond,
		ChannelCapacity: 1024,
		Logger:          DefaultSLogger(),
		ErrorSink:       func(string) {},
	}
}

// Pipeline is a multi-producer, single-sink channel feeding a drain loop.
type Pipeline struct {
	cfg       *Config
	ch        chan wire.MonitorMsg
	consumers *consumerSet
}

// New constructs a [*Pipeline] from cfg (a nil cfg uses [NewConfig]'s
// defaults).
func New(cfg *Config) *Pipeline {
	if cfg == nil {
		cfg = NewConfig()
	}
	return &Pipeline{
		cfg:       cfg,
		ch:        make(chan wire.MonitorMsg, cfg.ChannelCapacity),
		consumers: newConsumerSet(),
	}
}

// Send submits msg to the pipeline. Send is non-blocking and infallible
// from the caller's point of view: if the channel is full, the message is
// dropped and reported to the configured ErrorSink, never propagated as an
// error return (§4.3 of the governing specification).
func (p *Pipeline) Send(msg wire.MonitorMsg) {
	select {
	case p.ch <- msg:
	default:
		p.cfg.Logger.Debug("pipeline: channel full, dropping message")
		p.cfg.ErrorSink("log pipeline channel full")
	}
}

// Register adds a consumer to the dynamic consumer set and returns its
// [*Handle]. Multiple consumers may be registered concurrently with
// draining.
func (p *Pipeline) Register(consume Consumer) *Handle {
	return p.consumers.add(consume)
}

// Run starts the drain loop, blocking until ctx is done. Call this from a
// single dedicated goroutine; it is the only goroutine that invokes
// consumers (§5 of the governing specification).
func (p *Pipeline) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.DrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drainOnce()
		}
	}
}

// drainOnce collects all currently-available messages into a batch and, if
// non-empty, dispatches it to every live consumer in registration order.
func (p *Pipeline) drainOnce() {
	var batch []wire.MonitorMsg
collect:
	for {
		select {
		case msg := <-p.ch:
			batch = append(batch, msg)
		default:
			break collect
		}
	}
	if len(batch) == 0 {
		return
	}
	p.cfg.Logger.Debug("pipeline: dispatching batch", "size", len(batch))
	p.consumers.dispatch(batch)
}
