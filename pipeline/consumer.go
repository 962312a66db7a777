// SPDX-License-Identifier: GPL-3.0-or-later

package pipeline

import (
	"sync"
	"sync/atomic"

	"github.com/bassosimone/tracemon/wire"
)

// Consumer is invoked with one drain batch, in registration order relative
// to other live consumers. Consumers are invoked only from the drain
// goroutine: implementations need not be safe for concurrent invocation of
// themselves, but a panicking consumer only closes its own handle (§4.3,
// §5 of the governing specification).
type Consumer func(batch []wire.MonitorMsg)

// Handle is returned by [Pipeline.Register] and permits cooperative
// cancellation of a consumer.
type Handle struct {
	closed atomic.Bool
}

// IsClosed reports whether Close has been called.
func (h *Handle) IsClosed() bool {
	return h.closed.Load()
}

// Close marks the handle closed. After Close returns, the drain loop will
// not invoke this consumer for any batch that starts draining afterward
// (P5 of the governing specification). Close is idempotent.
func (h *Handle) Close() {
	h.closed.Store(true)
}

type registration struct {
	handle   *Handle
	consume  Consumer
}

// consumerSet holds the dynamic, concurrently-registered set of live
// consumers, draining amortizes removal of closed handles rather than
// requiring it to be immediate (§4.3: "removal may be amortized").
type consumerSet struct {
	mu   sync.Mutex
	regs []*registration
}

func newConsumerSet() *consumerSet {
	return &consumerSet{}
}

func (s *consumerSet) add(consume Consumer) *Handle {
	h := &Handle{}
	s.mu.Lock()
	s.regs = append(s.regs, &registration{handle: h, consume: consume})
	s.mu.Unlock()
	return h
}

// dispatch invokes every live consumer with batch, in registration order,
// then compacts out any consumer closed during or before this dispatch
// (by itself closing its handle, or by panicking).
func (s *consumerSet) dispatch(batch []wire.MonitorMsg) {
	s.mu.Lock()
	live := make([]*registration, len(s.regs))
	copy(live, s.regs)
	s.mu.Unlock()

	kept := live[:0:0]
	for _, r := range live {
		if r.handle.IsClosed() {
			continue
		}
		if invokeSafely(r.consume, batch) {
			kept = append(kept, r)
		} else {
			r.handle.Close()
		}
	}

	// Keep consumers registered while this dispatch was running: add only
	// appends, so they sit past the snapshot taken above.
	s.mu.Lock()
	s.regs = append(kept, s.regs[len(live):]...)
	s.mu.Unlock()
}

// invokeSafely calls consume, recovering a panic so the drain loop itself
// never terminates, and reports false if consume panicked; dispatch then
// closes that consumer's handle (§4.3, §7: "Consumer callback panic |
// drain loop | close handle, continue").
func invokeSafely(consume Consumer, batch []wire.MonitorMsg) (ok bool) {
	ok = true
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	consume(batch)
	return
}
