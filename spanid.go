package tracemon

import (
	"github.com/bassosimone/runtimex"
	"github.com/google/uuid"
)

// NewSpanID returns a UUIDv7 identifying one correlation scope: a producer
// [Layer] lifetime or a monitor server connection.
//
// This is distinct from the wire-level span identifier carried on
// wire.NewSpan (a producer-assigned uint64 naming one instrumented span):
// NewSpanID instead gives every log entry emitted during one process's or
// one connection's lifetime a shared, time-ordered correlation id, attached
// with [*slog.Logger.With], so that entries from that session can be
// grouped and ordered without consulting wall-clock time.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return runtimex.PanicOnError1(uuid.NewV7()).String()
}
