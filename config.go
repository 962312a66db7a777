// SPDX-License-Identifier: GPL-3.0-or-later

package tracemon

import "time"

// Config holds common configuration for the host-side [Layer].
//
// Pass this to [NewLayer] to pre-wire dependencies and verbosity gating.
// All fields have sensible defaults set by [NewConfig].
type Config struct {
	// EnableError gates construction of error-level spans and events.
	//
	// Set by [NewConfig] to true.
	EnableError bool

	// EnableWarn gates construction of warn-level spans and events.
	//
	// Set by [NewConfig] to true.
	EnableWarn bool

	// EnableInfo gates construction of info-level spans and events.
	//
	// Set by [NewConfig] to true.
	EnableInfo bool

	// EnableDebug gates construction of debug-level spans and events.
	//
	// Set by [NewConfig] to false.
	EnableDebug bool

	// EnableTrace gates construction of trace-level spans and events.
	//
	// Set by [NewConfig] to false.
	EnableTrace bool

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConfig] to [DefaultErrClassifier].
	ErrClassifier ErrClassifier

	// TimeNow returns the current time.
	//
	// Set by [NewConfig] to [time.Now].
	TimeNow func() time.Time
}

// NewConfig creates a [*Config] with sensible defaults: error, warn, and
// info levels enabled; debug and trace disabled (enable them explicitly
// for local debugging, since they gate per-call-site construction of
// [wire.MonitorMsg] values on every instrumented call).
func NewConfig() *Config {
	return &Config{
		EnableError:   true,
		EnableWarn:    true,
		EnableInfo:    true,
		EnableDebug:   false,
		EnableTrace:   false,
		ErrClassifier: DefaultErrClassifier,
		TimeNow:       time.Now,
	}
}
