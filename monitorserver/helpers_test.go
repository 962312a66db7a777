// SPDX-License-Identifier: GPL-3.0-or-later

package monitorserver_test

import (
	"context"
	"log/slog"

	"github.com/bassosimone/slogstub"
)

// newCapturingLogger returns a logger that captures all log records into
// the returned slice, so a test can inspect which events were emitted.
func newCapturingLogger() (*slog.Logger, *[]slog.Record) {
	var records []slog.Record
	handler := &slogstub.FuncHandler{
		EnabledFunc: func(ctx context.Context, level slog.Level) bool {
			return true
		},
		HandleFunc: func(ctx context.Context, record slog.Record) error {
			records = append(records, record)
			return nil
		},
	}
	return slog.New(handler), &records
}
