// SPDX-License-Identifier: GPL-3.0-or-later

// Package errclass classifies errors into short, platform-independent
// labels for structured logging.
//
// The per-platform constant tables (unix.go, windows.go) map this
// package's labels onto the underlying syscall errno values; New is the
// single entry point that walks an error's chain and picks a label.
package errclass

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
)

// New classifies err into a short label such as "ETIMEDOUT" or
// "ECONNRESET", suitable for a structured log field.
//
// New returns the empty string for a nil error, and "unknown" for a
// non-nil error it cannot classify more specifically. Use
// [tracemon.ErrClassifierFunc](New) to install this as an
// [tracemon.ErrClassifier].
func New(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "ETIMEDOUT"
	case errors.Is(err, context.Canceled):
		return "ECANCELED"
	case errors.Is(err, net.ErrClosed):
		return "ECONNABORTED"
	case errors.Is(err, os.ErrDeadlineExceeded):
		return "ETIMEDOUT"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ETIMEDOUT"
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if label, ok := classifyErrno(errno); ok {
			return label
		}
	}

	return "unknown"
}

func classifyErrno(errno syscall.Errno) (string, bool) {
	switch errno {
	case errEADDRNOTAVAIL:
		return "EADDRNOTAVAIL", true
	case errECONNABORTED:
		return "ECONNABORTED", true
	case errECONNREFUSED:
		return "ECONNREFUSED", true
	case errECONNRESET:
		return "ECONNRESET", true
	case errEHOSTUNREACH:
		return "EHOSTUNREACH", true
	case errEINVAL:
		return "EINVAL", true
	case errEMSGSIZE:
		return "EMSGSIZE", true
	case errENETDOWN:
		return "ENETDOWN", true
	case errENETUNREACH:
		return "ENETUNREACH", true
	case errENOBUFS:
		return "ENOBUFS", true
	case errENOMEM:
		return "ENOMEM", true
	case errEPIPE:
		return "EPIPE", true
	case errETIMEDOUT:
		return "ETIMEDOUT", true
	case errEWOULDBLOCK:
		return "EWOULDBLOCK", true
	default:
		return "", false
	}
}
