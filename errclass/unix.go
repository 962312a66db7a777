//go:build unix

// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import "golang.org/x/sys/unix"

const (
	errEADDRNOTAVAIL = unix.EADDRNOTAVAIL
	errECONNABORTED  = unix.ECONNABORTED
	errECONNREFUSED  = unix.ECONNREFUSED
	errECONNRESET    = unix.ECONNRESET
	errEHOSTUNREACH  = unix.EHOSTUNREACH
	errEINVAL        = unix.EINVAL
	errEMSGSIZE      = unix.EMSGSIZE
	errENETDOWN      = unix.ENETDOWN
	errENETUNREACH   = unix.ENETUNREACH
	errENOBUFS       = unix.ENOBUFS
	errENOMEM        = unix.ENOMEM
	errEPIPE         = unix.EPIPE
	errETIMEDOUT     = unix.ETIMEDOUT
	errEWOULDBLOCK   = unix.EWOULDBLOCK
)
