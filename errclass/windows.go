//go:build windows

// SPDX-License-Identifier: GPL-3.0-or-later

package errclass

import "golang.org/x/sys/windows"

const (
	errEADDRNOTAVAIL = windows.WSAEADDRNOTAVAIL
	errECONNABORTED  = windows.WSAECONNABORTED
	errECONNREFUSED  = windows.WSAECONNREFUSED
	errECONNRESET    = windows.WSAECONNRESET
	errEHOSTUNREACH  = windows.WSAEHOSTUNREACH
	errEINVAL        = windows.WSAEINVAL
	errEMSGSIZE      = windows.WSAEMSGSIZE
	errENETDOWN      = windows.WSAENETDOWN
	errENETUNREACH   = windows.WSAENETUNREACH
	errENOBUFS       = windows.WSAENOBUFS
	errENOMEM        = windows.WSA_NOT_ENOUGH_MEMORY
	errEPIPE         = windows.ERROR_BROKEN_PIPE
	errETIMEDOUT     = windows.WSAETIMEDOUT
	errEWOULDBLOCK   = windows.WSAEWOULDBLOCK
)
