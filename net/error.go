package net

import (
	"context"
	"errors"
	"net"
	"syscall"
)

// IsCancelOrCloseError reports whether err was produced by cancelling a context
// or by closing the connection locally.
func IsCancelOrCloseError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed)
}

// IsAddrInUseError reports whether binding failed because the local address is taken.
func IsAddrInUseError(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
