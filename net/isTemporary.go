package net

import (
	"errors"
	"net"
	"strings"
	"time"
)

// https://github.com/golang/go/blob/958e212db799e609b2a8df51cdd85c9341e7a404/src/internal/poll/fd.go#L43
const ioTimeout = "i/o timeout"

func isTemporary(err error, deadline time.Time) bool {
	if deadline.After(time.Now()) {
		// a timeout reported before our own deadline was not caused by the heartbeat
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return strings.Contains(err.Error(), ioTimeout)
}
