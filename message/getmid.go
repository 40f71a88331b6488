package message

import (
	"crypto/rand"
	"encoding/binary"
	"time"

	pkgRand "github.com/plgd-dev/coaps/pkg/rand"
	"go.uber.org/atomic"
)

var weakRng = pkgRand.NewRand(time.Now().UnixNano())

var msgID = atomic.NewUint32(RandUint32())

// GetMID generates a message id for datagram CoAP. (0 <= mid <= 65535)
func GetMID() uint16 {
	return uint16(msgID.Inc())
}

// RandUint32 returns a random seed, falling back to a weak generator when the
// system source is unavailable.
func RandUint32() uint32 {
	b := make([]byte, 4)
	_, err := rand.Read(b)
	if err != nil {
		// fallback to cryptographically insecure pseudo-random generator
		return weakRng.Uint32()
	}
	return binary.BigEndian.Uint32(b)
}

// RandUint64 is like RandUint32 for 64-bit seeds.
func RandUint64() uint64 {
	b := make([]byte, 8)
	_, err := rand.Read(b)
	if err != nil {
		return weakRng.Uint64()
	}
	return binary.BigEndian.Uint64(b)
}
