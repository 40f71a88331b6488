package rand

import (
	"math/rand"
	"sync"
)

// Rand is a goroutine-safe wrapper of a weak math/rand source.
// It must not be used where unpredictability matters.
type Rand struct {
	src  *rand.Rand
	lock sync.Mutex
}

func NewRand(seed int64) *Rand {
	return &Rand{
		src: rand.New(rand.NewSource(seed)),
	}
}

func (l *Rand) Uint64() uint64 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.src.Uint64()
}

func (l *Rand) Uint32() uint32 {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.src.Uint32()
}
