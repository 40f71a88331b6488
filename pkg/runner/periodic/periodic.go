package periodic

import (
	"time"

	coapSync "github.com/plgd-dev/coaps/pkg/sync"
	"go.uber.org/atomic"
)

// Func registers f to be called on every tick. f is dropped as soon as it returns false.
type Func = func(f func(now time.Time) bool)

// New starts one ticker shared by all registered callbacks. The ticker stops when stop is closed.
func New(stop <-chan struct{}, tick time.Duration) Func {
	var idx atomic.Uint64
	callbacks := coapSync.NewMap[uint64, func(time.Time) bool]()
	go func() {
		t := time.NewTicker(tick)
		defer t.Stop()
		for {
			var now time.Time
			select {
			case now = <-t.C:
			case <-stop:
				return
			}
			callbacks.Range(func(key uint64, f func(time.Time) bool) bool {
				if !f(now) {
					callbacks.Delete(key)
				}
				return true
			})
		}
	}()
	return func(f func(time.Time) bool) {
		if f == nil {
			return
		}
		callbacks.Store(idx.Inc(), f)
	}
}
