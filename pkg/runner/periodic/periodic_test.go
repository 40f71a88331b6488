package periodic_test

import (
	"testing"
	"time"

	"github.com/plgd-dev/coaps/pkg/runner/periodic"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestPeriodicRunner(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)
	runner := periodic.New(stop, time.Millisecond*10)

	var forever, once atomic.Int32
	runner(func(time.Time) bool {
		forever.Inc()
		return true
	})
	runner(func(time.Time) bool {
		once.Inc()
		return false
	})
	runner(nil)

	require.Eventually(t, func() bool {
		return forever.Load() >= 3
	}, time.Second, time.Millisecond*5)
	require.Equal(t, int32(1), once.Load())
}

func TestPeriodicRunnerStop(t *testing.T) {
	stop := make(chan struct{})
	runner := periodic.New(stop, time.Millisecond*5)
	var calls atomic.Int32
	runner(func(time.Time) bool {
		calls.Inc()
		return true
	})
	require.Eventually(t, func() bool {
		return calls.Load() > 0
	}, time.Second, time.Millisecond)
	close(stop)
	time.Sleep(time.Millisecond * 20)
	n := calls.Load()
	time.Sleep(time.Millisecond * 30)
	require.Equal(t, n, calls.Load())
}
