package feed

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSchedulerDebounces(t *testing.T) {
	scheduler := NewSemanticScheduler(30 * time.Millisecond)

	var fired atomic.Int32
	for i := 0; i < 5; i++ {
		scheduler.Schedule(func(stillCurrent func() bool) {
			if stillCurrent() {
				fired.Add(1)
			}
		})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, time.Second, 5*time.Millisecond)
	// Give any stale timers a chance to misfire.
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
}

func TestSchedulerStaleResultDiscarded(t *testing.T) {
	scheduler := NewSemanticScheduler(10 * time.Millisecond)

	applied := make(chan string, 2)
	slow := make(chan struct{})

	scheduler.Schedule(func(stillCurrent func() bool) {
		<-slow
		if stillCurrent() {
			applied <- "first"
		}
	})
	time.Sleep(20 * time.Millisecond)

	// The first request is already in flight when the second arrives.
	scheduler.Schedule(func(stillCurrent func() bool) {
		if stillCurrent() {
			applied <- "second"
		}
	})
	close(slow)

	select {
	case got := <-applied:
		require.Equal(t, "second", got)
	case <-time.After(time.Second):
		t.Fatal("no result applied")
	}
	select {
	case got := <-applied:
		t.Fatalf("stale result applied: %s", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSchedulerCancel(t *testing.T) {
	scheduler := NewSemanticScheduler(20 * time.Millisecond)

	var fired atomic.Int32
	scheduler.Schedule(func(stillCurrent func() bool) {
		if stillCurrent() {
			fired.Add(1)
		}
	})
	scheduler.Cancel()

	time.Sleep(60 * time.Millisecond)
	require.Zero(t, fired.Load())
}
