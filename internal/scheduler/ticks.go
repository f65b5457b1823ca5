package scheduler

import (
	"sync"
	"time"
)

// Unbounded makes RunNTimes tick until cancelled.
const Unbounded = -1

// Run is a handle on a running tick sequence.
type Run interface {
	// Cancel stops further ticks. It is safe to call more than once and
	// from inside a tick callback.
	Cancel()
	// Done is closed once the run has stopped for any reason.
	Done() <-chan struct{}
}

// TickSource calls onTick count times, interval apart, then calls
// onActive(false). onActive(true) is called after the first tick. A
// cancelled run does not report inactive.
type TickSource interface {
	RunNTimes(onTick func(), onActive func(bool), interval time.Duration, count int) Run
}

// IntervalTicks is the wall-clock TickSource.
type IntervalTicks struct{}

type intervalRun struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func (r *intervalRun) Cancel() {
	r.once.Do(func() { close(r.stop) })
}

func (r *intervalRun) Done() <-chan struct{} {
	return r.done
}

func (r *intervalRun) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// RunNTimes implements TickSource.
func (IntervalTicks) RunNTimes(onTick func(), onActive func(bool), interval time.Duration, count int) Run {
	r := &intervalRun{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(r.done)
		if count == 0 {
			onActive(false)
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for n := 0; count < 0 || n < count; n++ {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
			}
			// Stop wins over a tick that fired at the same time.
			if r.stopped() {
				return
			}
			onTick()
			if n == 0 {
				onActive(true)
			}
		}
		if !r.stopped() {
			onActive(false)
		}
	}()
	return r
}
