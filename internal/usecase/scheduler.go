package usecase

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// scheduler arms timers whose callbacks are handed back to the owner's
// event loop through post instead of running on the timer goroutine.
type scheduler struct {
	clock clockwork.Clock
	post  func(func())
}

func (s scheduler) after(d time.Duration, fn func()) clockwork.Timer {
	return s.clock.AfterFunc(d, func() { s.post(fn) })
}

func stopTimer(timer clockwork.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
