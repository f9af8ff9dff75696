package game

import (
	"sync"
	"time"
)

// Ticker abstracts time.Ticker so timer behavior is testable without
// real clocks.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct {
	t *time.Ticker
}

func (rt realTicker) C() <-chan time.Time { return rt.t.C }
func (rt realTicker) Stop()               { rt.t.Stop() }

func newRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}

// roundTimer is one countdown. halt is idempotent so the timer can be
// stopped by its owner and by its own expiry without racing.
type roundTimer struct {
	stop chan struct{}
	once sync.Once
}

func (t *roundTimer) halt() {
	t.once.Do(func() { close(t.stop) })
}

// StartRoundTimer starts the per-round countdown, cancelling any timer
// already running so at most one tick stream is live per room. onTick
// receives the seconds remaining after each one-second tick; onComplete
// fires once when the countdown reaches zero. Neither callback is
// invoked while the room lock is held.
func (r *Room) StartRoundTimer(onTick func(remaining int), onComplete func()) {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.halt()
	}
	t := &roundTimer{stop: make(chan struct{})}
	r.timer = t
	remaining := int(r.roundDuration / time.Second)
	newTicker := r.newTicker
	r.mu.Unlock()

	tick := newTicker(time.Second)
	go func() {
		defer tick.Stop()
		for {
			select {
			case <-tick.C():
				// A tick already pending when the timer is halted
				// must not leak a callback.
				select {
				case <-t.stop:
					return
				default:
				}
				remaining--
				onTick(remaining)
				if remaining <= 0 {
					t.halt()
					r.clearTimer(t)
					onComplete()
					return
				}
			case <-t.stop:
				return
			}
		}
	}()
}

// StopTimer cancels the active round timer, if any. Safe to call at
// any time; used on win detection and room teardown so no orphaned
// tick fires against a finished or disposed room.
func (r *Room) StopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer != nil {
		r.timer.halt()
		r.timer = nil
	}
}

// clearTimer drops the handle only if t is still the current timer, so
// an expiring timer cannot clobber its replacement.
func (r *Room) clearTimer(t *roundTimer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.timer == t {
		r.timer = nil
	}
}
