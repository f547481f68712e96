package observer

import "time"

// wakeTicker emits a tick every interval, self-correcting against
// anchor + n*interval rather than free-running off time.Sleep/
// time.Ticker, so long-running drift never accumulates. Ported from the
// node's genesis-anchored epoch ticker (shared/slotutil), generalized from
// whole epochs to an arbitrary wake cadence.
type wakeTicker struct {
	c    chan struct{}
	done chan struct{}
}

func newWakeTicker() *wakeTicker {
	return &wakeTicker{
		c:    make(chan struct{}),
		done: make(chan struct{}),
	}
}

// C returns the channel ticks are delivered on.
func (t *wakeTicker) C() <-chan struct{} {
	return t.c
}

// Done stops the ticker's goroutine.
func (t *wakeTicker) Done() {
	close(t.done)
}

func (t *wakeTicker) start(anchor time.Time, interval time.Duration) {
	t.run(anchor, interval, time.Since, time.Until, time.After)
}

func (t *wakeTicker) run(anchor time.Time, interval time.Duration, since, until func(time.Time) time.Duration, after func(time.Duration) <-chan time.Time) {
	d := since(anchor)
	var nextTick int64
	if d < 0 {
		nextTick = 0
	} else {
		nextTick = int64(d/interval) + 1
	}
	nextTickTime := anchor.Add(time.Duration(nextTick) * interval)

	go func() {
		for {
			wait := until(nextTickTime)
			select {
			case <-after(wait):
				select {
				case t.c <- struct{}{}:
				case <-t.done:
					return
				}
				nextTickTime = nextTickTime.Add(interval)
			case <-t.done:
				return
			}
		}
	}()
}
