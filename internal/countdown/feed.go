package countdown

import "sync"

// Feed is a Listener that never blocks the clock. Ticks are latest-wins:
// a reader that falls behind sees the most recent value only. Expiry is
// signalled by closing a channel, once.
type Feed struct {
	ticks   chan int
	expired chan struct{}
	once    sync.Once
}

func NewFeed() *Feed {
	return &Feed{
		ticks:   make(chan int, 1),
		expired: make(chan struct{}),
	}
}

func (f *Feed) Ticks() <-chan int { return f.ticks }

func (f *Feed) Expired() <-chan struct{} { return f.expired }

func (f *Feed) OnTick(remaining int) {
	select {
	case f.ticks <- remaining:
		return
	default:
	}
	// Drop the stale value the reader has not picked up yet.
	select {
	case <-f.ticks:
	default:
	}
	select {
	case f.ticks <- remaining:
	default:
	}
}

func (f *Feed) OnExpire() {
	f.once.Do(func() { close(f.expired) })
}
