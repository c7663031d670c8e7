package countdown

import (
	"errors"
	"sync"
	"time"
)

var ErrAlreadyStarted = errors.New("countdown already started")
var ErrNoTime = errors.New("countdown has no time to run")

const DefaultInterval = time.Second

type State int

const (
	StateIdle State = iota
	StateRunning
	StateExpired
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateExpired:
		return "expired"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Listener receives clock notifications on the countdown's own goroutine.
// Implementations must return promptly and must not call Stop; see Feed.
type Listener interface {
	OnTick(remaining int)
	OnExpire()
}

type Option func(*Countdown)

func WithInterval(d time.Duration) Option {
	return func(c *Countdown) {
		if d > 0 {
			c.interval = d
		}
	}
}

// Countdown decrements a whole-second budget once per interval until it
// reaches zero or is stopped.
type Countdown struct {
	mu sync.Mutex
	// notify is held while a listener call is in flight, so Stop can wait
	// it out.
	notify    sync.Mutex
	state     State
	remaining int
	interval  time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

func New(seconds int, opts ...Option) *Countdown {
	c := &Countdown{
		remaining: max(seconds, 0),
		interval:  DefaultInterval,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Countdown) Start(l Listener) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return ErrAlreadyStarted
	}
	if c.remaining <= 0 {
		return ErrNoTime
	}
	c.state = StateRunning
	go c.run(l, c.interval)
	return nil
}

func (c *Countdown) run(l Listener, first time.Duration) {
	timer := time.NewTimer(first)
	defer timer.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-timer.C:
			c.notify.Lock()
			c.mu.Lock()
			if c.state != StateRunning {
				c.mu.Unlock()
				c.notify.Unlock()
				return
			}
			if c.remaining > 0 {
				c.remaining--
			}
			remaining := c.remaining
			expired := remaining == 0
			if expired {
				c.state = StateExpired
			}
			next := c.interval
			c.mu.Unlock()

			if l != nil {
				l.OnTick(remaining)
				if expired {
					l.OnExpire()
				}
			}
			c.notify.Unlock()
			if expired {
				return
			}
			timer.Reset(next)
		}
	}
}

// AddTime extends a running countdown. It reports whether the time was added.
func (c *Countdown) AddTime(seconds int) bool {
	if seconds <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return false
	}
	c.remaining += seconds
	return true
}

// SetTickRate changes the period used from the next scheduled tick on. The
// tick already in flight keeps its original deadline.
func (c *Countdown) SetTickRate(d time.Duration) bool {
	if d <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return false
	}
	c.interval = d
	return true
}

// Stop halts the clock. Once it returns no further notification is
// delivered.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.state == StateRunning {
		c.state = StateStopped
	}
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.stop) })

	// Wait out a tick that passed the state check before we got here.
	c.notify.Lock()
	c.notify.Unlock()
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Countdown) Interval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}
