package ws

import (
	"sync"
	"time"
)

// HeartbeatState is the per-connection liveness state
type HeartbeatState int

const (
	StateAlive HeartbeatState = iota
	StateAwaitingPong
	StateDead
)

func (s HeartbeatState) String() string {
	switch s {
	case StateAlive:
		return "alive"
	case StateAwaitingPong:
		return "awaiting_pong"
	case StateDead:
		return "dead"
	}
	return "unknown"
}

// Heartbeat pings every interval and expects a pong within timeout. A
// missed pong moves it to StateDead for good and calls onDead once.
type Heartbeat struct {
	interval time.Duration
	timeout  time.Duration
	ping     func() error
	onDead   func()

	mu       sync.Mutex
	state    HeartbeatState
	alive    bool
	stopped  bool
	gen      uint64 // bumped per ping; stale deadline timers compare against it
	deadline *time.Timer

	stop     chan struct{}
	stopOnce sync.Once
}

// NewHeartbeat creates a supervisor in StateAlive. Call Run to start it.
func NewHeartbeat(interval, timeout time.Duration, ping func() error, onDead func()) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		timeout:  timeout,
		ping:     ping,
		onDead:   onDead,
		state:    StateAlive,
		alive:    true,
		stop:     make(chan struct{}),
	}
}

// Run drives the ping interval until Stop, a failed ping or death
func (h *Heartbeat) Run() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if !h.beat() {
				return
			}
		}
	}
}

// beat sends one ping and arms its deadline. The deadline is armed before
// the write so a fast pong always finds StateAwaitingPong.
func (h *Heartbeat) beat() bool {
	h.mu.Lock()
	switch {
	case h.stopped || h.state == StateDead:
		h.mu.Unlock()
		return false
	case h.state == StateAwaitingPong:
		// previous ping still outstanding
		h.mu.Unlock()
		return true
	}
	h.state = StateAwaitingPong
	h.gen++
	gen := h.gen
	h.deadline = time.AfterFunc(h.timeout, func() { h.expire(gen) })
	h.mu.Unlock()

	if err := h.ping(); err != nil {
		// the read side sees the broken connection and unregisters
		h.Stop()
		return false
	}
	return true
}

// Pong cancels the pending deadline. It never revives a dead connection.
func (h *Heartbeat) Pong() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateAwaitingPong {
		return
	}
	if h.deadline != nil {
		h.deadline.Stop()
		h.deadline = nil
	}
	h.state = StateAlive
}

func (h *Heartbeat) expire(gen uint64) {
	h.mu.Lock()
	if h.stopped || h.state != StateAwaitingPong || h.gen != gen {
		h.mu.Unlock()
		return
	}
	h.state = StateDead
	h.alive = false
	h.deadline = nil
	h.mu.Unlock()

	if h.onDead != nil {
		h.onDead()
	}
}

// Stop cancels both timers. A deadline that has not fired yet will never
// call onDead; one that already fired may still be running onDead.
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })

	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopped = true
	if h.deadline != nil {
		h.deadline.Stop()
		h.deadline = nil
	}
}

// Alive reports the liveness flag
func (h *Heartbeat) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

// State returns the current state
func (h *Heartbeat) State() HeartbeatState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}
