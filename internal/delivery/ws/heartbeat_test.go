package ws

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
)

func TestHeartbeatState_String(t *testing.T) {
	tests := []struct {
		state    HeartbeatState
		expected string
	}{
		{StateAlive, "alive"},
		{StateAwaitingPong, "awaiting_pong"},
		{StateDead, "dead"},
		{HeartbeatState(42), "unknown"},
	}

	for _, tc := range tests {
		if got := tc.state.String(); got != tc.expected {
			t.Errorf("Expected %s, got %s", tc.expected, got)
		}
	}
}

func TestHeartbeat_PongKeepsAlive(t *testing.T) {
	var pings, deaths int32
	var hb *Heartbeat
	hb = NewHeartbeat(10*time.Millisecond, 50*time.Millisecond, func() error {
		atomic.AddInt32(&pings, 1)
		hb.Pong()
		return nil
	}, func() {
		atomic.AddInt32(&deaths, 1)
	})

	go hb.Run()
	defer hb.Stop()

	eventually(t, "several pings", func() bool { return atomic.LoadInt32(&pings) >= 5 })

	if !hb.Alive() {
		t.Error("Expected answered pings to keep the connection alive")
	}
	if n := atomic.LoadInt32(&deaths); n != 0 {
		t.Errorf("Expected no deaths, got %d", n)
	}
}

func TestHeartbeat_MissedPongIsDead(t *testing.T) {
	var deaths int32
	dead := make(chan struct{})
	hb := NewHeartbeat(10*time.Millisecond, 10*time.Millisecond, func() error { return nil }, func() {
		if atomic.AddInt32(&deaths, 1) == 1 {
			close(dead)
		}
	})

	go hb.Run()
	defer hb.Stop()

	select {
	case <-dead:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected missed pong to kill the connection")
	}

	if hb.Alive() {
		t.Error("Expected liveness false after a missed pong")
	}

	// A late pong must not revive
	hb.Pong()
	time.Sleep(50 * time.Millisecond)

	if hb.Alive() || hb.State() != StateDead {
		t.Errorf("Expected to stay dead, got %s", hb.State())
	}
	if n := atomic.LoadInt32(&deaths); n != 1 {
		t.Errorf("Expected onDead exactly once, got %d", n)
	}
}

func TestHeartbeat_OutstandingPingNotRepeated(t *testing.T) {
	var pings int32
	hb := NewHeartbeat(time.Hour, time.Hour, func() error {
		atomic.AddInt32(&pings, 1)
		return nil
	}, nil)
	defer hb.Stop()

	hb.beat()
	hb.beat()

	if n := atomic.LoadInt32(&pings); n != 1 {
		t.Errorf("Expected 1 ping while awaiting pong, got %d", n)
	}
	if hb.State() != StateAwaitingPong {
		t.Errorf("Expected awaiting_pong, got %s", hb.State())
	}
}

func TestHeartbeat_StaleDeadlineIgnored(t *testing.T) {
	var deaths int32
	hb := NewHeartbeat(time.Hour, time.Hour, func() error { return nil }, func() {
		atomic.AddInt32(&deaths, 1)
	})
	defer hb.Stop()

	hb.beat() // gen 1
	hb.Pong()
	hb.beat() // gen 2

	hb.expire(1)
	if hb.State() != StateAwaitingPong || !hb.Alive() {
		t.Errorf("Expected stale deadline to be ignored, got %s", hb.State())
	}

	hb.expire(2)
	if hb.State() != StateDead || hb.Alive() {
		t.Errorf("Expected current deadline to kill, got %s", hb.State())
	}
	if n := atomic.LoadInt32(&deaths); n != 1 {
		t.Errorf("Expected 1 death, got %d", n)
	}
}

func TestHeartbeat_PongWithoutPingIgnored(t *testing.T) {
	hb := NewHeartbeat(time.Hour, time.Hour, func() error { return nil }, nil)
	defer hb.Stop()

	hb.Pong()
	if hb.State() != StateAlive {
		t.Errorf("Expected alive, got %s", hb.State())
	}
}

func TestHeartbeat_StopPreventsDeath(t *testing.T) {
	var deaths int32
	hb := NewHeartbeat(time.Hour, 10*time.Millisecond, func() error { return nil }, func() {
		atomic.AddInt32(&deaths, 1)
	})

	hb.beat()
	hb.Stop()
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&deaths); n != 0 {
		t.Errorf("Expected no death after Stop, got %d", n)
	}
	if hb.beat() {
		t.Error("Expected beat to report stopped")
	}

	// Stop twice is safe
	hb.Stop()
}

func TestHeartbeat_PingErrorStops(t *testing.T) {
	var deaths int32
	hb := NewHeartbeat(time.Hour, 10*time.Millisecond, func() error {
		return errors.New("broken pipe")
	}, func() {
		atomic.AddInt32(&deaths, 1)
	})

	if hb.beat() {
		t.Error("Expected beat to fail on ping error")
	}
	time.Sleep(50 * time.Millisecond)

	if n := atomic.LoadInt32(&deaths); n != 0 {
		t.Errorf("Expected ping error to stop without onDead, got %d", n)
	}
}
