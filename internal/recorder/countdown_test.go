package recorder

import (
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestCountdownTicksThenExpires(t *testing.T) {
	var (
		mu      sync.Mutex
		ticks   []time.Duration
		expired = make(chan struct{})
	)

	var c Countdown
	c.Start(3*testTick, testTick,
		func(remaining time.Duration) {
			mu.Lock()
			ticks = append(ticks, remaining)
			mu.Unlock()
		},
		func() { close(expired) },
	)

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("countdown never expired")
	}
	c.Stop()

	mu.Lock()
	defer mu.Unlock()
	if want := []time.Duration{2 * testTick, testTick, 0}; !reflect.DeepEqual(ticks, want) {
		t.Fatalf("unexpected ticks: %v", ticks)
	}
	if c.Running() {
		t.Fatal("countdown should not be running after expiry")
	}
}

func TestCountdownStopCancelsCallbacks(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	var c Countdown
	c.Start(time.Hour, testTick, func(time.Duration) {
		mu.Lock()
		calls++
		mu.Unlock()
	}, func() { t.Error("expiry must not fire after Stop") })

	time.Sleep(3 * testTick)
	c.Stop()
	c.Stop()

	mu.Lock()
	after := calls
	mu.Unlock()

	time.Sleep(3 * testTick)

	mu.Lock()
	defer mu.Unlock()
	if calls != after {
		t.Fatalf("tick fired after Stop: %d -> %d", after, calls)
	}
	if c.Running() {
		t.Fatal("countdown still running")
	}
}

func TestCountdownRestartReplacesPrevious(t *testing.T) {
	var c Countdown
	first := make(chan struct{}, 1)
	c.Start(time.Hour, time.Hour, nil, func() { first <- struct{}{} })

	expired := make(chan struct{})
	c.Start(testTick, testTick, nil, func() { close(expired) })

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("restarted countdown never expired")
	}
	select {
	case <-first:
		t.Fatal("replaced countdown fired")
	default:
	}
}
