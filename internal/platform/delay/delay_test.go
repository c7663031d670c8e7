package delay

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestAfterRunsOnce(t *testing.T) {
	done := make(chan struct{}, 2)
	After(5*time.Millisecond, func() { done <- struct{}{} })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("callback never ran")
	}
	select {
	case <-done:
		t.Fatalf("callback ran twice")
	case <-time.After(30 * time.Millisecond):
	}
}

func TestCancelPreventsCall(t *testing.T) {
	var calls atomic.Int32
	h := After(50*time.Millisecond, func() { calls.Add(1) })

	if !h.Cancel() {
		t.Fatalf("expected cancel to stop a pending callback")
	}
	time.Sleep(80 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("callback ran after cancel")
	}
	if h.Cancel() {
		t.Fatalf("second cancel should report false")
	}
}

func TestCancelAfterFire(t *testing.T) {
	done := make(chan struct{})
	h := After(time.Millisecond, func() { close(done) })
	<-done
	if h.Cancel() {
		t.Fatalf("cancel after fire should report false")
	}
}

func TestNilHandle(t *testing.T) {
	var h *Handle
	if h.Cancel() {
		t.Fatalf("nil handle cancel should report false")
	}
}
