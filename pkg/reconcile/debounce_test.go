package reconcile

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	var last atomic.Value
	done := make(chan struct{})
	for i, prompt := range []string{"s", "sk", "sky"} {
		d.Trigger(slot, func() {
			last.Store(prompt)
			calls.Add(1)
			close(done)
		})
		if i < 2 {
			time.Sleep(5 * time.Millisecond)
		}
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}
	time.Sleep(40 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1", n)
	}
	if got := last.Load(); got != "sky" {
		t.Errorf("fired with %v, want the last trigger", got)
	}
	if d.Pending(slot) {
		t.Error("key still pending after firing")
	}
}

func TestDebouncerKeysIndependent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	a, b := make(chan struct{}), make(chan struct{})
	d.Trigger(Key{Producer: "p", Slot: "a"}, func() { close(a) })
	d.Trigger(Key{Producer: "p", Slot: "b"}, func() { close(b) })
	for _, ch := range []chan struct{}{a, b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("a key was swallowed by another key's trigger")
		}
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	d.Trigger(slot, func() { calls.Add(1) })
	if !d.Pending(slot) {
		t.Error("trigger not pending")
	}
	if !d.Cancel(slot) {
		t.Error("Cancel() = false for pending key")
	}
	if d.Cancel(slot) {
		t.Error("Cancel() = true for idle key")
	}
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Error("cancelled call fired")
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(slot, func() { calls.Add(1) })
	d.Stop()
	d.Trigger(slot, func() { calls.Add(1) })
	time.Sleep(50 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("calls after Stop = %d", calls.Load())
	}
}

func TestDebouncerDefaultDelay(t *testing.T) {
	if d := NewDebouncer(0); d.Delay() != DefaultDebounce {
		t.Errorf("Delay() = %v, want %v", d.Delay(), DefaultDebounce)
	}
}
