package filters

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer(t *testing.T) {
	t.Run("collapses rapid calls into the last one", func(t *testing.T) {
		d := NewDebouncer(20 * time.Millisecond)
		defer d.Stop()

		var mu sync.Mutex
		var fired []int
		done := make(chan struct{}, 10)

		for i := 1; i <= 10; i++ {
			d.Call(func() {
				mu.Lock()
				fired = append(fired, i)
				mu.Unlock()
				done <- struct{}{}
			})
		}

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("debounced call never fired")
		}
		time.Sleep(60 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(fired) != 1 {
			t.Fatalf("expected exactly one call, got %d (%v)", len(fired), fired)
		}
		if fired[0] != 10 {
			t.Errorf("expected last value 10, got %d", fired[0])
		}
	})

	t.Run("waits for the delay", func(t *testing.T) {
		d := NewDebouncer(40 * time.Millisecond)
		defer d.Stop()

		var calls atomic.Int32
		d.Call(func() { calls.Add(1) })

		time.Sleep(10 * time.Millisecond)
		if calls.Load() != 0 {
			t.Error("expected no call before the delay elapsed")
		}
		if !d.Pending() {
			t.Error("expected a pending call")
		}
	})

	t.Run("Stop cancels the pending call", func(t *testing.T) {
		d := NewDebouncer(10 * time.Millisecond)

		var calls atomic.Int32
		d.Call(func() { calls.Add(1) })
		d.Stop()
		d.Call(func() { calls.Add(1) })

		time.Sleep(40 * time.Millisecond)
		if n := calls.Load(); n != 0 {
			t.Errorf("expected no calls after Stop, got %d", n)
		}
		if d.Pending() {
			t.Error("expected nothing pending after Stop")
		}
	})

	t.Run("Cancel keeps the debouncer usable", func(t *testing.T) {
		d := NewDebouncer(10 * time.Millisecond)
		defer d.Stop()

		var calls atomic.Int32
		d.Call(func() { calls.Add(100) })
		if !d.Cancel() {
			t.Error("expected Cancel to report a pending call")
		}
		if d.Cancel() {
			t.Error("expected second Cancel to report nothing pending")
		}

		done := make(chan struct{})
		d.Call(func() { calls.Add(1); close(done) })

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("call after Cancel never fired")
		}
		if n := calls.Load(); n != 1 {
			t.Errorf("expected only the second call, got %d", n)
		}
	})

	t.Run("Flush runs immediately", func(t *testing.T) {
		d := NewDebouncer(time.Hour)
		defer d.Stop()

		var calls atomic.Int32
		d.Call(func() { calls.Add(1) })

		if !d.Flush() {
			t.Fatal("expected Flush to run the pending call")
		}
		if calls.Load() != 1 {
			t.Errorf("expected 1 call, got %d", calls.Load())
		}
		if d.Flush() {
			t.Error("expected nothing left to flush")
		}
	})

	t.Run("default delay", func(t *testing.T) {
		if d := NewDebouncer(0); d.Delay() != DefaultDebounce {
			t.Errorf("expected %v, got %v", DefaultDebounce, d.Delay())
		}
	})
}
