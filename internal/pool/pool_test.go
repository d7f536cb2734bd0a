package pool

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPool(t *testing.T) {
	p := New(t.Context(), 2)

	// Add a task that returns a deadline in the future.
	p.Add("a", func(context.Context) time.Time {
		return time.Now().Add(100 * time.Millisecond)
	})

	// Add a task that returns a deadline in the past.
	p.Add("b", func(context.Context) time.Time {
		return time.Now().Add(-100 * time.Millisecond)
	})

	// Add a task that returns a deadline in the future.
	p.Add("c", func(context.Context) time.Time {
		return time.Now().Add(200 * time.Millisecond)
	})

	// Wait for a short period to allow tasks to be processed.
	time.Sleep(300 * time.Millisecond)

	// The pool should have processed all tasks without deadlock.
	// If it had gotten stuck, we'd never reach this line.
	t.Log("All tasks processed successfully")
}

type run struct {
	left     int
	ran      int
	sleep    time.Duration
	deadline time.Duration
}

func (t *run) Execute(context.Context) time.Time {
	if t.left > 0 {
		time.Sleep(t.sleep)
		t.left--
		t.ran++
		return time.Now().Add(t.deadline)
	}

	var zero time.Time
	return zero // dequeue task
}

func TestTrigger(t *testing.T) {
	t.Run("trigger pulls queued task up from", func(t *testing.T) {
		p := New(t.Context(), 2)

		rx := &run{left: 3, deadline: 200 * time.Millisecond}

		p.Add("t", rx.Execute) // will run once (run #1), and be queued for 200 ms

		_ = p.Trigger("t") // pulled in front, run #2
		time.Sleep(50 * time.Millisecond)
		_ = p.Trigger("t")                 // pulled in front, run #3
		time.Sleep(300 * time.Millisecond) // no other runs, third run dequeued

		if exp, act := 3, rx.ran; exp != act {
			t.Errorf("expected counter of %d, got %d", exp, act)
		}
	})

	t.Run("trigger reruns executing task right away", func(t *testing.T) {
		p := New(t.Context(), 2)

		// if it wasn't triggered, we'd not see a second run: the next deadline is 1s
		rx := &run{left: 3, sleep: 100 * time.Millisecond, deadline: time.Second}

		p.Add("t", rx.Execute) // will run once (run #1), and be queued for 200 ms
		time.Sleep(50 * time.Millisecond)
		_ = p.Trigger("t") // re-run after it's done, run #2

		time.Sleep(300 * time.Millisecond)

		if exp, act := 2, rx.ran; exp != act {
			t.Errorf("expected counter of %d, got %d", exp, act)
		}
	})
}

func TestTriggerAfterDebounces(t *testing.T) {
	p := New(t.Context(), 1)

	var mu sync.Mutex
	ran := 0
	p.Add("t", func(context.Context) time.Time {
		mu.Lock()
		ran++
		mu.Unlock()
		return time.Now().Add(time.Hour)
	})
	time.Sleep(20 * time.Millisecond) // initial run

	for range 5 {
		if err := p.TriggerAfter("t", 50*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if exp, act := 2, ran; exp != act {
		t.Errorf("expected counter of %d, got %d", exp, act)
	}
}

func TestTriggerUnknown(t *testing.T) {
	p := New(t.Context(), 1)
	if err := p.Trigger("nope"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRemoval(t *testing.T) {
	p := New(t.Context(), 1)

	rx := &run{left: 1}
	p.Add("t", rx.Execute)
	time.Sleep(50 * time.Millisecond)

	if exp, act := 0, p.Len(); exp != act {
		t.Fatalf("expected %d tasks, got %d", exp, act)
	}
}

func TestStop(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	p := New(ctx, 1)

	var mu sync.Mutex
	ran := 0
	p.Add("t", func(context.Context) time.Time {
		mu.Lock()
		ran++
		mu.Unlock()
		return time.Now().Add(20 * time.Millisecond)
	})
	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if ran != 1 {
		t.Fatalf("expected no runs after stop, got %d", ran)
	}
}
