package pool

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Pool executes tasks in order of their deadlines, using a fixed number of goroutines.
// Each task returns its next deadline when it runs; a zero deadline removes it.
// If a task is added or triggered while the pool is waiting, the waiting
// goroutine wakes up to reconsider the queue. Workers stop when the context
// given to New is done.
type Pool struct {
	ctx   context.Context
	mu    sync.Mutex
	queue []*task
	reg   map[string]*task
	wait  chan struct{}
}

type task struct {
	name     string
	fn       func(context.Context) time.Time
	deadline time.Time
	rerun    bool
	delay    time.Duration
}

func New(ctx context.Context, workers int) *Pool {
	pool := Pool{ctx: ctx, reg: make(map[string]*task)}

	for range workers {
		go pool.work()
	}

	return &pool
}

func (p *Pool) Add(name string, fn func(context.Context) time.Time) {
	p.enqueue(&task{name: name, fn: fn, deadline: time.Now()})
}

// work is the main loop for each worker goroutine.
func (p *Pool) work() {
	for {
		t, ok := p.dequeue()
		if !ok {
			return
		}
		t.deadline = t.fn(p.ctx)
		p.enqueue(t)
	}
}

// Trigger runs the named task now. See TriggerAfter.
func (p *Pool) Trigger(n string) error {
	return p.TriggerAfter(n, 0)
}

// TriggerAfter moves the deadline of the named task to d from now, regardless
// of the previous deadline. Repeated triggers keep pushing the deadline out,
// so a burst of triggers results in one run. If the task is running, it is
// rerun d after the current run finishes. Later runs use the deadline
// returned by the task's fn.
func (p *Pool) TriggerAfter(n string, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if i := slices.IndexFunc(p.queue, func(t *task) bool { return t.name == n }); i != -1 {
		p.queue[i].deadline = time.Now().Add(d)
		p.sortAndWake()
		return nil
	}
	// not queued, so it must be running
	if t, ok := p.reg[n]; ok {
		t.rerun = true
		t.delay = d
		return nil
	}

	return fmt.Errorf("no task with name %s", n)
}

// Len returns the number of registered tasks, queued or running.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.reg)
}

// sortAndWake must be called with p.mu held.
func (p *Pool) sortAndWake() {
	slices.SortFunc(p.queue, func(a, b *task) int {
		return a.deadline.Compare(b.deadline)
	})

	if p.wait != nil {
		close(p.wait)
		p.wait = nil
	}
}

func (p *Pool) enqueue(t *task) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t.deadline.IsZero() {
		// Task requested removal from the pool.
		delete(p.reg, t.name)
		return
	}
	if t.rerun {
		t.rerun = false
		t.deadline = time.Now().Add(t.delay)
	}

	p.reg[t.name] = t
	p.queue = append(p.queue, t)
	p.sortAndWake()
}

// dequeue blocks until the first task is due. It reports false once the
// pool's context is done.
func (p *Pool) dequeue() (*task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if p.ctx.Err() != nil {
			return nil, false
		}

		var deadline time.Time
		if len(p.queue) == 0 {
			deadline = time.Now().Add(time.Hour * 24 * 365) // nothing queued
		} else {
			deadline = p.queue[0].deadline
		}

		if !deadline.After(time.Now()) {
			break
		}

		if p.wait == nil {
			p.wait = make(chan struct{})
		}
		wait := p.wait

		p.mu.Unlock()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-timer.C:
		case <-wait:
		case <-p.ctx.Done():
		}
		timer.Stop()

		p.mu.Lock()
	}

	var t *task
	t, p.queue = p.queue[0], p.queue[1:]
	return t, true
}
