package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Status is the lifecycle state of a Task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// TaskFunc is the body of a Task. report accepts a 0-100 progress value.
type TaskFunc func(ctx context.Context, report func(percent int)) (any, error)

// Snapshot is a point-in-time view of a Task.
type Snapshot struct {
	ID       string
	Status   Status
	Progress int
	Err      error
}

// subscriberBuffer bounds each Subscribe channel. A slow reader loses
// intermediate snapshots, never the latest one.
const subscriberBuffer = 8

// Task is a handle on background work scheduled with Pool.Go.
type Task struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	status   Status
	progress int
	result   any
	err      error
	subs     map[int]chan Snapshot
	nextSub  int
}

// Go schedules fn without blocking and returns its handle. fn's context is
// cancelled by Task.Cancel, by parent, or by Pool.Shutdown.
func (p *Pool) Go(parent context.Context, id string, fn TaskFunc) (*Task, error) {
	ctx, cancel := context.WithCancel(parent)
	stopAfter := context.AfterFunc(p.ctx, cancel)

	t := &Task{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		status: StatusPending,
		subs:   make(map[int]chan Snapshot),
	}

	err := p.Submit(func() {
		defer stopAfter()
		defer cancel()
		t.run(fn)
	})
	if err != nil {
		stopAfter()
		cancel()
		return nil, err
	}
	return t, nil
}

func (t *Task) run(fn TaskFunc) {
	if err := t.ctx.Err(); err != nil {
		t.finish(nil, err)
		return
	}

	t.mu.Lock()
	t.status = StatusRunning
	t.publishLocked()
	t.mu.Unlock()

	result, err := t.call(fn)
	t.finish(result, err)
}

func (t *Task) call(fn TaskFunc) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workerpool: task %s panicked: %v", t.id, r)
		}
	}()
	return fn(t.ctx, t.report)
}

func (t *Task) report(percent int) {
	percent = min(max(percent, 0), 100)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning || percent <= t.progress {
		return
	}
	t.progress = percent
	t.publishLocked()
}

func (t *Task) finish(result any, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case err == nil:
		t.status = StatusSucceeded
		t.progress = 100
		t.result = result
	case errors.Is(err, context.Canceled) && t.ctx.Err() != nil:
		t.status = StatusCancelled
		t.err = err
	default:
		t.status = StatusFailed
		t.err = err
	}

	t.publishLocked()
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
	close(t.done)
}

func (t *Task) snapshotLocked() Snapshot {
	return Snapshot{ID: t.id, Status: t.status, Progress: t.progress, Err: t.err}
}

func (t *Task) publishLocked() {
	s := t.snapshotLocked()
	for _, ch := range t.subs {
		offer(ch, s)
	}
}

// offer delivers s, evicting the oldest buffered snapshot when ch is full.
// Only the publisher sends on ch, under t.mu, so the second send has room.
func offer(ch chan Snapshot, s Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// ID returns the id given to Go.
func (t *Task) ID() string { return t.id }

// Snapshot returns the current state.
func (t *Task) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Task) Status() Status { return t.Snapshot().Status }

func (t *Task) Progress() int { return t.Snapshot().Progress }

// Result returns fn's result once the task has succeeded, else nil.
func (t *Task) Result() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Err returns the failure or cancellation cause, or nil.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel asks the task to stop. A task that has not started yet finishes
// as cancelled without running.
func (t *Task) Cancel() { t.cancel() }

// Subscribe returns a channel that receives the current snapshot followed
// by every change. It is closed after the terminal snapshot. Call the
// returned func to stop early.
func (t *Task) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	t.mu.Lock()
	defer t.mu.Unlock()

	ch <- t.snapshotLocked()
	if t.status.Terminal() {
		close(ch)
		return ch, func() {}
	}

	id := t.nextSub
	t.nextSub++
	t.subs[id] = ch

	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if c, ok := t.subs[id]; ok {
			close(c)
			delete(t.subs, id)
		}
	}
}
