//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 THL A29 Limited, a Tencent company.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package tasio

import (
	"runtime/debug"
	"sync"
	"time"

	"github.com/eapache/queue"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"trpc.group/trpc-go/tasio/internal/timer"
	"trpc.group/trpc-go/tasio/log"
	"trpc.group/trpc-go/tasio/metrics"
)

// ReactorState is the lifecycle state of a Reactor.
type ReactorState int32

// Reactor states.
const (
	ReactorCreated ReactorState = iota
	ReactorRunning
	ReactorStopping
	ReactorStopped
)

func (s ReactorState) String() string {
	switch s {
	case ReactorCreated:
		return "created"
	case ReactorRunning:
		return "running"
	case ReactorStopping:
		return "stopping"
	case ReactorStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Timer is a cancellable one-shot timer returned by RunAfter.
type Timer = timer.Timer

// Reactor is an event loop: a FIFO task queue drained by worker goroutines.
//
// With a single worker tasks run one after another in posting order. With
// several workers tasks may run concurrently, work that must not overlap
// has to be serialized by the caller, sessions do it with a strand.
type Reactor struct {
	hint int

	mu    sync.Mutex
	cond  *sync.Cond
	tasks *queue.Queue
	quit  bool

	ctrl  sync.Mutex // serializes Start and Stop
	eg    *errgroup.Group
	state atomic.Int32
}

// NewReactor creates a stopped reactor. concurrencyHint is the number of
// workers the reactor is expected to run with.
func NewReactor(concurrencyHint int) *Reactor {
	r := &Reactor{hint: concurrencyHint, tasks: queue.New()}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Start runs threads worker goroutines. Starting a running reactor is a no-op.
func (r *Reactor) Start(threads int) error {
	if threads <= 0 {
		return ErrZeroThreads
	}
	r.ctrl.Lock()
	defer r.ctrl.Unlock()
	if r.State() == ReactorRunning {
		return nil
	}
	if r.hint == 1 && threads > 1 {
		log.Warnf("tasio: reactor with concurrency hint 1 started with %d threads", threads)
	}
	r.mu.Lock()
	r.quit = false
	r.mu.Unlock()
	r.state.Store(int32(ReactorRunning))
	r.eg = &errgroup.Group{}
	for i := 0; i < threads; i++ {
		r.eg.Go(r.loop)
	}
	return nil
}

// Stop signals the workers to exit and joins them. Tasks still queued stay
// queued until the next Start. Stop must not be called from a task running
// on r itself.
func (r *Reactor) Stop() {
	r.ctrl.Lock()
	defer r.ctrl.Unlock()
	if r.State() != ReactorRunning {
		return
	}
	r.state.Store(int32(ReactorStopping))
	r.mu.Lock()
	r.quit = true
	r.cond.Broadcast()
	r.mu.Unlock()
	if err := r.eg.Wait(); err != nil {
		log.Debugf("tasio: reactor worker exit with error: %v", err)
	}
	r.state.Store(int32(ReactorStopped))
}

// Post queues task. It never blocks and never runs task inline.
func (r *Reactor) Post(task func()) {
	if task == nil {
		return
	}
	r.mu.Lock()
	r.tasks.Add(task)
	r.cond.Signal()
	r.mu.Unlock()
	metrics.Add(metrics.ReactorTasks, 1)
}

// RunAfter posts f onto r once d has elapsed, unless the timer is cancelled.
func (r *Reactor) RunAfter(d time.Duration, f func()) *Timer {
	return timer.New(d, r.Post, f)
}

// State returns the current state.
func (r *Reactor) State() ReactorState {
	return ReactorState(r.state.Load())
}

// ConcurrencyHint returns the hint given to NewReactor.
func (r *Reactor) ConcurrencyHint() int {
	return r.hint
}

// Len returns the number of queued tasks.
func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks.Length()
}

func (r *Reactor) loop() error {
	for {
		r.mu.Lock()
		for r.tasks.Length() == 0 && !r.quit {
			r.cond.Wait()
		}
		if r.quit {
			r.mu.Unlock()
			return nil
		}
		task := r.tasks.Remove().(func())
		r.mu.Unlock()
		r.run(task)
	}
}

func (r *Reactor) run(task func()) {
	defer func() {
		if e := recover(); e != nil {
			metrics.Add(metrics.ReactorPanics, 1)
			log.Errorf("tasio: reactor task panic: %v\n%s", e, debug.Stack())
		}
	}()
	task()
}
