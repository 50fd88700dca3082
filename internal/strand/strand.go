// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package strand serializes closures on top of an executor that may run
// tasks on several goroutines at once.
package strand

import (
	"runtime/debug"
	"sync"

	"github.com/eapache/queue"
	"go.uber.org/atomic"
	"trpc.group/trpc-go/tasio/log"
)

// drainBatch bounds how many tasks one drain runs before handing the
// worker back to the executor.
const drainBatch = 64

// Executor runs posted tasks asynchronously.
type Executor interface {
	Post(task func())
}

// Strand guarantees that no two tasks posted to it run concurrently, and that
// they run in the order they were posted.
type Strand struct {
	exec  Executor
	mu    sync.Mutex
	tasks *queue.Queue

	// draining is held by the goroutine currently running tasks. It is
	// acquired with CompareAndSwap and may be released by another goroutine.
	draining atomic.Bool
}

// New creates a Strand bound to exec.
func New(exec Executor) *Strand {
	return &Strand{exec: exec, tasks: queue.New()}
}

// Post queues task. It never blocks and never runs task inline.
func (s *Strand) Post(task func()) {
	if task == nil {
		return
	}
	s.mu.Lock()
	s.tasks.Add(task)
	s.mu.Unlock()
	if s.draining.CompareAndSwap(false, true) {
		s.exec.Post(s.drain)
	}
}

// Len returns the number of queued tasks.
func (s *Strand) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Length()
}

func (s *Strand) pop() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks.Length() == 0 {
		return nil, false
	}
	return s.tasks.Remove().(func()), true
}

func (s *Strand) drain() {
	for i := 0; i < drainBatch; i++ {
		task, ok := s.pop()
		if ok {
			s.run(task)
			continue
		}
		s.draining.Store(false)
		// Check again, a task may be posted between pop and Store.
		if s.Len() == 0 || !s.draining.CompareAndSwap(false, true) {
			return
		}
	}
	s.exec.Post(s.drain)
}

func (s *Strand) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("strand task panic: %v\n%s", r, debug.Stack())
		}
	}()
	task()
}
