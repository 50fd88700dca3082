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

// Package timer provides one-shot timers whose callbacks are delivered through
// an executor, so that they run on the same event stream as I/O completions.
package timer

import (
	"time"

	"go.uber.org/atomic"
)

const (
	pending int32 = iota
	fired
	cancelled
)

// Timer type represents a single event. The callback runs at most once and
// never after a successful Cancel.
type Timer struct {
	t     *time.Timer
	state atomic.Int32
}

// New starts a timer that hands f to post once d has elapsed. The fire/cancel
// race is decided when the posted task runs, so a task already queued on the
// executor is still suppressed by Cancel.
func New(d time.Duration, post func(func()), f func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		post(func() {
			if tm.state.CompareAndSwap(pending, fired) {
				f()
			}
		})
	})
	return tm
}

// Cancel stops the timer. It returns true if the callback has not run and
// will never run.
func (t *Timer) Cancel() bool {
	if !t.state.CompareAndSwap(pending, cancelled) {
		return false
	}
	t.t.Stop()
	return true
}

// Fired returns whether the callback has been run.
func (t *Timer) Fired() bool {
	return t.state.Load() == fired
}

// Cancelled returns whether the timer was cancelled before firing.
func (t *Timer) Cancelled() bool {
	return t.state.Load() == cancelled
}
