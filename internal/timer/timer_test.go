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

package timer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"trpc.group/trpc-go/tasio/internal/timer"
)

func goPost(f func()) { go f() }

func TestTimerFires(t *testing.T) {
	ch := make(chan struct{})
	t1 := timer.New(time.Millisecond*5, goPost, func() { close(ch) })
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.True(t, t1.Fired())
	assert.False(t, t1.Cancel())
	assert.False(t, t1.Cancelled())
}

func TestTimerCancel(t *testing.T) {
	ch := make(chan struct{}, 1)
	t1 := timer.New(time.Millisecond*20, goPost, func() { ch <- struct{}{} })
	assert.True(t, t1.Cancel())
	assert.False(t, t1.Cancel())
	time.Sleep(time.Millisecond * 40)
	assert.Len(t, ch, 0)
	assert.True(t, t1.Cancelled())
	assert.False(t, t1.Fired())
}

func TestTimerCancelAfterPost(t *testing.T) {
	// The executor holds the posted task until released, Cancel wins the race.
	queued := make(chan func(), 1)
	post := func(f func()) { queued <- f }
	var ran bool
	t1 := timer.New(time.Millisecond, post, func() { ran = true })
	task := <-queued
	assert.True(t, t1.Cancel())
	task()
	assert.False(t, ran)
}
