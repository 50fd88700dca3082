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

package tasio_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"trpc.group/trpc-go/tasio"
)

func TestReactorStartStop(t *testing.T) {
	r := tasio.NewReactor(1)
	assert.Equal(t, tasio.ReactorCreated, r.State())
	assert.Equal(t, 1, r.ConcurrencyHint())
	assert.ErrorIs(t, r.Start(0), tasio.ErrZeroThreads)

	require.Nil(t, r.Start(1))
	assert.Equal(t, tasio.ReactorRunning, r.State())
	require.Nil(t, r.Start(1))

	var wg sync.WaitGroup
	wg.Add(1)
	r.Post(wg.Done)
	wg.Wait()

	r.Stop()
	assert.Equal(t, tasio.ReactorStopped, r.State())
	r.Stop()
	assert.Equal(t, "stopped", r.State().String())
}

func TestReactorQueuedWhileStopped(t *testing.T) {
	r := tasio.NewReactor(1)
	ran := atomic.NewBool(false)
	r.Post(func() { ran.Store(true) })
	r.Post(nil)
	assert.Equal(t, 1, r.Len())
	time.Sleep(10 * time.Millisecond)
	assert.False(t, ran.Load())

	require.Nil(t, r.Start(1))
	defer r.Stop()
	assert.Eventually(t, ran.Load, time.Second, time.Millisecond)
}

func TestReactorFIFO(t *testing.T) {
	r := tasio.NewReactor(1)
	require.Nil(t, r.Start(1))
	defer r.Stop()

	const n = 1000
	var got []int
	done := make(chan struct{})
	for i := 0; i < n; i++ {
		i := i
		r.Post(func() {
			got = append(got, i)
			if i == n-1 {
				close(done)
			}
		})
	}
	<-done
	require.Len(t, got, n)
	for i := range got {
		assert.Equal(t, i, got[i])
	}
}

func TestReactorMultipleThreads(t *testing.T) {
	const threads = 4
	r := tasio.NewReactor(threads)
	require.Nil(t, r.Start(threads))
	defer r.Stop()

	// Every task waits for all the others, which only succeeds if they
	// run on distinct workers at the same time.
	var started sync.WaitGroup
	started.Add(threads)
	var finished sync.WaitGroup
	finished.Add(threads)
	for i := 0; i < threads; i++ {
		r.Post(func() {
			started.Done()
			started.Wait()
			finished.Done()
		})
	}
	waitTimeout(t, &finished, time.Second)
}

func TestReactorPanicRecovered(t *testing.T) {
	r := tasio.NewReactor(1)
	require.Nil(t, r.Start(1))
	defer r.Stop()

	r.Post(func() { panic("boom") })
	var wg sync.WaitGroup
	wg.Add(1)
	r.Post(wg.Done)
	waitTimeout(t, &wg, time.Second)
}

func TestReactorRunAfter(t *testing.T) {
	r := tasio.NewReactor(1)
	require.Nil(t, r.Start(1))
	defer r.Stop()

	fired := atomic.NewBool(false)
	start := time.Now()
	tm := r.RunAfter(20*time.Millisecond, func() { fired.Store(true) })
	assert.Eventually(t, fired.Load, time.Second, time.Millisecond)
	assert.True(t, time.Since(start) >= 20*time.Millisecond)
	assert.True(t, tm.Fired())
	assert.False(t, tm.Cancel())

	cancelled := atomic.NewBool(false)
	tm = r.RunAfter(20*time.Millisecond, func() { cancelled.Store(true) })
	assert.True(t, tm.Cancel())
	time.Sleep(50 * time.Millisecond)
	assert.False(t, cancelled.Load())
	assert.True(t, tm.Cancelled())
}

func waitTimeout(t *testing.T, wg *sync.WaitGroup, d time.Duration) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatalf("wait timeout after %v", d)
	}
}
