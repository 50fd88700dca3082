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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/tasio"
)

func TestNewReactorPool(t *testing.T) {
	_, err := tasio.NewReactorPool(0, 1)
	assert.ErrorIs(t, err, tasio.ErrZeroPoolSize)
	_, err = tasio.NewReactorPool(-1, 1)
	assert.ErrorIs(t, err, tasio.ErrZeroPoolSize)

	p, err := tasio.NewReactorPool(3, 2)
	require.Nil(t, err)
	assert.Equal(t, 3, p.Len())
	for i := 0; i < p.Len(); i++ {
		assert.Equal(t, 2, p.Reactor(i).ConcurrencyHint())
		assert.Equal(t, tasio.ReactorCreated, p.Reactor(i).State())
	}
}

func TestReactorPoolPickRoundRobin(t *testing.T) {
	p, err := tasio.NewReactorPool(3, 1)
	require.Nil(t, err)
	for i := 0; i < 10; i++ {
		assert.Same(t, p.Reactor(i%3), p.PickReactor())
	}
}

func TestReactorPoolPickConcurrent(t *testing.T) {
	p, err := tasio.NewReactorPool(4, 1)
	require.Nil(t, err)
	var (
		mu     sync.Mutex
		counts = make(map[*tasio.Reactor]int)
		wg     sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r := p.PickReactor()
				mu.Lock()
				counts[r]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, counts, 4)
	for _, c := range counts {
		assert.Equal(t, 200, c)
	}
}

func TestReactorPoolStartStop(t *testing.T) {
	p, err := tasio.NewReactorPool(2, 1)
	require.Nil(t, err)
	assert.ErrorIs(t, p.Start(0), tasio.ErrZeroThreads)

	require.Nil(t, p.Start(1))
	require.Nil(t, p.Start(1))
	for i := 0; i < p.Len(); i++ {
		assert.Equal(t, tasio.ReactorRunning, p.Reactor(i).State())
	}

	var wg sync.WaitGroup
	for i := 0; i < p.Len(); i++ {
		wg.Add(1)
		p.Reactor(i).Post(wg.Done)
	}
	wg.Wait()

	p.Stop()
	for i := 0; i < p.Len(); i++ {
		assert.Equal(t, tasio.ReactorStopped, p.Reactor(i).State())
	}
	p.Stop()
}
