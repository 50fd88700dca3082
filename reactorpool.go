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
	"go.uber.org/atomic"
)

// ReactorPool is a fixed set of reactors that new connections are spread over.
type ReactorPool struct {
	reactors []*Reactor
	next     atomic.Uint64
}

// NewReactorPool creates poolSize reactors sharing the same concurrency hint.
func NewReactorPool(poolSize, concurrencyHint int) (*ReactorPool, error) {
	if poolSize <= 0 {
		return nil, ErrZeroPoolSize
	}
	p := &ReactorPool{reactors: make([]*Reactor, poolSize)}
	for i := range p.reactors {
		p.reactors[i] = NewReactor(concurrencyHint)
	}
	return p, nil
}

// Start starts every reactor with threadsPerReactor workers. Running
// reactors are left untouched.
func (p *ReactorPool) Start(threadsPerReactor int) error {
	if threadsPerReactor <= 0 {
		return ErrZeroThreads
	}
	for _, r := range p.reactors {
		if err := r.Start(threadsPerReactor); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops every reactor and joins its workers.
func (p *ReactorPool) Stop() {
	for _, r := range p.reactors {
		r.Stop()
	}
}

// PickReactor returns the reactors in round-robin order.
func (p *ReactorPool) PickReactor() *Reactor {
	i := (p.next.Inc() - 1) % uint64(len(p.reactors))
	return p.reactors[i]
}

// Len returns the number of reactors.
func (p *ReactorPool) Len() int {
	return len(p.reactors)
}

// Reactor returns the i-th reactor.
func (p *ReactorPool) Reactor(i int) *Reactor {
	return p.reactors[i]
}
