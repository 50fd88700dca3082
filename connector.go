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
	"context"
	"net"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"trpc.group/trpc-go/tasio/metrics"
)

type dialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Connector establishes outbound connections and pins them to reactors.
type Connector struct {
	pool *ReactorPool
	dial dialFunc
}

// NewConnector creates a connector picking reactors from pool. pool may be
// nil if only AsyncConnectOn is used.
func NewConnector(pool *ReactorPool) *Connector {
	d := &net.Dialer{}
	return &Connector{pool: pool, dial: d.DialContext}
}

// AsyncConnect connects to the first reachable endpoint on a reactor picked
// from the pool. See AsyncConnectOn.
func (c *Connector) AsyncConnect(endpoints []Endpoint, timeout time.Duration,
	onSuccess func(*Socket), onFailure func(error), setup ...SocketHandler) {
	c.AsyncConnectOn(c.pool.PickReactor(), endpoints, timeout, onSuccess, onFailure, setup...)
}

// AsyncConnectOn connects to the first reachable endpoint, trying them in
// order, and pins the connection to reactor.
//
// Exactly one of onSuccess and onFailure is called, once, on reactor. The
// setup handlers run in order on the new socket before onSuccess, the first
// handler error closes the socket and is reported to onFailure. If timeout
// elapses first onFailure gets ErrConnectTimeout and a connection established
// later is closed. A non-positive timeout disables the timer.
func (c *Connector) AsyncConnectOn(reactor *Reactor, endpoints []Endpoint, timeout time.Duration,
	onSuccess func(*Socket), onFailure func(error), setup ...SocketHandler) {
	metrics.Add(metrics.ConnectCalls, 1)
	a := &connectAttempt{
		reactor:   reactor,
		onSuccess: onSuccess,
		onFailure: onFailure,
		setup:     setup,
	}
	if len(endpoints) == 0 {
		reactor.Post(func() {
			a.fail(ErrNoEndpoint)
		})
		return
	}
	var ctx context.Context
	ctx, a.cancel = context.WithCancel(context.Background())
	if timeout > 0 {
		a.timer = reactor.RunAfter(timeout, a.onTimeout)
	}
	eps := append([]Endpoint(nil), endpoints...)
	doIO(func() {
		conn, err := c.dialEndpoints(ctx, eps)
		reactor.Post(func() {
			a.onDialed(conn, err)
		})
	})
}

func (c *Connector) dialEndpoints(ctx context.Context, endpoints []Endpoint) (net.Conn, error) {
	var lastErr error
	for _, ep := range endpoints {
		conn, err := c.dial(ctx, "tcp", ep.String())
		if err == nil {
			return conn, nil
		}
		lastErr = errors.Wrapf(err, "connect %s", ep)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

type connectAttempt struct {
	reactor   *Reactor
	onSuccess func(*Socket)
	onFailure func(error)
	setup     []SocketHandler
	cancel    context.CancelFunc
	timer     *Timer
	done      atomic.Bool
}

func (a *connectAttempt) onTimeout() {
	if !a.done.CompareAndSwap(false, true) {
		return
	}
	metrics.Add(metrics.ConnectTimeouts, 1)
	a.cancel()
	a.report(ErrConnectTimeout)
}

func (a *connectAttempt) onDialed(conn net.Conn, err error) {
	if a.timer != nil {
		a.timer.Cancel()
	}
	a.cancel()
	if !a.done.CompareAndSwap(false, true) {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		metrics.Add(metrics.ConnectFails, 1)
		a.report(err)
		return
	}
	sock := newSocket(conn, a.reactor)
	for _, h := range a.setup {
		if err := h(sock); err != nil {
			sock.Close()
			metrics.Add(metrics.ConnectFails, 1)
			a.report(errors.Wrap(err, "socket setup handler"))
			return
		}
	}
	if a.onSuccess == nil {
		sock.Close()
		return
	}
	a.onSuccess(sock)
}

func (a *connectAttempt) fail(err error) {
	if !a.done.CompareAndSwap(false, true) {
		return
	}
	metrics.Add(metrics.ConnectFails, 1)
	a.report(err)
}

func (a *connectAttempt) report(err error) {
	if a.onFailure != nil {
		a.onFailure(err)
	}
}
