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
	"net"
	"time"

	goreuseport "github.com/kavu/go_reuseport"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"trpc.group/trpc-go/tasio/log"
	"trpc.group/trpc-go/tasio/metrics"
)

const (
	acceptorIdle int32 = iota
	acceptorAccepting
	acceptorClosed
)

// acceptBackoff delays the next accept after a non temporary accept error.
const acceptBackoff = 100 * time.Millisecond

// Acceptor accepts connections on a listener driven by a dedicated reactor
// and hands each of them to a reactor picked from a pool.
type Acceptor struct {
	reactor       *Reactor
	pool          *ReactorPool
	ln            net.Listener
	state         atomic.Int32
	onEstablished func(*Socket)
}

// NewAcceptor binds a listener on address. Completions of the accept loop
// run on listenReactor, accepted sockets are pinned to reactors of pool.
// Only WithReusePort is honored among opt.
func NewAcceptor(listenReactor *Reactor, pool *ReactorPool, network, address string,
	opt ...Option) (*Acceptor, error) {
	if listenReactor == nil || pool == nil {
		return nil, errors.New("acceptor needs a listen reactor and a reactor pool")
	}
	opts := newOptions(opt...)
	listen := net.Listen
	if opts.reusePort {
		listen = goreuseport.Listen
	}
	ln, err := listen(network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s %s", network, address)
	}
	return &Acceptor{reactor: listenReactor, pool: pool, ln: ln}, nil
}

// StartAccept starts the accept loop. onEstablished runs on the reactor the
// socket is pinned to. It fails unless the acceptor is idle.
func (a *Acceptor) StartAccept(onEstablished func(*Socket)) error {
	if onEstablished == nil {
		return errors.New("onEstablished is nil")
	}
	if !a.state.CompareAndSwap(acceptorIdle, acceptorAccepting) {
		return ErrAcceptorState
	}
	a.onEstablished = onEstablished
	a.reactor.Post(a.issueAccept)
	return nil
}

// Close stops the accept loop and closes the listener. It is idempotent.
func (a *Acceptor) Close() error {
	if a.state.Swap(acceptorClosed) == acceptorClosed {
		return nil
	}
	return a.ln.Close()
}

// Closed returns whether Close has been called.
func (a *Acceptor) Closed() bool {
	return a.state.Load() == acceptorClosed
}

// Addr returns the bound address.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

func (a *Acceptor) issueAccept() {
	if a.Closed() {
		return
	}
	metrics.Add(metrics.AcceptCalls, 1)
	doIO(func() {
		conn, err := a.ln.Accept()
		a.reactor.Post(func() {
			a.onAccepted(conn, err)
		})
	})
}

func (a *Acceptor) onAccepted(conn net.Conn, err error) {
	if a.Closed() {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		metrics.Add(metrics.AcceptFails, 1)
		if isTemporary(err) {
			log.Warnf("tasio: accept on %s temporary fail, retry: %v", a.ln.Addr(), err)
			a.issueAccept()
			return
		}
		log.Errorf("tasio: accept on %s fail: %v", a.ln.Addr(), err)
		a.reactor.RunAfter(acceptBackoff, a.issueAccept)
		return
	}
	a.issueAccept()

	r := a.pool.PickReactor()
	sock := newSocket(conn, r)
	r.Post(func() {
		a.onEstablished(sock)
	})
}

func isTemporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}
