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
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"trpc.group/trpc-go/tasio/log"
)

// TCPServer accepts connections on a dedicated listen reactor and serves
// them as sessions spread over a reactor pool.
type TCPServer struct {
	opts          options
	listenReactor *Reactor
	pool          *ReactorPool
	acceptor      *Acceptor

	mu       sync.Mutex
	sessions map[*Session]struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool
}

// NewTCPServer binds address and builds a pool of poolSize reactors with
// the given concurrency hint. The service must be given by WithService.
func NewTCPServer(address string, poolSize, concurrencyHint int, opt ...Option) (*TCPServer, error) {
	pool, err := NewReactorPool(poolSize, concurrencyHint)
	if err != nil {
		return nil, err
	}
	listenReactor := NewReactor(1)
	acceptor, err := NewAcceptor(listenReactor, pool, "tcp", address, opt...)
	if err != nil {
		return nil, err
	}
	return &TCPServer{
		opts:          newOptions(opt...),
		listenReactor: listenReactor,
		pool:          pool,
		acceptor:      acceptor,
		sessions:      make(map[*Session]struct{}),
	}, nil
}

// Start runs the listen reactor with one worker, every pool reactor with
// threadsPerReactor workers, and starts accepting.
func (s *TCPServer) Start(threadsPerReactor int) error {
	if s.opts.service == nil {
		return ErrNilService
	}
	if s.acceptor == nil {
		return ErrNilAcceptor
	}
	if !s.started.CompareAndSwap(false, true) {
		return errors.Wrap(ErrAcceptorState, "server already started")
	}
	if err := s.listenReactor.Start(1); err != nil {
		s.started.Store(false)
		return err
	}
	if err := s.pool.Start(threadsPerReactor); err != nil {
		s.listenReactor.Stop()
		s.started.Store(false)
		return err
	}
	if err := s.acceptor.StartAccept(s.onEstablished); err != nil {
		s.listenReactor.Stop()
		s.pool.Stop()
		return errors.Wrap(err, "start accept")
	}
	log.Infof("tasio tcp server started on %s, reactors: %d, threads per reactor: %d",
		s.acceptor.Addr(), s.pool.Len(), threadsPerReactor)
	return nil
}

// Stop stops accepting, closes every session, waits up to the shutdown
// timeout for them to report closed and then stops the reactors.
// It must not be called from a service callback.
func (s *TCPServer) Stop() {
	if !s.stopped.CompareAndSwap(false, true) {
		return
	}
	if err := s.acceptor.Close(); err != nil {
		log.Warnf("tasio: close acceptor fail: %v", err)
	}
	s.mu.Lock()
	for sess := range s.sessions {
		sess.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.opts.shutdownTimeout):
		log.Warnf("tasio: %d sessions still open after %v", s.NumSessions(), s.opts.shutdownTimeout)
	}
	s.listenReactor.Stop()
	s.pool.Stop()
}

// Addr returns the listening address.
func (s *TCPServer) Addr() net.Addr {
	return s.acceptor.Addr()
}

// NumSessions returns the number of open sessions.
func (s *TCPServer) NumSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *TCPServer) onEstablished(sock *Socket) {
	if err := sock.SetKeepAlive(s.opts.keepAlive); err != nil {
		log.Warnf("tasio: set keep alive fail: %v", err)
	}
	svc := s.opts.service
	svc.OnRawSocket(sock)
	if _, err := newSession(sock, svc.OnData, s.onClosed, s.onStart, s.sessionOptions()...); err != nil {
		log.Errorf("tasio: create session fail: %v", err)
		sock.Close()
	}
}

func (s *TCPServer) onStart(sess *Session) {
	s.mu.Lock()
	if s.stopped.Load() {
		s.mu.Unlock()
		sess.causeClosed(errors.New("server stopped"))
		return
	}
	s.sessions[sess] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()
	s.opts.service.OnConnected(sess)
}

func (s *TCPServer) onClosed(sess *Session) {
	s.mu.Lock()
	_, ok := s.sessions[sess]
	delete(s.sessions, sess)
	s.mu.Unlock()
	if !ok {
		return
	}
	s.opts.service.OnClosed(sess)
	s.wg.Done()
}

func (s *TCPServer) sessionOptions() []Option {
	return sessionOptions(&s.opts)
}

// sessionOptions forwards the session related settings of opts.
func sessionOptions(opts *options) []Option {
	o := *opts
	return []Option{{func(op *options) {
		op.recvBufferSize = o.recvBufferSize
		op.idleTimeout = o.idleTimeout
		op.safeWrite = o.safeWrite
		op.noDelay = o.noDelay
	}}}
}
