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

	"github.com/eapache/queue"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"trpc.group/trpc-go/tasio/internal/netutil"
	"trpc.group/trpc-go/tasio/internal/strand"
	"trpc.group/trpc-go/tasio/internal/timer"
	"trpc.group/trpc-go/tasio/log"
	"trpc.group/trpc-go/tasio/metrics"
)

// ShutdownHow selects which half of the connection Shutdown closes.
type ShutdownHow int

// Shutdown directions.
const (
	ShutdownRead ShutdownHow = iota
	ShutdownWrite
	ShutdownBoth
)

// Session owns one connection pinned to one reactor. It receives into an
// adaptively sized buffer handed to the data handler, and sends queued
// payloads in order, coalescing them into scatter-gather writes.
//
// All of its internal work runs on a strand of its reactor, so a session
// never runs two continuations at the same time even on a reactor driven by
// several workers. Send, Close, Shutdown and the setters can be called from
// any goroutine.
type Session struct {
	conn    net.Conn
	reactor *Reactor
	strand  *strand.Strand
	opts    options

	// Receive state, owned by the strand.
	buf         []byte
	r, w        int
	sizer       prepareSizer
	recvPosted  bool
	dataHandler DataHandler

	// Send state, guarded by sendMu.
	sendMu  sync.Mutex
	pending *queue.Queue
	sending bool
	bufs    [][]byte

	closed        atomic.Bool
	closedHandler atomic.Value // closedHolder
	idleTimer     *Timer
	lastActive    atomic.Int64

	metaMu   sync.Mutex
	metaData any
}

type closedHolder struct {
	h ClosedHandler
}

// NewSession moves the connection out of sock and starts receiving on the
// reactor sock is pinned to. dataHandler and closedHandler may be nil and
// set later. Received bytes are kept while no data handler is set.
//
// The options honored are WithRecvBufferSize, WithIdleTimeout,
// WithSafeWrite and WithNoDelay.
func NewSession(sock *Socket, dataHandler DataHandler, closedHandler ClosedHandler,
	opt ...Option) (*Session, error) {
	return newSession(sock, dataHandler, closedHandler, nil, opt...)
}

// newSession is NewSession with onStart run on the strand before anything
// else the session does.
func newSession(sock *Socket, dataHandler DataHandler, closedHandler ClosedHandler,
	onStart func(*Session), opt ...Option) (*Session, error) {
	conn, err := sock.take()
	if err != nil {
		return nil, err
	}
	opts := newOptions(opt...)
	s := &Session{
		conn:        conn,
		reactor:     sock.reactor,
		strand:      strand.New(sock.reactor),
		opts:        opts,
		sizer:       newPrepareSizer(opts.recvBufferSize),
		dataHandler: dataHandler,
		pending:     queue.New(),
	}
	s.closedHandler.Store(closedHolder{closedHandler})
	if err := netutil.Control(conn, func(fd int) error {
		return netutil.SetNoDelay(fd, opts.noDelay)
	}); err != nil {
		log.Debugf("tasio: session set nodelay fail: %v", err)
	}
	metrics.Add(metrics.SessionsCreate, 1)
	if opts.idleTimeout > 0 {
		s.touch()
		s.idleTimer = s.RunAfter(opts.idleTimeout, s.onIdle)
	}
	if onStart != nil {
		s.strand.Post(func() {
			onStart(s)
		})
	}
	s.strand.Post(s.tryRecv)
	return s, nil
}

// SetDataHandler replaces the data handler. Bytes received but not consumed
// yet are handed to the new handler first.
func (s *Session) SetDataHandler(h DataHandler) {
	s.strand.Post(func() {
		s.dataHandler = h
		s.process()
		s.tryRecv()
	})
}

// SetClosedHandler replaces the closed handler.
func (s *Session) SetClosedHandler(h ClosedHandler) {
	s.closedHandler.Store(closedHolder{h})
}

// Close closes the session asynchronously. The closed handler fires once
// the close has been carried out. Sends not flushed yet are dropped.
func (s *Session) Close() {
	s.strand.Post(func() {
		s.causeClosed(nil)
	})
}

// Shutdown shuts down one or both halves of the connection asynchronously.
// Shutting down the read half ends the session once the pending receive
// observes it.
func (s *Session) Shutdown(how ShutdownHow) {
	s.strand.Post(func() {
		if s.closed.Load() {
			return
		}
		if err := shutdownConn(s.conn, how); err != nil {
			log.Debugf("tasio: session %s shutdown fail: %v", s.conn.RemoteAddr(), err)
		}
	})
}

// RunAfter runs f on the session strand once d has elapsed, unless the
// returned timer is cancelled.
func (s *Session) RunAfter(d time.Duration, f func()) *Timer {
	return timer.New(d, s.strand.Post, f)
}

// IsActive returns whether the session is still open.
func (s *Session) IsActive() bool {
	return !s.closed.Load()
}

// LocalAddr returns the local network address.
func (s *Session) LocalAddr() net.Addr {
	return s.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
func (s *Session) RemoteAddr() net.Addr {
	return s.conn.RemoteAddr()
}

// Reactor returns the reactor the session is pinned to.
func (s *Session) Reactor() *Reactor {
	return s.reactor
}

// SetMetaData binds custom data to the session.
func (s *Session) SetMetaData(m any) {
	s.metaMu.Lock()
	s.metaData = m
	s.metaMu.Unlock()
}

// GetMetaData gets metadata.
func (s *Session) GetMetaData() any {
	s.metaMu.Lock()
	defer s.metaMu.Unlock()
	return s.metaData
}

// causeClosed is the only way a session gets closed. It runs on the strand.
func (s *Session) causeClosed(reason error) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.sendMu.Lock()
	for s.pending.Length() > 0 {
		s.pending.Remove()
	}
	s.sendMu.Unlock()

	s.conn.Close()
	if s.idleTimer != nil {
		s.idleTimer.Cancel()
	}
	if !s.recvPosted {
		s.freeBuffer()
	}
	metrics.Add(metrics.SessionsClose, 1)
	if reason != nil {
		log.Debugf("tasio: session %s closed: %v", s.conn.RemoteAddr(), reason)
	}
	if h := s.closedHandler.Load().(closedHolder).h; h != nil {
		h(s)
	}
}

func (s *Session) touch() {
	if s.opts.idleTimeout > 0 {
		s.lastActive.Store(time.Now().UnixNano())
	}
}

func (s *Session) onIdle() {
	if s.closed.Load() {
		return
	}
	idle := time.Duration(time.Now().UnixNano() - s.lastActive.Load())
	if idle >= s.opts.idleTimeout {
		s.causeClosed(ErrIdleTimeout)
		return
	}
	s.idleTimer = s.RunAfter(s.opts.idleTimeout-idle, s.onIdle)
}

func shutdownConn(conn net.Conn, how ShutdownHow) error {
	type halfCloser interface {
		CloseRead() error
		CloseWrite() error
	}
	hc, ok := conn.(halfCloser)
	if !ok {
		if how == ShutdownBoth {
			return conn.Close()
		}
		return errors.Errorf("%T doesn't support half close", conn)
	}
	switch how {
	case ShutdownRead:
		return hc.CloseRead()
	case ShutdownWrite:
		return hc.CloseWrite()
	default:
		if err := hc.CloseRead(); err != nil {
			return err
		}
		return hc.CloseWrite()
	}
}
