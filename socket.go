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
	"trpc.group/trpc-go/tasio/internal/netutil"
)

// Socket is an established connection pinned to a reactor that has not been
// wrapped into a session yet. NewSession moves the connection out of it,
// after which every method reports ErrSocketMoved.
type Socket struct {
	reactor *Reactor

	mu   sync.Mutex
	conn net.Conn
}

func newSocket(conn net.Conn, reactor *Reactor) *Socket {
	return &Socket{conn: conn, reactor: reactor}
}

// Reactor returns the reactor the socket is pinned to.
func (s *Socket) Reactor() *Reactor {
	return s.reactor
}

// Conn returns the underlying connection.
func (s *Socket) Conn() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrSocketMoved
	}
	return s.conn, nil
}

// LocalAddr returns the local network address.
func (s *Socket) LocalAddr() (net.Addr, error) {
	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}
	return conn.LocalAddr(), nil
}

// RemoteAddr returns the remote network address.
func (s *Socket) RemoteAddr() (net.Addr, error) {
	conn, err := s.Conn()
	if err != nil {
		return nil, err
	}
	return conn.RemoteAddr(), nil
}

// SetNoDelay toggles Nagle's algorithm.
func (s *Socket) SetNoDelay(noDelay bool) error {
	return s.Control(func(fd int) error {
		return netutil.SetNoDelay(fd, noDelay)
	})
}

// SetKeepAlive sets keep alive time for the connection. If keepAlive <= 0,
// keep alive is left untouched. Otherwise the value is rounded up to seconds.
func (s *Socket) SetKeepAlive(keepAlive time.Duration) error {
	if keepAlive <= 0 {
		return nil
	}
	secs := int((keepAlive + time.Second - 1) / time.Second)
	return s.Control(func(fd int) error {
		return netutil.SetKeepAlive(fd, secs)
	})
}

// Control runs f with the raw file descriptor of the connection.
func (s *Socket) Control(f func(fd int) error) error {
	conn, err := s.Conn()
	if err != nil {
		return err
	}
	return errors.Wrap(netutil.Control(conn, f), "socket control")
}

// Close closes the connection. It is used to drop a socket that will not
// become a session.
func (s *Socket) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return ErrSocketMoved
	}
	return conn.Close()
}

// take moves the connection out of the socket.
func (s *Socket) take() (net.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, ErrSocketMoved
	}
	conn := s.conn
	s.conn = nil
	return conn, nil
}
