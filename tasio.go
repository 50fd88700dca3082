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

// Package tasio provides an asynchronous TCP engine built around reactors.
//
// A Reactor is a task queue drained by worker goroutines. Connections are
// accepted by an Acceptor or established by a Connector, handed out as a
// Socket pinned to a reactor picked from a ReactorPool, and promoted to a
// Session. Blocking socket calls run on a goroutine pool and post their
// completions back, so reactor workers never block on I/O.
package tasio

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// ServerService receives the events of the sessions accepted by a TCPServer.
type ServerService interface {
	// OnRawSocket is called before the socket is wrapped into a session.
	// Socket options can be tuned here.
	OnRawSocket(sock *Socket)

	// OnConnected is called once the session is ready to send and receive.
	OnConnected(s *Session)

	// OnData is called with all unconsumed bytes and returns how many of them
	// were consumed, 0 <= n <= len(data). The slice is only valid during the call.
	OnData(s *Session, data []byte) int

	// OnClosed is called exactly once when the session is closed.
	OnClosed(s *Session)
}

// ClientService receives the events of the sessions established by a TCPClient.
type ClientService interface {
	ServerService

	// OnConnectFailed is called when a connect attempt fails. It never fires
	// for an attempt whose OnConnected has fired.
	OnConnectFailed(err error)
}

// DataHandler consumes received bytes and returns how many were consumed.
// Returning 0 keeps the bytes buffered until more data arrives.
type DataHandler func(s *Session, data []byte) int

// ClosedHandler fires once when the session is closed.
type ClosedHandler func(s *Session)

// SocketHandler runs on an established socket before it is handed out.
type SocketHandler func(sock *Socket) error

var (
	// ErrZeroPoolSize is returned when a reactor pool is created without reactors.
	ErrZeroPoolSize = errors.New("reactor pool size must be positive")
	// ErrZeroThreads is returned when a reactor is started without workers.
	ErrZeroThreads = errors.New("number of reactor threads must be positive")
	// ErrNilService is returned when a server or client has no service.
	ErrNilService = errors.New("service is nil")
	// ErrNilAcceptor is returned when a server is started without a listener.
	ErrNilAcceptor = errors.New("acceptor is nil")
	// ErrNoEndpoint is returned when connecting without any endpoint.
	ErrNoEndpoint = errors.New("no endpoint to connect")
	// ErrConnectTimeout is reported when a connect attempt times out.
	ErrConnectTimeout = errors.New("connect timeout")
	// ErrConsumeOverflow closes a session whose data handler consumed more
	// bytes than it was given.
	ErrConsumeOverflow = errors.New("data handler consumed more bytes than available")
	// ErrSocketMoved is returned by a socket that was moved into a session.
	ErrSocketMoved = errors.New("socket has been moved into a session")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session is closed")
	// ErrIdleTimeout closes a session that stayed idle for too long.
	ErrIdleTimeout = errors.New("session idle timeout")
	// ErrAcceptorState is returned when StartAccept or TCPServer.Start is called
	// twice, or after Close.
	ErrAcceptorState = errors.New("acceptor is not idle")
)

// Endpoint is a remote address to connect to.
type Endpoint struct {
	Host string
	Port int
}

// String returns host:port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// ParseEndpoint parses a host:port string.
func ParseEndpoint(address string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return Endpoint{}, errors.Wrapf(err, "parse endpoint %q", address)
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return Endpoint{}, errors.Errorf("parse endpoint %q: invalid port", address)
	}
	return Endpoint{Host: host, Port: p}, nil
}
