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
	"time"
)

const (
	defaultRecvBufferSize  = 1024
	defaultConnectTimeout  = 10 * time.Second
	defaultShutdownTimeout = 3 * time.Second
	defaultTCPKeepAlive    = 15 * time.Second
	defaultNoDelay         = true
)

// Option tasio server, client and session option.
type Option struct {
	f func(*options)
}

type options struct {
	service         ServerService
	recvBufferSize  int
	connectTimeout  time.Duration
	endpoints       []Endpoint
	socketHandlers  []SocketHandler
	reusePort       bool
	idleTimeout     time.Duration
	safeWrite       bool
	shutdownTimeout time.Duration
	keepAlive       time.Duration
	noDelay         bool
}

func (o *options) setDefault() {
	o.recvBufferSize = defaultRecvBufferSize
	o.connectTimeout = defaultConnectTimeout
	o.shutdownTimeout = defaultShutdownTimeout
	o.keepAlive = defaultTCPKeepAlive
	o.noDelay = defaultNoDelay
}

func newOptions(opt ...Option) options {
	opts := options{}
	opts.setDefault()
	for _, o := range opt {
		o.f(&opts)
	}
	return opts
}

// WithService sets the service receiving the session events. A TCPClient
// requires it to implement ClientService to learn about connect failures.
func WithService(service ServerService) Option {
	return Option{func(op *options) {
		op.service = service
	}}
}

// WithRecvBufferSize sets the maximum receive buffer size of a session.
// Sessions start with a 1024 bytes window and grow it towards size while
// receives keep filling the window. Non-positive sizes are ignored.
func WithRecvBufferSize(size int) Option {
	return Option{func(op *options) {
		if size > 0 {
			op.recvBufferSize = size
		}
	}}
}

// WithConnectTimeout sets the connect timeout of a client, 0 disables it.
func WithConnectTimeout(timeout time.Duration) Option {
	return Option{func(op *options) {
		op.connectTimeout = timeout
	}}
}

// WithEndpoints sets the endpoints a client connects to. They are tried in order.
func WithEndpoints(endpoints ...Endpoint) Option {
	return Option{func(op *options) {
		op.endpoints = append(op.endpoints, endpoints...)
	}}
}

// WithSocketHandlers appends handlers run on an established client socket
// before the session is created. A handler error fails the connect attempt.
func WithSocketHandlers(handlers ...SocketHandler) Option {
	return Option{func(op *options) {
		op.socketHandlers = append(op.socketHandlers, handlers...)
	}}
}

// WithReusePort sets whether the listener is bound with SO_REUSEPORT.
func WithReusePort(reusePort bool) Option {
	return Option{func(op *options) {
		op.reusePort = reusePort
	}}
}

// WithIdleTimeout sets the idle timeout to close the session, 0 disables it.
// Any received or sent byte counts as activity.
func WithIdleTimeout(idleTimeout time.Duration) Option {
	return Option{func(op *options) {
		op.idleTimeout = idleTimeout
	}}
}

// WithSafeWrite sets the value of safeWrite for sessions.
// Default value is false.
//
// This option affects the behavior of Send.
//
//	If safeWrite = false: the payload passed into Send is referenced until it
//	  has been written, users cannot modify it after calling Send.
//	If safeWrite = true: the payload is copied, users can reuse it at once.
func WithSafeWrite(safeWrite bool) Option {
	return Option{func(op *options) {
		op.safeWrite = safeWrite
	}}
}

// WithShutdownTimeout sets how long TCPServer.Stop waits for the sessions to close.
func WithShutdownTimeout(timeout time.Duration) Option {
	return Option{func(op *options) {
		op.shutdownTimeout = timeout
	}}
}

// WithKeepAlive sets the tcp keep alive interval, rounded up to seconds.
// A non-positive value leaves the socket untouched.
func WithKeepAlive(keepAlive time.Duration) Option {
	return Option{func(op *options) {
		op.keepAlive = keepAlive
	}}
}

// WithNoDelay sets TCP_NODELAY on new sessions. Default value is true.
func WithNoDelay(noDelay bool) Option {
	return Option{func(op *options) {
		op.noDelay = noDelay
	}}
}
