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
	"github.com/pkg/errors"
	"trpc.group/trpc-go/tasio/log"
)

// TCPClient establishes sessions to the configured endpoints on a reactor
// pool and reports their events to a ClientService.
type TCPClient struct {
	opts      options
	service   ClientService
	connector *Connector
}

// NewTCPClient creates a client connecting on reactors of pool. The service
// given by WithService must implement ClientService.
func NewTCPClient(pool *ReactorPool, opt ...Option) (*TCPClient, error) {
	if pool == nil {
		return nil, errors.New("reactor pool is nil")
	}
	opts := newOptions(opt...)
	svc, ok := opts.service.(ClientService)
	if !ok {
		return nil, ErrNilService
	}
	return &TCPClient{
		opts:      opts,
		service:   svc,
		connector: NewConnector(pool),
	}, nil
}

// AsyncConnect starts one connect attempt. Either OnConnected or
// OnConnectFailed of the service fires once for it.
func (c *TCPClient) AsyncConnect() {
	setup := make([]SocketHandler, 0, len(c.opts.socketHandlers)+1)
	setup = append(setup, c.setKeepAlive)
	setup = append(setup, c.opts.socketHandlers...)
	c.connector.AsyncConnect(c.opts.endpoints, c.opts.connectTimeout, c.onConnected, c.onFailed, setup...)
}

func (c *TCPClient) setKeepAlive(sock *Socket) error {
	if err := sock.SetKeepAlive(c.opts.keepAlive); err != nil {
		log.Warnf("tasio: set keep alive fail: %v", err)
	}
	return nil
}

func (c *TCPClient) onConnected(sock *Socket) {
	c.service.OnRawSocket(sock)
	_, err := newSession(sock, c.service.OnData, c.service.OnClosed, c.service.OnConnected,
		sessionOptions(&c.opts)...)
	if err != nil {
		sock.Close()
		c.onFailed(err)
	}
}

func (c *TCPClient) onFailed(err error) {
	log.Debugf("tasio: connect %v fail: %v", c.opts.endpoints, err)
	c.service.OnConnectFailed(err)
}
