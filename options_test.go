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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsDefault(t *testing.T) {
	opts := newOptions()
	assert.Equal(t, 1024, opts.recvBufferSize)
	assert.Equal(t, 10*time.Second, opts.connectTimeout)
	assert.Equal(t, 3*time.Second, opts.shutdownTimeout)
	assert.Equal(t, 15*time.Second, opts.keepAlive)
	assert.True(t, opts.noDelay)
	assert.False(t, opts.safeWrite)
	assert.False(t, opts.reusePort)
	assert.Nil(t, opts.service)
}

func TestTASIOOptions(t *testing.T) {
	opts := &options{}

	WithRecvBufferSize(4096).f(opts)
	assert.Equal(t, 4096, opts.recvBufferSize)
	WithRecvBufferSize(0).f(opts)
	assert.Equal(t, 4096, opts.recvBufferSize)

	WithConnectTimeout(time.Second).f(opts)
	assert.Equal(t, time.Second, opts.connectTimeout)

	WithEndpoints(Endpoint{Host: "a", Port: 1}).f(opts)
	WithEndpoints(Endpoint{Host: "b", Port: 2}).f(opts)
	assert.Equal(t, []Endpoint{{"a", 1}, {"b", 2}}, opts.endpoints)

	WithSocketHandlers(func(*Socket) error { return nil }).f(opts)
	assert.Len(t, opts.socketHandlers, 1)

	WithReusePort(true).f(opts)
	assert.True(t, opts.reusePort)

	WithIdleTimeout(time.Minute).f(opts)
	assert.Equal(t, time.Minute, opts.idleTimeout)

	WithSafeWrite(true).f(opts)
	assert.True(t, opts.safeWrite)

	WithShutdownTimeout(time.Second * 2).f(opts)
	assert.Equal(t, time.Second*2, opts.shutdownTimeout)

	WithKeepAlive(time.Second * 5).f(opts)
	assert.Equal(t, time.Second*5, opts.keepAlive)

	WithNoDelay(false).f(opts)
	assert.False(t, opts.noDelay)

	svc := &nopService{}
	WithService(svc).f(opts)
	assert.Same(t, svc, opts.service)
}

func TestSessionOptionsForwarded(t *testing.T) {
	src := newOptions(WithRecvBufferSize(8192), WithIdleTimeout(time.Second),
		WithSafeWrite(true), WithNoDelay(false), WithConnectTimeout(time.Minute))
	dst := newOptions(sessionOptions(&src)...)
	assert.Equal(t, 8192, dst.recvBufferSize)
	assert.Equal(t, time.Second, dst.idleTimeout)
	assert.True(t, dst.safeWrite)
	assert.False(t, dst.noDelay)
	assert.Equal(t, defaultConnectTimeout, dst.connectTimeout)
}

type nopService struct{}

func (*nopService) OnRawSocket(*Socket)         {}
func (*nopService) OnConnected(*Session)        {}
func (*nopService) OnData(*Session, []byte) int { return 0 }
func (*nopService) OnClosed(*Session)           {}
