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

package netutil_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/tasio/internal/netutil"
)

func TestGetFD(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer ln.Close()

	fd, err := netutil.GetFD(ln)
	assert.Nil(t, err)
	assert.True(t, fd > 0)

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.Nil(t, err)
	defer conn.Close()
	fd2, err := netutil.GetFD(conn)
	assert.Nil(t, err)
	assert.NotEqual(t, fd, fd2)
}

func TestGetFDNotSupport(t *testing.T) {
	_, err := netutil.GetFD(struct{}{})
	assert.ErrorIs(t, err, netutil.ErrNotSyscallConn)
	err = netutil.Control(struct{}{}, func(int) error { return nil })
	assert.ErrorIs(t, err, netutil.ErrNotSyscallConn)
}

func TestGetFDAfterClosed(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	ln.Close()
	_, err = netutil.GetFD(ln)
	assert.NotNil(t, err)
	err = netutil.Control(ln, func(int) error { return nil })
	assert.NotNil(t, err)
}

func TestControlNoDelay(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)
	defer ln.Close()
	conn, err := net.Dial("tcp", ln.Addr().String())
	require.Nil(t, err)
	defer conn.Close()

	for _, on := range []bool{false, true} {
		err = netutil.Control(conn, func(fd int) error {
			return netutil.SetNoDelay(fd, on)
		})
		require.Nil(t, err)
		var got bool
		err = netutil.Control(conn, func(fd int) error {
			got, err = netutil.NoDelay(fd)
			return err
		})
		require.Nil(t, err)
		assert.Equal(t, on, got)
	}
}
