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

// Package netutil provides socket option helpers on top of raw descriptors.

//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

package netutil

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrNotSyscallConn is returned when the socket exposes no raw descriptor.
var ErrNotSyscallConn = errors.New("socket doesn't implement syscall.Conn")

// GetFD returns the integer Unix file descriptor referencing the socket.
// The descriptor is only valid while the socket is open.
func GetFD(socket interface{}) (int, error) {
	conn, ok := socket.(syscall.Conn)
	if !ok {
		return -1, fmt.Errorf("type %T: %w", socket, ErrNotSyscallConn)
	}
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return -1, fmt.Errorf("get raw connection fail %w", err)
	}

	fd := -1
	op := func(sysfd uintptr) {
		fd = int(sysfd)
	}
	err = rawConn.Control(op)
	if fd == -1 {
		return -1, errors.New("invalid file descriptor")
	}
	return fd, err
}

// Control runs f with the raw descriptor of socket. The descriptor is
// guaranteed to stay open until f returns.
func Control(socket interface{}, f func(fd int) error) error {
	conn, ok := socket.(syscall.Conn)
	if !ok {
		return fmt.Errorf("type %T: %w", socket, ErrNotSyscallConn)
	}
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("get raw connection fail %w", err)
	}
	var ferr error
	if err := rawConn.Control(func(sysfd uintptr) {
		ferr = f(int(sysfd))
	}); err != nil {
		return err
	}
	return ferr
}
