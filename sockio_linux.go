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

//go:build linux
// +build linux

package tasio

import (
	"net"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
	"trpc.group/trpc-go/tasio/internal/iovec"
	"trpc.group/trpc-go/tasio/metrics"
)

// writeBuffers issues a single writev over bufs, at most iovec.MaxLen of
// them, and returns how many bytes the kernel took. Partial writes are
// reported as such, the caller resubmits the rest.
func writeBuffers(conn net.Conn, bufs [][]byte) (int, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return writeBuffersGeneric(conn, bufs)
	}
	rc, err := sc.SyscallConn()
	if err != nil {
		return writeBuffersGeneric(conn, bufs)
	}
	vec := iovec.Get(bufs)
	defer iovec.Put(vec)
	if vec.Len() == 0 {
		return 0, nil
	}
	ivs := vec.Iovecs()

	var (
		n    int
		werr error
	)
	err = rc.Write(func(fd uintptr) bool {
		for {
			r, _, e := unix.RawSyscall(unix.SYS_WRITEV, fd, uintptr(unsafe.Pointer(&ivs[0])), uintptr(len(ivs)))
			switch e {
			case 0:
				n = int(r)
				metrics.Add(metrics.SendBlocks, uint64(len(ivs)))
				return true
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				return false
			default:
				werr = e
				return true
			}
		}
	})
	if err != nil {
		return n, err
	}
	return n, werr
}
