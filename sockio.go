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

	"trpc.group/trpc-go/tasio/metrics"
)

// writeBuffersGeneric writes bufs through net.Buffers, which uses writev
// itself whenever conn supports it.
func writeBuffersGeneric(conn net.Conn, bufs [][]byte) (int, error) {
	blocks := 0
	for _, b := range bufs {
		if len(b) > 0 {
			blocks++
		}
	}
	if blocks == 0 {
		return 0, nil
	}
	nb := net.Buffers(bufs)
	n, err := nb.WriteTo(conn)
	if err == nil {
		metrics.Add(metrics.SendBlocks, uint64(blocks))
	}
	return int(n), err
}
