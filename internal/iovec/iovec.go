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

//go:build linux || freebsd || dragonfly || darwin
// +build linux freebsd dragonfly darwin

// Package iovec builds pooled unix.Iovec slices for scatter-gather writes.
package iovec

import (
	"sync"

	"golang.org/x/sys/unix"
)

const (
	// MaxLen is the largest number of iovecs passed to one writev call (IOV_MAX).
	MaxLen = 1024
	// defaultCap is the capacity of pooled vectors.
	defaultCap = 64
)

// Vec holds iovecs pointing into caller owned byte slices.
type Vec struct {
	iovs  []unix.Iovec
	bytes int
}

var vecPool = sync.Pool{
	New: func() any {
		return &Vec{iovs: make([]unix.Iovec, 0, defaultCap)}
	},
}

// Get builds a Vec from bs. Empty slices are skipped and at most MaxLen
// iovecs are taken, the rest is left for a following call.
// Release it with Put.
func Get(bs [][]byte) *Vec {
	v := vecPool.Get().(*Vec)
	for _, b := range bs {
		if len(v.iovs) == MaxLen {
			break
		}
		if len(b) == 0 {
			continue
		}
		iov := unix.Iovec{Base: &b[0]}
		iov.SetLen(len(b))
		v.iovs = append(v.iovs, iov)
		v.bytes += len(b)
	}
	return v
}

// Iovecs returns the built iovecs.
func (v *Vec) Iovecs() []unix.Iovec {
	return v.iovs
}

// Len returns the number of iovecs.
func (v *Vec) Len() int {
	return len(v.iovs)
}

// Bytes returns the total length described by the iovecs.
func (v *Vec) Bytes() int {
	return v.bytes
}

// Put drops the references to the user buffers and recycles v.
func Put(v *Vec) {
	if cap(v.iovs) > MaxLen {
		return
	}
	for i := range v.iovs {
		v.iovs[i].Base = nil
	}
	v.iovs = v.iovs[:0]
	v.bytes = 0
	vecPool.Put(v)
}
