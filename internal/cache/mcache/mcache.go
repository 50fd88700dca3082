// Tencent is pleased to support the open source community by making tRPC available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.

// Package mcache pools byte slices by power-of-two capacity. Sessions take
// their receive buffers from it and give them back when closed.
package mcache

import (
	"sync"
)

// maxSize is the number of size classes, the largest pooled capacity is 1<<(maxSize-1).
const maxSize = 25

var caches [maxSize]sync.Pool

func init() {
	for i := 0; i < maxSize; i++ {
		size := 1 << i
		caches[i].New = func() any {
			return make([]byte, 0, size)
		}
	}
}

// Malloc returns a slice of length size. Its capacity is size rounded up to a
// power of two, or capacity[0] when that is larger.
func Malloc(size int, capacity ...int) []byte {
	if len(capacity) > 1 {
		panic("too many arguments to malloc")
	}
	c := size
	if len(capacity) > 0 && capacity[0] > size {
		c = capacity[0]
	}
	idx := CalIndex(c)
	if idx >= maxSize {
		return make([]byte, size, c)
	}
	return caches[idx].Get().([]byte)[:size]
}

// Realloc returns a slice of length size holding the content of p. If p has
// room it is resliced, otherwise p is copied into a larger slice and freed.
func Realloc(p []byte, size int) []byte {
	if cap(p) >= size {
		return p[:size]
	}
	q := Malloc(size)
	copy(q, p)
	Free(p)
	return q
}

// Free puts p back to its pool. Slices not obtained from Malloc are dropped.
func Free(p []byte) {
	c := cap(p)
	if c <= 1 || !isPowerOfTwo(c) {
		return
	}
	idx := CalIndex(c)
	if idx >= maxSize {
		return
	}
	caches[idx].Put(p[:0])
}

// CalIndex returns the size class serving capacity.
func CalIndex(capacity int) int {
	if capacity <= 1 {
		return capacity
	}
	idx := log2(capacity)
	if isPowerOfTwo(capacity) {
		return idx
	}
	return idx + 1
}

func log2(x int) int {
	r := -1
	for x != 0 {
		x >>= 1
		r++
	}
	return r
}

func isPowerOfTwo(x int) bool {
	return (x & (x - 1)) == 0
}
