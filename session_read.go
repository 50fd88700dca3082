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
	"io"
	"math"
	"runtime/debug"

	"github.com/pkg/errors"
	"trpc.group/trpc-go/tasio/internal/cache/mcache"
	"trpc.group/trpc-go/tasio/log"
	"trpc.group/trpc-go/tasio/metrics"
)

const (
	// minPrepareSize is the receive window a session starts with.
	minPrepareSize = 1024
	// tanhStep is how far the growth curve advances per filled receive.
	tanhStep = 0.2
)

// prepareSizer computes how many bytes a session asks for per receive.
//
// Every receive that fills the requested window advances t on a tanh
// curve, and the window grows by the matching fraction of the distance
// between minPrepareSize and max. Growth is fast at first and flattens out
// towards max. The window never shrinks and t is never reset.
type prepareSizer struct {
	current int
	max     int
	t       float64
}

func newPrepareSizer(maxRecvBufferSize int) prepareSizer {
	return prepareSizer{
		current: minInt(minPrepareSize, maxRecvBufferSize),
		max:     maxInt(minPrepareSize, maxRecvBufferSize),
	}
}

// grow advances the curve and reports whether the window got larger.
func (p *prepareSizer) grow() bool {
	old := math.Tanh(p.t)
	p.t += tanhStep
	diff := float64(p.max-minInt(p.max, minPrepareSize)) * (math.Tanh(p.t) - old)
	prev := p.current
	p.current = minInt(int(float64(p.current)+diff), p.max)
	return p.current > prev
}

// tryRecv arms a receive unless one is in flight or the window is full.
func (s *Session) tryRecv() {
	if s.recvPosted || s.closed.Load() {
		return
	}
	want := s.sizer.current - (s.w - s.r)
	if want <= 0 {
		metrics.Add(metrics.RecvWindowFull, 1)
		return
	}
	s.reserve(want)
	s.recvPosted = true
	p := s.buf[s.w : s.w+want]
	metrics.Add(metrics.RecvCalls, 1)
	doIO(func() {
		n, err := s.conn.Read(p)
		s.strand.Post(func() {
			s.onRecvCompleted(want, n, err)
		})
	})
}

func (s *Session) onRecvCompleted(want, n int, err error) {
	s.recvPosted = false
	if s.closed.Load() {
		s.freeBuffer()
		return
	}
	if n > 0 {
		s.touch()
		metrics.Add(metrics.RecvBytes, uint64(n))
		if n == want && s.sizer.grow() {
			metrics.Add(metrics.RecvGrows, 1)
		}
		s.w += n
		s.process()
	}
	if err != nil {
		if err != io.EOF {
			metrics.Add(metrics.RecvFails, 1)
		}
		s.causeClosed(errors.Wrap(err, "receive"))
		return
	}
	s.tryRecv()
}

// process hands the unconsumed bytes to the data handler for as long as it
// keeps consuming them.
func (s *Session) process() {
	for s.dataHandler != nil && s.w > s.r && !s.closed.Load() {
		avail := s.w - s.r
		n, err := s.callDataHandler(s.buf[s.r:s.w:s.w])
		if err != nil {
			metrics.Add(metrics.HandlerViolations, 1)
			s.causeClosed(err)
			return
		}
		if n < 0 || n > avail {
			metrics.Add(metrics.HandlerViolations, 1)
			log.Errorf("tasio: session %s data handler consumed %d of %d bytes", s.conn.RemoteAddr(), n, avail)
			s.causeClosed(errors.Wrapf(ErrConsumeOverflow, "consumed %d of %d bytes", n, avail))
			return
		}
		if n == 0 {
			return
		}
		s.r += n
	}
}

func (s *Session) callDataHandler(data []byte) (n int, err error) {
	defer func() {
		if e := recover(); e != nil {
			log.Errorf("tasio: session %s data handler panic: %v\n%s", s.conn.RemoteAddr(), e, debug.Stack())
			err = errors.Errorf("data handler panic: %v", e)
		}
	}()
	metrics.Add(metrics.HandlerCalls, 1)
	return s.dataHandler(s, data), nil
}

// reserve makes room for want more bytes after w. It may move or replace
// the buffer, so it must not run while a receive is in flight.
func (s *Session) reserve(want int) {
	if s.r == s.w {
		s.r, s.w = 0, 0
	}
	if len(s.buf)-s.w >= want {
		return
	}
	if s.r > 0 {
		copy(s.buf, s.buf[s.r:s.w])
		s.w -= s.r
		s.r = 0
	}
	if len(s.buf)-s.w >= want {
		return
	}
	s.buf = mcache.Realloc(s.buf[:s.w], s.w+want)
	s.buf = s.buf[:cap(s.buf)]
}

func (s *Session) freeBuffer() {
	if s.buf == nil {
		return
	}
	mcache.Free(s.buf)
	s.buf = nil
	s.r, s.w = 0, 0
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
