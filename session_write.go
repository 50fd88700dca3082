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
	"runtime/debug"

	"github.com/pkg/errors"
	"trpc.group/trpc-go/tasio/log"
	"trpc.group/trpc-go/tasio/metrics"
)

type pendingMessage struct {
	payload []byte
	offset  int
	done    func()
}

// Send queues payload and starts flushing it. done, if not nil, runs on the
// session strand once the whole payload has been written. Payloads are
// written in the order Send is called, and done callbacks fire in the same
// order. Send on a closed session is a no-op and done never fires, neither
// does it for payloads still queued when the session closes.
//
// Unless WithSafeWrite is set, payload must not be modified after Send.
func (s *Session) Send(payload []byte, done func()) {
	if s.closed.Load() {
		return
	}
	metrics.Add(metrics.SendCalls, 1)
	if s.opts.safeWrite {
		payload = append(make([]byte, 0, len(payload)), payload...)
	}
	s.sendMu.Lock()
	if s.closed.Load() {
		s.sendMu.Unlock()
		return
	}
	s.pending.Add(&pendingMessage{payload: payload, done: done})
	s.sendMu.Unlock()
	s.trySend()
}

// PendingSends returns the number of payloads not fully written yet.
func (s *Session) PendingSends() int {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return s.pending.Length()
}

// trySend writes every queued payload with one scatter-gather write, unless
// a write is already in flight.
func (s *Session) trySend() {
	s.sendMu.Lock()
	if s.sending || s.pending.Length() == 0 || s.closed.Load() {
		s.sendMu.Unlock()
		return
	}
	bufs := s.bufs[:0]
	for i := 0; i < s.pending.Length(); i++ {
		m := s.pending.Get(i).(*pendingMessage)
		bufs = append(bufs, m.payload[m.offset:])
	}
	s.bufs = bufs
	s.sending = true
	s.sendMu.Unlock()

	metrics.Add(metrics.SendBatches, 1)
	doIO(func() {
		n, err := writeBuffers(s.conn, bufs)
		s.strand.Post(func() {
			s.onSendCompleted(n, err)
		})
	})
}

func (s *Session) onSendCompleted(n int, err error) {
	s.sendMu.Lock()
	s.sending = false
	if s.closed.Load() {
		s.sendMu.Unlock()
		return
	}
	dones := s.advance(n)
	s.sendMu.Unlock()

	if n > 0 {
		metrics.Add(metrics.SendBytes, uint64(n))
		s.touch()
	}
	if err != nil {
		metrics.Add(metrics.SendBatchFails, 1)
		s.causeClosed(errors.Wrap(err, "send"))
		return
	}
	for _, done := range dones {
		s.runDone(done)
	}
	s.trySend()
}

// advance drops n written bytes from the head of the queue and returns the
// callbacks of the payloads written completely. Must hold sendMu.
func (s *Session) advance(n int) []func() {
	var dones []func()
	for s.pending.Length() > 0 {
		m := s.pending.Peek().(*pendingMessage)
		rest := len(m.payload) - m.offset
		if rest > n {
			m.offset += n
			break
		}
		n -= rest
		s.pending.Remove()
		if m.done != nil {
			dones = append(dones, m.done)
		}
	}
	return dones
}

func (s *Session) runDone(done func()) {
	defer func() {
		if e := recover(); e != nil {
			log.Errorf("tasio: session %s send callback panic: %v\n%s", s.conn.RemoteAddr(), e, debug.Stack())
		}
	}()
	done()
}
