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

// Package metrics provides tasio runtime counters, such as how well sends are
// coalesced or how often receive windows grow, which helps tuning buffer sizes
// and reactor counts.
package metrics

import (
	"time"

	"go.uber.org/atomic"
	"trpc.group/trpc-go/tasio/log"
)

// All metrics definitions.
const (
	// The following constants are session metrics.

	SessionsCreate = iota
	SessionsClose
	RecvCalls
	RecvFails
	RecvBytes
	RecvGrows
	RecvWindowFull
	HandlerCalls
	HandlerViolations
	SendCalls
	SendBatches
	SendBatchFails
	SendBlocks
	SendBytes

	// The following constants are acceptor and connector metrics.

	AcceptCalls
	AcceptFails
	ConnectCalls
	ConnectFails
	ConnectTimeouts

	// The following constants are reactor metrics.

	ReactorTasks
	ReactorPanics
	TaskAssigned

	// Keep it last.

	Max
)

var (
	metrics [Max]atomic.Uint64
)

// Add metrics counter.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	metrics[name].Add(delta)
}

// Get one metric counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return metrics[name].Load()
}

// GetAll get all metrics.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range metrics {
		m[i] = metrics[i].Load()
	}
	return m
}

// ShowMetricsOfPeriod blocks for d and then logs the counters accumulated during it.
func ShowMetricsOfPeriod(d time.Duration) {
	old := GetAll()
	<-time.After(d)
	cur := GetAll()
	var m [Max]uint64
	for i := range metrics {
		m[i] = cur[i] - old[i]
	}
	showAll(m)
}

// ShowMetrics shows metric info in console.
func ShowMetrics() {
	showAll(GetAll())
}

func showAll(m [Max]uint64) {
	log.Debug("######### tasio metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	showSessionMetrics(m)
	showEndpointMetrics(m)
	log.Debugf("%-55s: %d", "# REACTOR - number of tasks executed", m[ReactorTasks])
	log.Debugf("%-55s: %d", "# REACTOR - number of recovered task panics", m[ReactorPanics])
	log.Debugf("%-55s: %d", "# number of I/O tasks assigned", m[TaskAssigned])
}

func showSessionMetrics(m [Max]uint64) {
	log.Debugf("%-55s: %d", "# SESSION - number of sessions created", m[SessionsCreate])
	log.Debugf("%-55s: %d", "# SESSION - number of sessions closed", m[SessionsClose])
	log.Debugf("%-55s: %d", "# SESSION - number of receive calls", m[RecvCalls])
	log.Debugf("%-55s: %d", "# SESSION - number of failed receive calls", m[RecvFails])
	if succ := m[RecvCalls] - m[RecvFails]; succ > 0 {
		log.Debugf("%-55s: %dB", "# SESSION - receive efficiency", m[RecvBytes]/succ)
	}
	log.Debugf("%-55s: %d", "# SESSION - number of receive window growths", m[RecvGrows])
	log.Debugf("%-55s: %d", "# SESSION - number of times receive window was full", m[RecvWindowFull])
	log.Debugf("%-55s: %d", "# SESSION - number of data handler calls", m[HandlerCalls])
	log.Debugf("%-55s: %d", "# SESSION - number of data handler violations", m[HandlerViolations])
	log.Debugf("%-55s: %d", "# SESSION - number of Send calls", m[SendCalls])
	log.Debugf("%-55s: %d", "# SESSION - number of send batches", m[SendBatches])
	log.Debugf("%-55s: %d", "# SESSION - number of failed send batches", m[SendBatchFails])
	if succ := m[SendBatches] - m[SendBatchFails]; succ > 0 {
		log.Debugf("%-55s: %.2f", "# SESSION - messages per send batch", float64(m[SendBlocks])/float64(succ))
	}
	log.Debugf("%-55s: %d", "# SESSION - number of bytes sent", m[SendBytes])
}

func showEndpointMetrics(m [Max]uint64) {
	log.Debugf("%-55s: %d", "# ACCEPTOR - number of accepted connections", m[AcceptCalls])
	log.Debugf("%-55s: %d", "# ACCEPTOR - number of failed accepts", m[AcceptFails])
	log.Debugf("%-55s: %d", "# CONNECTOR - number of connect attempts", m[ConnectCalls])
	log.Debugf("%-55s: %d", "# CONNECTOR - number of failed connects", m[ConnectFails])
	log.Debugf("%-55s: %d", "# CONNECTOR - number of connect timeouts", m[ConnectTimeouts])
}
