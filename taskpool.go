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

	"github.com/panjf2000/ants/v2"
	"trpc.group/trpc-go/tasio/log"
	"trpc.group/trpc-go/tasio/metrics"
)

var (
	maxRoutines = 0 // meaning INT32_MAX.
	ioPool, _   = ants.NewPool(maxRoutines, ants.WithPanicHandler(func(v any) {
		log.Errorf("tasio: panic in io task: %v\n%s", v, debug.Stack())
	}))
	usrPool, _ = ants.NewPool(maxRoutines)
)

// doIO runs a blocking socket call off the reactor. The task must post its
// completion back to the reactor or strand that is waiting for it.
func doIO(task func()) {
	metrics.Add(metrics.TaskAssigned, 1)
	if err := ioPool.Submit(task); err != nil {
		log.Warnf("tasio: io pool submit fail: %v, falling back to a new goroutine", err)
		go task()
	}
}

// Submit submits a task to usrPool.
//
// Users can use this API to submit a task to
// the default user business goroutine pool.
func Submit(task func()) error {
	return usrPool.Submit(task)
}
