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

package tasio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"trpc.group/trpc-go/tasio"
)

func TestEndpoint(t *testing.T) {
	ep := tasio.Endpoint{Host: "127.0.0.1", Port: 8080}
	assert.Equal(t, "127.0.0.1:8080", ep.String())
	assert.Equal(t, "[::1]:80", tasio.Endpoint{Host: "::1", Port: 80}.String())

	got, err := tasio.ParseEndpoint("localhost:9000")
	require.Nil(t, err)
	assert.Equal(t, tasio.Endpoint{Host: "localhost", Port: 9000}, got)

	got, err = tasio.ParseEndpoint("[::1]:80")
	require.Nil(t, err)
	assert.Equal(t, "::1", got.Host)

	for _, bad := range []string{"localhost", "localhost:port", "localhost:70000", ""} {
		_, err := tasio.ParseEndpoint(bad)
		assert.NotNil(t, err, bad)
	}
}

func TestSubmit(t *testing.T) {
	done := make(chan struct{})
	require.Nil(t, tasio.Submit(func() { close(done) }))
	<-done
}
