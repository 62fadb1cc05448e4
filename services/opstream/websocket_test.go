// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package opstream

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reactivearray/pkg/reactivearray"
)

func dialStream(t *testing.T, srv *httptest.Server, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/arrays/" + name + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readOperation(t *testing.T, conn *websocket.Conn) reactivearray.Operation[any] {
	t.Helper()
	msgType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.TextMessage, msgType)

	var op reactivearray.Operation[any]
	require.NoError(t, json.Unmarshal(data, &op))
	return op
}

func TestStream_ReplayThenLive(t *testing.T) {
	_, router := newTestServer(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	conn := dialStream(t, srv, "tasks")

	assert.True(t, reactivearray.Equal(reactivearray.Append[any]("a"), readOperation(t, conn)))
	assert.True(t, reactivearray.Equal(reactivearray.Append[any]("b"), readOperation(t, conn)))

	resp, err := http.Post(srv.URL+"/v1/arrays/tasks/ops", "application/json",
		bytes.NewBufferString(`{"kind":"append","value":"c"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, reactivearray.Equal(reactivearray.Append[any]("c"), readOperation(t, conn)))

	resp, err = http.Post(srv.URL+"/v1/arrays/tasks/ops", "application/json",
		bytes.NewBufferString(`{"kind":"remove","index":0}`))
	require.NoError(t, err)
	resp.Body.Close()

	assert.True(t, reactivearray.Equal(reactivearray.RemoveValue[any](0, "a"), readOperation(t, conn)))
}

func TestStream_FoldOfFramesMatchesArray(t *testing.T) {
	reg, router := newTestServer(t)
	srv := httptest.NewServer(router)
	defer srv.Close()
	entry, err := reg.Get("tasks")
	require.NoError(t, err)

	conn := dialStream(t, srv, "tasks")
	var ops []reactivearray.Operation[any]
	ops = append(ops, readOperation(t, conn), readOperation(t, conn))

	_, err = entry.Apply(reactivearray.Insert[any]("x", 0))
	require.NoError(t, err)
	_, err = entry.Apply(reactivearray.Append[any]("y"))
	require.NoError(t, err)
	_, err = entry.Apply(reactivearray.Remove[any](1))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		ops = append(ops, readOperation(t, conn))
	}

	assert.Equal(t, entry.Array().ToSlice(), reactivearray.Fold(ops, entry.Array().InsertPolicy()))
}

func TestStream_UnknownArray(t *testing.T) {
	_, router := newTestServer(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/arrays/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamClient_DropsWhenQueueIsFull(t *testing.T) {
	client := newStreamClient("tasks", 1, slog.Default())

	client.observe(reactivearray.Append[any]("a"))
	assert.False(t, client.dropped())

	client.observe(reactivearray.Append[any]("b"))
	assert.True(t, client.dropped())

	assert.NotPanics(t, func() { client.observe(reactivearray.Append[any]("c")) })
	assert.Len(t, client.send, 1)
}

func TestStream_SlowClientDoesNotBlockMutator(t *testing.T) {
	reg := NewRegistry(10, nil)
	entry, err := reg.Create("tasks", nil, reactivearray.InsertReplaces)
	require.NoError(t, err)
	client := newStreamClient("tasks", 2, slog.Default())
	sub := entry.Array().Producer().Start(client.observe)
	defer sub.Unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, _ = entry.Apply(reactivearray.Append[any](i))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("mutator blocked on a slow client")
	}
	assert.True(t, client.dropped())
	assert.Equal(t, 100, entry.Array().Len())
}
