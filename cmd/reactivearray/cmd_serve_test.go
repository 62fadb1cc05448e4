// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reactivearray/cmd/reactivearray/config"
)

func testConfig() config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Listen = "127.0.0.1:0"
	cfg.Telemetry.MetricExporter = "none"
	cfg.Arrays = []config.ArrayConfig{
		{Name: "tasks", InsertPolicy: "shift", Seed: []any{"a"}},
		{Name: "scores", Seed: []any{1, 2}},
	}
	return cfg
}

func TestBuildServer_Routes(t *testing.T) {
	srv, err := buildServer(testConfig(), slog.Default())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/arrays", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"arrays":["scores","tasks"]}`, w.Body.String())

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/arrays/tasks", nil))
	assert.JSONEq(t, `{"name":"tasks","elements":["a"],"count":1,"insert_policy":"shift"}`, w.Body.String())

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "opstream_websocket_clients")
}

func TestBuildServer_DuplicateArray(t *testing.T) {
	cfg := testConfig()
	cfg.Arrays = append(cfg.Arrays, config.ArrayConfig{Name: "tasks"})

	_, err := buildServer(cfg, slog.Default())
	assert.Error(t, err)
}

func TestRunServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runServe(ctx, testConfig(), slog.Default())
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("runServe did not stop")
	}
}

func TestRunServe_ListenError(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Listen = "256.0.0.1:bad"

	err := runServe(context.Background(), cfg, slog.Default())
	assert.Error(t, err)
}
