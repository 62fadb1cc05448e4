// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/reactivearray/pkg/logging"
)

func TestLoadFile_CreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".reactivearray", "config.yaml")
	var notice bytes.Buffer

	cfg, err := LoadFile(path, &notice)
	require.NoError(t, err)

	assert.Contains(t, notice.String(), "First run detected")
	assert.FileExists(t, path)
	assert.Equal(t, DefaultConfig(), cfg)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk Config
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, "127.0.0.1:12300", onDisk.Server.Listen)
	assert.Equal(t, 10*time.Second, onDisk.Stream.WriteTimeout)
}

func TestLoadFile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9000"
logging:
  level: debug
stream:
  send_buffer: 8
  ping_interval: 5s
arrays:
  - name: tasks
    insert_policy: shift
    seed: [a, b]
  - name: scores
    seed: [1, 2, 3]
`), 0644))

	cfg, err := LoadFile(path, nil)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Listen)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath, "unset keys keep defaults")
	assert.Equal(t, 8, cfg.Stream.SendBuffer)
	assert.Equal(t, 5*time.Second, cfg.Stream.PingInterval)
	require.Len(t, cfg.Arrays, 2)
	assert.Equal(t, []any{"a", "b"}, cfg.Arrays[0].Seed)
	assert.Equal(t, []any{1, 2, 3}, cfg.Arrays[1].Seed)
	assert.Equal(t, logging.LevelDebug, cfg.LoggerConfig("serve").Level)
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "server: [", "failed to parse"},
		{"bad level", "logging:\n  level: loud\n", "Config.Logging.Level"},
		{"duplicate array", "arrays:\n  - name: a\n  - name: a\n", "duplicate name"},
		{"bad policy", "arrays:\n  - name: a\n    insert_policy: sideways\n", "Config.Arrays[0].InsertPolicy"},
		{"unnamed array", "arrays:\n  - seed: [1]\n", "Config.Arrays[0].Name"},
		{"empty listen", "server:\n  listen: \"\"\n", "Config.Server.Listen"},
		{"relative metrics path", "server:\n  metrics_path: metrics\n", "Config.Server.MetricsPath"},
		{"negative journal", "journal_size: -1\n", "Config.JournalSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			_, err := LoadFile(path, nil)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_OnlyOnce(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.yaml")
	require.NoError(t, os.WriteFile(first, []byte("server:\n  listen: \":1\"\n"), 0644))

	require.NoError(t, Load(first, nil))
	require.NoError(t, Load(filepath.Join(dir, "second.yaml"), nil))

	assert.Equal(t, ":1", Global.Server.Listen)
	assert.NoFileExists(t, filepath.Join(dir, "second.yaml"))
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging = LoggingConfig{Level: "warn", JSON: true, Dir: "/tmp/logs"}

	got := cfg.LoggerConfig("opstream")

	assert.Equal(t, logging.Config{
		Level:   logging.LevelWarn,
		JSON:    true,
		LogDir:  "/tmp/logs",
		Service: "opstream",
	}, got)
}
