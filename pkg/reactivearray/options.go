// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reactivearray

import "log/slog"

// Option configures an Array.
type Option func(*config)

type config struct {
	name   string
	policy InsertPolicy
	logger *slog.Logger
}

func defaultConfig() config {
	return config{
		name:   "array",
		policy: InsertReplaces,
		logger: slog.Default(),
	}
}

// WithName labels the array in logs and metrics.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}

// WithInsertPolicy selects how Insert behaves. The default is
// InsertReplaces.
func WithInsertPolicy(policy InsertPolicy) Option {
	return func(c *config) {
		c.policy = policy
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}
