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

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("aleutian.reactivearray")

var (
	operationsTotal       metric.Int64Counter
	boundsViolationsTotal metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		operationsTotal, err = meter.Int64Counter(
			"reactivearray_operations_total",
			metric.WithDescription("Total number of operations applied to arrays"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		boundsViolationsTotal, err = meter.Int64Counter(
			"reactivearray_bounds_violations_total",
			metric.WithDescription("Total number of rejected out of range operations"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordOperation(ctx context.Context, array string, kind Kind) {
	if err := initMetrics(); err != nil {
		return
	}
	operationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("array", array),
		attribute.String("kind", kind.String()),
	))
}

func recordBoundsViolation(ctx context.Context, array string, kind Kind) {
	if err := initMetrics(); err != nil {
		return
	}
	boundsViolationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("array", array),
		attribute.String("kind", kind.String()),
	))
}
