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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// websocketClients is the number of connected operation streams.
	websocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "opstream",
		Name:      "websocket_clients",
		Help:      "Number of connected operation stream clients",
	})

	// operationsReceived counts operations posted over HTTP.
	// Labels: array, kind, status (applied, rejected, throttled)
	operationsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opstream",
		Name:      "operations_received_total",
		Help:      "Total operations received over HTTP",
	}, []string{"array", "kind", "status"})

	// slowClientDisconnects counts clients dropped for falling behind.
	slowClientDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "opstream",
		Name:      "slow_client_disconnects_total",
		Help:      "Total operation stream clients disconnected for not keeping up",
	})
)
