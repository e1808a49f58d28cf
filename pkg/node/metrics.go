// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vrflottery/raffle/pkg/metrics"
)

type nodeMetrics struct {
	// DeployDuration measures time in seconds for the development
	// deployment to complete
	DeployDuration prometheus.Histogram
}

func newMetrics() nodeMetrics {
	subsystem := "init"

	return nodeMetrics{
		DeployDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metrics.Namespace,
				Subsystem: subsystem,
				Name:      "deploy_duration_seconds",
				Help:      "Duration in seconds for the development deployment to complete",
			},
		),
	}
}

func Metrics(nodeMetrics nodeMetrics) []prometheus.Collector {
	return metrics.PrometheusCollectorsFromFields(nodeMetrics)
}
