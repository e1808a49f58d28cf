// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package keeper

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/vrflottery/raffle/pkg/metrics"
)

type metrics struct {
	Checks   prometheus.Counter
	Performs prometheus.Counter
	Errors   prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "keeper"

	return metrics{
		Checks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "checks_total",
			Help:      "Number of upkeep checks.",
		}),
		Performs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "performs_total",
			Help:      "Number of performed upkeeps.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Number of failed upkeep checks and performs.",
		}),
	}
}

func (k *Keeper) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(k.metrics)
}
