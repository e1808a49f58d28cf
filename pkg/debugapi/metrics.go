// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package debugapi

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vrflottery/raffle"
	"github.com/vrflottery/raffle/pkg/metrics"
)

func newMetricsRegistry() (r *prometheus.Registry) {
	r = metrics.NewRegistry()

	r.MustRegister(
		prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Name:      "info",
			Help:      "Raffle information.",
			ConstLabels: prometheus.Labels{
				"version": raffle.Version,
			},
		}),
	)

	return r
}

func (s *Service) MustRegisterMetrics(cs ...prometheus.Collector) {
	s.metricsRegistry.MustRegister(cs...)
}
