// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/vrflottery/raffle/pkg/metrics"
)

type metrics struct {
	// all metrics fields must be exported
	// to be able to return them by Metrics()
	// using reflection
	Requests          prometheus.Counter
	Fulfillments      prometheus.Counter
	FailedCallbacks   prometheus.Counter
	FulfillmentErrors prometheus.Counter
	Refunds           prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "vrf"

	return metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "requests_total",
			Help:      "Number of randomness requests seen.",
		}),
		Fulfillments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "fulfillments_total",
			Help:      "Number of mined fulfillments.",
		}),
		FailedCallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "failed_callbacks_total",
			Help:      "Number of fulfillments whose consumer callback failed.",
		}),
		FulfillmentErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "fulfillment_errors_total",
			Help:      "Number of fulfillment transactions that reverted.",
		}),
		Refunds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "subscription_refunds_total",
			Help:      "Number of automatic subscription top ups.",
		}),
	}
}

func (f *Fulfiller) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(f.metrics)
}
