// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/vrflottery/raffle/pkg/metrics"
)

type serviceMetrics struct {
	SentTransactions     prometheus.Counter
	SendErrors           prometheus.Counter
	RevertedTransactions prometheus.Counter
}

func newServiceMetrics() serviceMetrics {
	subsystem := "transaction"

	return serviceMetrics{
		SentTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "sent_total",
			Help:      "Number of sent transactions.",
		}),
		SendErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "send_errors_total",
			Help:      "Number of transactions that could not be sent.",
		}),
		RevertedTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "reverted_total",
			Help:      "Number of mined transactions that reverted.",
		}),
	}
}

func (t *transactionService) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(t.metrics)
}

type monitorMetrics struct {
	Watches               prometheus.Gauge
	ConfirmedTransactions prometheus.Counter
	CancelledTransactions prometheus.Counter
}

func newMonitorMetrics() monitorMetrics {
	subsystem := "transaction_monitor"

	return monitorMetrics{
		Watches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "watches",
			Help:      "Number of watched transactions.",
		}),
		ConfirmedTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "confirmed_total",
			Help:      "Number of watched transactions that were mined.",
		}),
		CancelledTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "cancelled_total",
			Help:      "Number of watched transactions that were replaced.",
		}),
	}
}

func (tm *transactionMonitor) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(tm.metrics)
}
