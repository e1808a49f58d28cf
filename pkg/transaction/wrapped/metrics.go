// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wrapped

import (
	"github.com/prometheus/client_golang/prometheus"

	m "github.com/vrflottery/raffle/pkg/metrics"
)

type metrics struct {
	TotalRPCCalls  prometheus.Counter
	TotalRPCErrors prometheus.Counter

	TransactionReceiptCalls  prometheus.Counter
	TransactionCalls         prometheus.Counter
	BlockNumberCalls         prometheus.Counter
	BlockHeaderCalls         prometheus.Counter
	BalanceCalls             prometheus.Counter
	NonceAtCalls             prometheus.Counter
	PendingNonceCalls        prometheus.Counter
	CallContractCalls        prometheus.Counter
	SuggestGasPriceCalls     prometheus.Counter
	CodeAtCalls              prometheus.Counter
	EstimateGasCalls         prometheus.Counter
	SendTransactionCalls     prometheus.Counter
	FilterLogsCalls          prometheus.Counter
	SubscribeFilterLogsCalls prometheus.Counter
	ChainIDCalls             prometheus.Counter
}

func newMetrics() metrics {
	subsystem := "eth_backend"

	return metrics{
		TotalRPCCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "total_rpc_calls",
			Help:      "Count of rpc calls",
		}),
		TotalRPCErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "total_rpc_errors",
			Help:      "Count of rpc errors",
		}),
		TransactionCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_transaction",
			Help:      "Count of eth_getTransaction rpc calls",
		}),
		TransactionReceiptCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_transaction_receipt",
			Help:      "Count of eth_getTransactionReceipt rpc calls",
		}),
		BlockNumberCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_block_number",
			Help:      "Count of eth_blockNumber rpc calls",
		}),
		BlockHeaderCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_block_header",
			Help:      "Count of eth_getBlockByNumber (header only) calls",
		}),
		BalanceCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_balance",
			Help:      "Count of eth_getBalance rpc calls",
		}),
		NonceAtCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_nonce_at",
			Help:      "Count of eth_getTransactionCount (pending false) rpc calls",
		}),
		PendingNonceCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_pending_nonce_at",
			Help:      "Count of eth_getTransactionCount (pending true) rpc calls",
		}),
		CallContractCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_eth_call",
			Help:      "Count of eth_call rpc calls",
		}),
		SuggestGasPriceCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_suggest_gas_price",
			Help:      "Count of eth_gasPrice rpc calls",
		}),
		CodeAtCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_code_at",
			Help:      "Count of eth_getCode rpc calls",
		}),
		EstimateGasCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_estimate_gas",
			Help:      "Count of eth_estimateGas rpc calls",
		}),
		SendTransactionCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_send_transaction",
			Help:      "Count of eth_sendRawTransaction rpc calls",
		}),
		FilterLogsCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_filter_logs",
			Help:      "Count of eth_getLogs rpc calls",
		}),
		SubscribeFilterLogsCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_subscribe_logs",
			Help:      "Count of eth_subscribe logs rpc calls",
		}),
		ChainIDCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: m.Namespace,
			Subsystem: subsystem,
			Name:      "calls_chain_id",
			Help:      "Count of eth_chainId rpc calls",
		}),
	}
}

func (b *wrappedBackend) Metrics() []prometheus.Collector {
	return m.PrometheusCollectorsFromFields(b.metrics)
}
