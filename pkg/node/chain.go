// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vrflottery/raffle/pkg/crypto"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/storage"
	"github.com/vrflottery/raffle/pkg/transaction"
	"github.com/vrflottery/raffle/pkg/transaction/wrapped"
)

const (
	maxDelay          = 1 * time.Minute
	cancellationDepth = 6
)

// Chain is a connection to a live network with a transaction service sending
// from the signer account.
type Chain struct {
	Backend            wrapped.Backend
	ChainID            int64
	Sender             common.Address
	Monitor            transaction.Monitor
	TransactionService transaction.Service

	client *ethclient.Client
}

// InitChain will initialize the Ethereum backend at the given endpoint and
// set up the Transaction Service to interact with it using the provided signer.
func InitChain(
	ctx context.Context,
	logger logging.Logger,
	stateStore storage.StateStorer,
	endpoint string,
	signer crypto.Signer,
	blocktime time.Duration,
) (*Chain, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial eth client: %w", err)
	}
	backend := wrapped.NewBackend(client)

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		client.Close()
		logger.Infof("could not connect to backend at %v. A working blockchain node is required. Check your node or specify another one using --rpc-url.", endpoint)
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	if err := CheckChainID(stateStore, chainID.Int64()); err != nil {
		client.Close()
		return nil, err
	}

	sender, err := signer.EthereumAddress()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("eth address: %w", err)
	}

	monitor := transaction.NewMonitor(logger, backend, sender, blocktime, cancellationDepth)

	transactionService, err := transaction.NewService(logger, backend, signer, stateStore, chainID, monitor)
	if err != nil {
		monitor.Close()
		client.Close()
		return nil, fmt.Errorf("new transaction service: %w", err)
	}

	c := &Chain{
		Backend:            backend,
		ChainID:            chainID.Int64(),
		Sender:             sender,
		Monitor:            monitor,
		TransactionService: transactionService,
		client:             client,
	}

	// Sync the with the given Ethereum backend:
	isSynced, err := transaction.IsSynced(ctx, backend, maxDelay)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("is synced: %w", err)
	}
	if !isSynced {
		logger.Infof("waiting to sync with the Ethereum backend")
		err := transaction.WaitSynced(ctx, backend, maxDelay, blocktime)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("waiting backend sync: %w", err)
		}
	}
	return c, nil
}

// Metrics returns the rpc call counters of the backend.
func (c *Chain) Metrics() []prometheus.Collector {
	return c.Backend.Metrics()
}

func (c *Chain) Close() error {
	var mErr error
	if err := c.TransactionService.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("transaction service: %w", err))
	}
	if err := c.Monitor.Close(); err != nil {
		mErr = multierror.Append(mErr, fmt.Errorf("transaction monitor: %w", err))
	}
	c.client.Close()
	return mErr
}
