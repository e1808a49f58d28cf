// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/logging"
)

// Fulfiller plays the oracle on a development chain: it watches the
// coordinator for randomness requests and fulfills each of them.
type Fulfiller struct {
	logger   logging.Logger
	metrics  metrics
	client   *Client
	filterer ethereum.LogFilterer
	from     common.Address
	delay    time.Duration
	topUp    *big.Int
	sub      ethereum.Subscription
	quit     chan struct{}
	wg       sync.WaitGroup
}

type FulfillerOption func(*Fulfiller)

// WithFulfillmentDelay waits before every fulfillment, emulating the
// request confirmations of a live oracle.
func WithFulfillmentDelay(d time.Duration) FulfillerOption {
	return func(f *Fulfiller) {
		f.delay = d
	}
}

// WithSubscriptionTopUp funds a subscription with amount and retries once
// when a fulfillment fails for lack of subscription balance.
func WithSubscriptionTopUp(amount *big.Int) FulfillerOption {
	return func(f *Fulfiller) {
		f.topUp = new(big.Int).Set(amount)
	}
}

// NewFulfiller subscribes to the requests of the coordinator and starts
// fulfilling them from the given account.
func NewFulfiller(client *Client, filterer ethereum.LogFilterer, from common.Address, logger logging.Logger, opts ...FulfillerOption) (*Fulfiller, error) {
	f := &Fulfiller{
		logger:   logger,
		metrics:  newMetrics(),
		client:   client,
		filterer: filterer,
		from:     from,
		quit:     make(chan struct{}),
	}
	for _, o := range opts {
		o(f)
	}

	logs := make(chan types.Log, 64)
	sub, err := filterer.SubscribeFilterLogs(context.Background(), ethereum.FilterQuery{
		Addresses: []common.Address{client.Address()},
		Topics:    [][]common.Hash{{RandomWordsRequestedTopic}},
	}, logs)
	if err != nil {
		return nil, err
	}
	f.sub = sub

	f.wg.Add(1)
	go f.run(logs)

	return f, nil
}

func (f *Fulfiller) run(logs <-chan types.Log) {
	defer f.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-f.quit
		cancel()
	}()

	for {
		select {
		case l := <-logs:
			ev, err := ParseRandomWordsRequested(l)
			if err != nil {
				f.logger.Errorf("vrf fulfiller: parse request: %v", err)
				continue
			}
			f.metrics.Requests.Inc()
			if f.delay > 0 {
				select {
				case <-time.After(f.delay):
				case <-f.quit:
					return
				}
			}
			f.fulfill(ctx, ev)
		case err := <-f.sub.Err():
			if err != nil {
				f.logger.Errorf("vrf fulfiller: subscription: %v", err)
			}
			return
		case <-f.quit:
			return
		}
	}
}

func (f *Fulfiller) fulfill(ctx context.Context, ev *RandomWordsRequestedEvent) {
	receipt, err := f.client.FulfillRandomWords(ctx, f.from, ev.RequestId, ev.Sender)
	if errors.Is(err, ErrInsufficientBalance) && f.topUp != nil {
		f.logger.Warningf("vrf fulfiller: subscription %d out of funds, topping up", ev.SubId)
		if _, err := f.client.FundSubscription(ctx, f.from, ev.SubId, f.topUp); err != nil {
			f.metrics.FulfillmentErrors.Inc()
			f.logger.Errorf("vrf fulfiller: fund subscription %d: %v", ev.SubId, err)
			return
		}
		f.metrics.Refunds.Inc()
		receipt, err = f.client.FulfillRandomWords(ctx, f.from, ev.RequestId, ev.Sender)
	}
	if err != nil {
		f.metrics.FulfillmentErrors.Inc()
		f.logger.Errorf("vrf fulfiller: fulfill request %s: %v", ev.RequestId, err)
		return
	}
	f.metrics.Fulfillments.Inc()

	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != RandomWordsFulfilledTopic {
			continue
		}
		fulfilled, err := ParseRandomWordsFulfilled(*l)
		if err != nil {
			f.logger.Errorf("vrf fulfiller: parse fulfillment: %v", err)
			return
		}
		if !fulfilled.Success {
			f.metrics.FailedCallbacks.Inc()
			f.logger.Warningf("vrf fulfiller: consumer %s callback failed for request %s", ev.Sender, ev.RequestId)
			return
		}
		f.logger.Debugf("vrf fulfiller: fulfilled request %s for %s, payment %s", ev.RequestId, ev.Sender, fulfilled.Payment)
	}
}

// Close stops the fulfiller.
func (f *Fulfiller) Close() error {
	close(f.quit)
	f.sub.Unsubscribe()
	f.wg.Wait()
	return nil
}
