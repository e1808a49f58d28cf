// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/vrf"
)

var (
	// ErrFulfillmentFailed is returned when the coordinator reports that the
	// lottery callback failed.
	ErrFulfillmentFailed = errors.New("randomness fulfillment failed")
	// ErrWatchClosed is returned when the future is closed before it resolved.
	ErrWatchClosed = errors.New("winner watch closed")
)

// WinnerFuture resolves to the winner picked by the fulfillment of a
// randomness request of the lottery.
type WinnerFuture struct {
	lottery     common.Address
	coordinator common.Address
	requestID   *big.Int

	requests map[string]struct{}
	winners  map[common.Hash]common.Address
	success  map[common.Hash]struct{}

	sub       ethereum.Subscription
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	once   sync.Once
	done   chan struct{}
	winner common.Address
	err    error
}

// WatchWinner watches the lottery and its coordinator for the winner of the
// request with requestID, or of any request the lottery makes if requestID
// is nil. Logs mined since fromBlock are considered too, when it is set.
func WatchWinner(ctx context.Context, filterer ethereum.LogFilterer, lottery, coordinator common.Address, requestID, fromBlock *big.Int) (*WinnerFuture, error) {
	f := &WinnerFuture{
		lottery:     lottery,
		coordinator: coordinator,
		requests:    make(map[string]struct{}),
		winners:     make(map[common.Hash]common.Address),
		success:     make(map[common.Hash]struct{}),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	if requestID != nil {
		f.requestID = new(big.Int).Set(requestID)
		f.requests[requestID.String()] = struct{}{}
	}

	q := ethereum.FilterQuery{
		Addresses: []common.Address{lottery, coordinator},
		Topics:    [][]common.Hash{{WinnerPickedTopic, vrf.RandomWordsRequestedTopic, vrf.RandomWordsFulfilledTopic}},
	}

	logs := make(chan types.Log, 64)
	sub, err := filterer.SubscribeFilterLogs(ctx, q, logs)
	if err != nil {
		return nil, fmt.Errorf("subscribe lottery logs: %w", err)
	}
	f.sub = sub

	if fromBlock != nil {
		q.FromBlock = fromBlock
		past, err := filterer.FilterLogs(ctx, q)
		if err != nil {
			sub.Unsubscribe()
			return nil, fmt.Errorf("filter lottery logs: %w", err)
		}
		for _, l := range past {
			f.handle(l)
		}
	}

	f.wg.Add(1)
	go f.run(logs)

	return f, nil
}

func (f *WinnerFuture) run(logs <-chan types.Log) {
	defer f.wg.Done()
	// a resolved future stops draining logs, the chain must not wait on it
	defer f.sub.Unsubscribe()
	for {
		select {
		case l := <-logs:
			f.handle(l)
		case err := <-f.sub.Err():
			if err == nil {
				err = ErrWatchClosed
			}
			f.resolve(common.Address{}, fmt.Errorf("watch winner: %w", err))
			return
		case <-f.done:
			return
		case <-f.quit:
			return
		}
	}
}

func (f *WinnerFuture) handle(l types.Log) {
	if len(l.Topics) == 0 || l.Removed {
		return
	}
	switch {
	case l.Address == f.coordinator && l.Topics[0] == vrf.RandomWordsRequestedTopic:
		if f.requestID != nil {
			return
		}
		ev, err := vrf.ParseRandomWordsRequested(l)
		if err != nil || ev.Sender != f.lottery {
			return
		}
		f.requests[ev.RequestId.String()] = struct{}{}

	case l.Address == f.lottery && l.Topics[0] == WinnerPickedTopic:
		ev, err := ParseWinnerPicked(l)
		if err != nil {
			return
		}
		f.winners[l.TxHash] = ev.Winner
		if _, ok := f.success[l.TxHash]; ok {
			f.resolve(ev.Winner, nil)
		}

	case l.Address == f.coordinator && l.Topics[0] == vrf.RandomWordsFulfilledTopic:
		ev, err := vrf.ParseRandomWordsFulfilled(l)
		if err != nil {
			return
		}
		if _, ok := f.requests[ev.RequestId.String()]; !ok {
			return
		}
		if !ev.Success {
			f.resolve(common.Address{}, fmt.Errorf("%w: request %s", ErrFulfillmentFailed, ev.RequestId))
			return
		}
		if winner, ok := f.winners[l.TxHash]; ok {
			f.resolve(winner, nil)
			return
		}
		f.success[l.TxHash] = struct{}{}
	}
}

func (f *WinnerFuture) resolve(winner common.Address, err error) {
	f.once.Do(func() {
		f.winner = winner
		f.err = err
		close(f.done)
	})
}

// Done is closed when the future is resolved.
func (f *WinnerFuture) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the winner is picked or the context is done.
func (f *WinnerFuture) Await(ctx context.Context) (common.Address, error) {
	select {
	case <-f.done:
		return f.winner, f.err
	case <-ctx.Done():
		return common.Address{}, fmt.Errorf("await winner: %w", ctx.Err())
	}
}

// Close stops watching. A future that has not resolved yet resolves with
// ErrWatchClosed.
func (f *WinnerFuture) Close() error {
	f.closeOnce.Do(func() {
		close(f.quit)
		f.sub.Unsubscribe()
		f.wg.Wait()
		f.resolve(common.Address{}, ErrWatchClosed)
	})
	return nil
}
