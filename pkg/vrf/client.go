// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/devchain"
)

var ErrNoSubscriptionEvent = errors.New("subscription created event not found")

// Client drives a coordinator deployed on a development chain.
type Client struct {
	chain       *devchain.Chain
	address     common.Address
	coordinator *Coordinator
}

// Deploy deploys a coordinator mock.
func Deploy(chain *devchain.Chain, from common.Address, baseFee, gasPriceLink *big.Int) (*Client, *types.Receipt, error) {
	address, receipt, err := chain.Deploy(from, nil, func(_ *devchain.Env) (devchain.Contract, error) {
		return NewCoordinator(baseFee, gasPriceLink), nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("deploy vrf coordinator: %w", err)
	}
	c, err := NewClient(chain, address)
	if err != nil {
		return nil, nil, err
	}
	return c, receipt, nil
}

// NewClient binds to the coordinator deployed at address.
func NewClient(chain *devchain.Chain, address common.Address) (*Client, error) {
	contract, ok := chain.ContractAt(address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", devchain.ErrUnknownContract, address)
	}
	coordinator, ok := contract.(*Coordinator)
	if !ok {
		return nil, fmt.Errorf("contract %s is not a vrf coordinator", address)
	}
	return &Client{
		chain:       chain,
		address:     address,
		coordinator: coordinator,
	}, nil
}

func (c *Client) Address() common.Address {
	return c.address
}

// CreateSubscription creates a subscription owned by from. The id is read
// from the SubscriptionCreated event of the receipt.
func (c *Client) CreateSubscription(ctx context.Context, from common.Address) (uint64, *types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	receipt, err := c.chain.Transact(from, c.address, nil, func(env *devchain.Env) error {
		_, err := c.coordinator.CreateSubscription(env)
		return err
	})
	if err != nil {
		return 0, nil, err
	}
	for _, l := range receipt.Logs {
		if len(l.Topics) == 0 || l.Topics[0] != SubscriptionCreatedTopic {
			continue
		}
		ev, err := ParseSubscriptionCreated(*l)
		if err != nil {
			return 0, nil, err
		}
		return ev.SubId, receipt, nil
	}
	return 0, nil, ErrNoSubscriptionEvent
}

func (c *Client) FundSubscription(ctx context.Context, from common.Address, subID uint64, amount *big.Int) (*types.Receipt, error) {
	return c.transact(ctx, from, func(env *devchain.Env) error {
		return c.coordinator.FundSubscription(env, subID, amount)
	})
}

func (c *Client) AddConsumer(ctx context.Context, from common.Address, subID uint64, consumer common.Address) (*types.Receipt, error) {
	return c.transact(ctx, from, func(env *devchain.Env) error {
		return c.coordinator.AddConsumer(env, subID, consumer)
	})
}

func (c *Client) RemoveConsumer(ctx context.Context, from common.Address, subID uint64, consumer common.Address) (*types.Receipt, error) {
	return c.transact(ctx, from, func(env *devchain.Env) error {
		return c.coordinator.RemoveConsumer(env, subID, consumer)
	})
}

func (c *Client) CancelSubscription(ctx context.Context, from common.Address, subID uint64, to common.Address) (*types.Receipt, error) {
	return c.transact(ctx, from, func(env *devchain.Env) error {
		return c.coordinator.CancelSubscription(env, subID, to)
	})
}

// FulfillRandomWords delivers the mock words of the request to the consumer.
func (c *Client) FulfillRandomWords(ctx context.Context, from common.Address, requestID *big.Int, consumer common.Address) (*types.Receipt, error) {
	return c.transact(ctx, from, func(env *devchain.Env) error {
		return c.coordinator.FulfillRandomWords(env, requestID, consumer)
	})
}

func (c *Client) FulfillRandomWordsWithOverride(ctx context.Context, from common.Address, requestID *big.Int, consumer common.Address, words []*big.Int) (*types.Receipt, error) {
	return c.transact(ctx, from, func(env *devchain.Env) error {
		return c.coordinator.FulfillRandomWordsWithOverride(env, requestID, consumer, words)
	})
}

func (c *Client) GetSubscription(ctx context.Context, subID uint64) (sub Subscription, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		sub, err = c.coordinator.GetSubscription(subID)
		return err
	})
	return sub, err
}

func (c *Client) ConsumerIsAdded(ctx context.Context, subID uint64, consumer common.Address) (added bool, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		added = c.coordinator.ConsumerIsAdded(subID, consumer)
		return nil
	})
	return added, err
}

func (c *Client) PendingRequest(ctx context.Context, requestID *big.Int) (pending bool, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		pending = c.coordinator.PendingRequest(requestID)
		return nil
	})
	return pending, err
}

func (c *Client) transact(ctx context.Context, from common.Address, fn devchain.TxFunc) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.chain.Transact(from, c.address, nil, fn)
}

func (c *Client) view(ctx context.Context, fn devchain.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.chain.Call(common.Address{}, c.address, nil, fn)
}
