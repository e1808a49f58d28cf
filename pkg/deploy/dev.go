// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"context"
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/devchain"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/vrf"
)

var _ Backend = (*DevBackend)(nil)

// DevBackend deploys onto a development chain.
type DevBackend struct {
	chain *devchain.Chain
	from  common.Address
}

func NewDevBackend(chain *devchain.Chain, from common.Address) *DevBackend {
	return &DevBackend{chain: chain, from: from}
}

func (b *DevBackend) Deployer() common.Address {
	return b.from
}

func (b *DevBackend) DeployCoordinator(_ context.Context, baseFee, gasPriceLink *big.Int) (*Deployment, error) {
	c, receipt, err := vrf.Deploy(b.chain, b.from, baseFee, gasPriceLink)
	if err != nil {
		return nil, err
	}
	return b.deployment(c.Address(), vrf.CoordinatorABIv2, receipt), nil
}

func (b *DevBackend) CreateSubscription(ctx context.Context, coordinator common.Address) (uint64, error) {
	c, err := vrf.NewClient(b.chain, coordinator)
	if err != nil {
		return 0, err
	}
	subID, _, err := c.CreateSubscription(ctx, b.from)
	return subID, err
}

func (b *DevBackend) FundSubscription(ctx context.Context, coordinator common.Address, subID uint64, amount *big.Int) error {
	c, err := vrf.NewClient(b.chain, coordinator)
	if err != nil {
		return err
	}
	_, err = c.FundSubscription(ctx, b.from, subID, amount)
	return err
}

func (b *DevBackend) AddConsumer(ctx context.Context, coordinator common.Address, subID uint64, consumer common.Address) error {
	c, err := vrf.NewClient(b.chain, coordinator)
	if err != nil {
		return err
	}
	_, err = c.AddConsumer(ctx, b.from, subID, consumer)
	return err
}

func (b *DevBackend) DeployLottery(ctx context.Context, p lottery.Params) (*Deployment, error) {
	c, receipt, err := lottery.Deploy(ctx, b.chain, b.from, p)
	if err != nil {
		return nil, err
	}
	return b.deployment(c.Address(), lottery.LotteryABI, receipt), nil
}

func (b *DevBackend) deployment(address common.Address, abiJSON string, receipt *types.Receipt) *Deployment {
	return &Deployment{
		Address:         address,
		ABI:             json.RawMessage(abiJSON),
		TransactionHash: receipt.TxHash,
		Receipt:         newReceiptRecord(b.from, receipt),
	}
}
