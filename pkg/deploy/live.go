// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/sctx"
	"github.com/vrflottery/raffle/pkg/transaction"
)

const lotteryDeployGasLimit = 3_000_000

var (
	_ Backend = (*LiveBackend)(nil)

	ErrNoContractAddress = errors.New("receipt has no contract address")
)

// LiveBackend deploys the lottery artifact onto a public network through
// the transaction service. The coordinator and subscription of a public
// network are managed outside of the deployment.
type LiveBackend struct {
	txService     transaction.Service
	artifact      *Artifact
	confirmations uint64
}

// NewLiveBackend checks the artifact constructor against the canonical one.
func NewLiveBackend(txService transaction.Service, artifact *Artifact, confirmations uint64) (*LiveBackend, error) {
	if err := ValidateConstructor(artifact.ABI); err != nil {
		return nil, fmt.Errorf("artifact %s: %w", artifact.ContractName, err)
	}
	return &LiveBackend{
		txService:     txService,
		artifact:      artifact,
		confirmations: confirmations,
	}, nil
}

func (b *LiveBackend) Deployer() common.Address {
	return b.txService.Sender()
}

func (b *LiveBackend) DeployCoordinator(context.Context, *big.Int, *big.Int) (*Deployment, error) {
	return nil, fmt.Errorf("deploy coordinator mock: %w", ErrNotSupported)
}

func (b *LiveBackend) CreateSubscription(context.Context, common.Address) (uint64, error) {
	return 0, fmt.Errorf("create subscription: %w", ErrNotSupported)
}

func (b *LiveBackend) FundSubscription(context.Context, common.Address, uint64, *big.Int) error {
	return fmt.Errorf("fund subscription: %w", ErrNotSupported)
}

func (b *LiveBackend) AddConsumer(context.Context, common.Address, uint64, common.Address) error {
	return fmt.Errorf("add consumer: %w", ErrNotSupported)
}

// DeployLottery sends the creation transaction and waits for the
// configured number of confirmations.
func (b *LiveBackend) DeployLottery(ctx context.Context, p lottery.Params) (*Deployment, error) {
	args, err := ConstructorArgs(p)
	if err != nil {
		return nil, err
	}
	data := make([]byte, 0, len(b.artifact.Bytecode)+len(args))
	data = append(data, b.artifact.Bytecode...)
	data = append(data, args...)

	txHash, err := b.txService.Send(ctx, &transaction.TxRequest{
		To:          nil,
		Data:        data,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimitWithDefault(ctx, lotteryDeployGasLimit),
		Value:       big.NewInt(0),
		Description: "lottery deployment",
	})
	if err != nil {
		return nil, err
	}
	receipt, err := b.txService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}
	if receipt.Status == types.ReceiptStatusFailed {
		return nil, transaction.ErrTransactionReverted
	}
	if receipt.ContractAddress == (common.Address{}) {
		return nil, ErrNoContractAddress
	}
	if err := b.txService.WaitForConfirmations(ctx, receipt, b.confirmations); err != nil {
		return nil, fmt.Errorf("wait for confirmations: %w", err)
	}

	return &Deployment{
		Address:         receipt.ContractAddress,
		ABI:             b.artifact.RawABI,
		TransactionHash: txHash,
		Receipt:         newReceiptRecord(b.txService.Sender(), receipt),
	}, nil
}
