// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vrflottery/raffle/pkg/devchain"
)

// Consumer is a contract that receives random words from the coordinator.
type Consumer interface {
	RawFulfillRandomWords(env *devchain.Env, requestID *big.Int, words []*big.Int) error
}

// ConsumerBase holds the coordinator a consumer trusts. Consumers embed it
// and guard their fulfillment with OnlyCoordinator.
type ConsumerBase struct {
	Coordinator common.Address
}

// OnlyCoordinator fails unless the call comes from the coordinator.
func (b ConsumerBase) OnlyCoordinator(env *devchain.Env) error {
	if env.Caller != b.Coordinator {
		return onlyCoordinatorCanFulfill(env.Caller, b.Coordinator)
	}
	return nil
}

// RequestRandomWords calls the coordinator from the executing consumer
// contract and returns the request id.
func (b ConsumerBase) RequestRandomWords(env *devchain.Env, r Request) (requestID *big.Int, err error) {
	err = env.Call(b.Coordinator, nil, func(cenv *devchain.Env) error {
		contract, ok := cenv.Contract(b.Coordinator)
		if !ok {
			return fmt.Errorf("%w: %s", devchain.ErrUnknownContract, b.Coordinator)
		}
		coordinator, ok := contract.(*Coordinator)
		if !ok {
			return fmt.Errorf("contract %s is not a vrf coordinator", b.Coordinator)
		}
		requestID, err = coordinator.RequestRandomWords(cenv, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return requestID, nil
}
