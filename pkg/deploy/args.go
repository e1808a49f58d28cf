// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/lottery"
)

var ErrConstructorMismatch = errors.New("constructor mismatch")

// constructorInputs is the canonical constructor of the lottery.
var constructorInputs = []struct {
	name string
	typ  string
}{
	{"vrfCoordinatorV2", "address"},
	{"subscriptionId", "uint64"},
	{"gasLane", "bytes32"},
	{"interval", "uint256"},
	{"entranceFee", "uint256"},
	{"callbackGasLimit", "uint32"},
}

// LotteryParams builds the constructor arguments for the network. The
// coordinator and subscription id override the configured ones, they are
// set on development networks where both are created by the deployment.
func LotteryParams(n *config.Network, coordinator common.Address, subID uint64) lottery.Params {
	p := lottery.Params{
		VRFCoordinatorV2: n.VRFCoordinatorV2,
		SubscriptionID:   n.SubscriptionID,
		GasLane:          n.GasLane,
		Interval:         new(big.Int).SetUint64(n.Interval),
		EntranceFee:      new(big.Int).Set(n.EntranceFee),
		CallbackGasLimit: n.CallbackGasLimit,
	}
	if coordinator != (common.Address{}) {
		p.VRFCoordinatorV2 = coordinator
	}
	if subID != 0 {
		p.SubscriptionID = subID
	}
	return p
}

// ConstructorArgs ABI encodes the constructor arguments, as appended to the
// creation bytecode and submitted for verification.
func ConstructorArgs(p lottery.Params) ([]byte, error) {
	a := lottery.ABI()
	return a.Pack("", p.VRFCoordinatorV2, p.SubscriptionID, [32]byte(p.GasLane), p.Interval, p.EntranceFee, p.CallbackGasLimit)
}

// ArgStrings renders the constructor arguments the way deployment records
// store them.
func ArgStrings(p lottery.Params) []string {
	return []string{
		p.VRFCoordinatorV2.Hex(),
		fmt.Sprintf("%d", p.SubscriptionID),
		p.GasLane.Hex(),
		p.Interval.String(),
		p.EntranceFee.String(),
		fmt.Sprintf("%d", p.CallbackGasLimit),
	}
}

// ValidateConstructor rejects an artifact ABI whose constructor differs from
// the canonical one in arity, order or types. Input names are compared too
// when the artifact carries them, interval and entranceFee share a type.
func ValidateConstructor(a abi.ABI) error {
	inputs := a.Constructor.Inputs
	if len(inputs) != len(constructorInputs) {
		return fmt.Errorf("%w: got %d arguments, want %d", ErrConstructorMismatch, len(inputs), len(constructorInputs))
	}
	for i, in := range inputs {
		want := constructorInputs[i]
		if got := in.Type.String(); got != want.typ {
			return fmt.Errorf("%w: argument %d (%s) is %s, want %s", ErrConstructorMismatch, i, in.Name, got, want.typ)
		}
		if in.Name != "" && in.Name != want.name {
			return fmt.Errorf("%w: argument %d is named %s, want %s", ErrConstructorMismatch, i, in.Name, want.name)
		}
	}
	return nil
}
