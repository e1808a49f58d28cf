// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/util/abiutil"
)

var (
	SubscriptionCreatedTopic  = coordinatorABI.Events["SubscriptionCreated"].ID
	RandomWordsRequestedTopic = coordinatorABI.Events["RandomWordsRequested"].ID
	RandomWordsFulfilledTopic = coordinatorABI.Events["RandomWordsFulfilled"].ID
)

type SubscriptionCreatedEvent struct {
	SubId uint64
	Owner common.Address
}

type SubscriptionFundedEvent struct {
	SubId      uint64
	OldBalance *big.Int
	NewBalance *big.Int
}

type RandomWordsRequestedEvent struct {
	KeyHash                     [32]byte
	RequestId                   *big.Int
	PreSeed                     *big.Int
	SubId                       uint64
	MinimumRequestConfirmations uint16
	CallbackGasLimit            uint32
	NumWords                    uint32
	Sender                      common.Address
}

type RandomWordsFulfilledEvent struct {
	RequestId  *big.Int
	OutputSeed *big.Int
	Payment    *big.Int
	Success    bool
}

func ParseSubscriptionCreated(l types.Log) (*SubscriptionCreatedEvent, error) {
	var ev SubscriptionCreatedEvent
	if err := abiutil.UnpackLog(coordinatorABI, &ev, "SubscriptionCreated", l); err != nil {
		return nil, err
	}
	return &ev, nil
}

func ParseSubscriptionFunded(l types.Log) (*SubscriptionFundedEvent, error) {
	var ev SubscriptionFundedEvent
	if err := abiutil.UnpackLog(coordinatorABI, &ev, "SubscriptionFunded", l); err != nil {
		return nil, err
	}
	return &ev, nil
}

func ParseRandomWordsRequested(l types.Log) (*RandomWordsRequestedEvent, error) {
	var ev RandomWordsRequestedEvent
	if err := abiutil.UnpackLog(coordinatorABI, &ev, "RandomWordsRequested", l); err != nil {
		return nil, err
	}
	return &ev, nil
}

func ParseRandomWordsFulfilled(l types.Log) (*RandomWordsFulfilledEvent, error) {
	var ev RandomWordsFulfilledEvent
	if err := abiutil.UnpackLog(coordinatorABI, &ev, "RandomWordsFulfilled", l); err != nil {
		return nil, err
	}
	return &ev, nil
}
