// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/util/abiutil"
)

var (
	LotteryEnterTopic           = lotteryABI.Events["LotteryEnter"].ID
	RequestedLotteryWinnerTopic = lotteryABI.Events["RequestedLotteryWinner"].ID
	WinnerPickedTopic           = lotteryABI.Events["WinnerPicked"].ID
)

type LotteryEnterEvent struct {
	Player common.Address
}

type RequestedLotteryWinnerEvent struct {
	RequestId *big.Int
}

type WinnerPickedEvent struct {
	Winner common.Address
}

func ParseLotteryEnter(l types.Log) (*LotteryEnterEvent, error) {
	var ev LotteryEnterEvent
	if err := abiutil.UnpackLog(lotteryABI, &ev, "LotteryEnter", l); err != nil {
		return nil, err
	}
	return &ev, nil
}

func ParseRequestedLotteryWinner(l types.Log) (*RequestedLotteryWinnerEvent, error) {
	var ev RequestedLotteryWinnerEvent
	if err := abiutil.UnpackLog(lotteryABI, &ev, "RequestedLotteryWinner", l); err != nil {
		return nil, err
	}
	return &ev, nil
}

func ParseWinnerPicked(l types.Log) (*WinnerPickedEvent, error) {
	var ev WinnerPickedEvent
	if err := abiutil.UnpackLog(lotteryABI, &ev, "WinnerPicked", l); err != nil {
		return nil, err
	}
	return &ev, nil
}

// findLog returns the first log of the receipt with the topic.
func findLog(receipt *types.Receipt, topic common.Hash) (*types.Log, bool) {
	for _, l := range receipt.Logs {
		if len(l.Topics) > 0 && l.Topics[0] == topic {
			return l, true
		}
	}
	return nil, false
}
