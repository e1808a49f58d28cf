// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/vrflottery/raffle/pkg/util/abiutil"
)

// LotteryABI is the interface of the lottery contract.
const LotteryABI = `[
	{"type":"constructor","inputs":[{"name":"vrfCoordinatorV2","type":"address"},{"name":"subscriptionId","type":"uint64"},{"name":"gasLane","type":"bytes32"},{"name":"interval","type":"uint256"},{"name":"entranceFee","type":"uint256"},{"name":"callbackGasLimit","type":"uint32"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"enterLottery","inputs":[],"outputs":[],"stateMutability":"payable"},
	{"type":"function","name":"checkUpkeep","inputs":[{"name":"","type":"bytes"}],"outputs":[{"name":"upkeepNeeded","type":"bool"},{"name":"","type":"bytes"}],"stateMutability":"view"},
	{"type":"function","name":"performUpkeep","inputs":[{"name":"","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"rawFulfillRandomWords","inputs":[{"name":"requestId","type":"uint256"},{"name":"randomWords","type":"uint256[]"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getEntranceFee","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"getPlayer","inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"getRecentWinner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"getLotteryState","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
	{"type":"function","name":"getNumWords","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"pure"},
	{"type":"function","name":"getNumberOfPlayers","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"getLatestTimeStamp","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"getRequestConfirmations","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"pure"},
	{"type":"function","name":"getInterval","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"getSubscriptionId","inputs":[],"outputs":[{"name":"","type":"uint64"}],"stateMutability":"view"},
	{"type":"event","name":"LotteryEnter","anonymous":false,"inputs":[{"name":"player","type":"address","indexed":true}]},
	{"type":"event","name":"RequestedLotteryWinner","anonymous":false,"inputs":[{"name":"requestId","type":"uint256","indexed":true}]},
	{"type":"event","name":"WinnerPicked","anonymous":false,"inputs":[{"name":"winner","type":"address","indexed":true}]},
	{"type":"error","name":"lottery__NotEnoughFee","inputs":[]},
	{"type":"error","name":"lottery__NotOpen","inputs":[]},
	{"type":"error","name":"lottery__UpkeepNotNeeded","inputs":[{"name":"currentBalance","type":"uint256"},{"name":"numPlayers","type":"uint256"},{"name":"lotteryState","type":"uint256"}]},
	{"type":"error","name":"lottery__TransferFailed","inputs":[]},
	{"type":"error","name":"lottery__UnknownRequest","inputs":[{"name":"requestId","type":"uint256"}]},
	{"type":"error","name":"OnlyCoordinatorCanFulfill","inputs":[{"name":"have","type":"address"},{"name":"want","type":"address"}]}
]`

var lotteryABI = abiutil.MustParseABI(LotteryABI)

// ABI returns the parsed lottery interface.
func ABI() abi.ABI {
	return lotteryABI
}
