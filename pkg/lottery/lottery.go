// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lottery implements the lottery contract: players enter by paying
// the entrance fee, an upkeep closes the round once the interval has
// elapsed and requests a random word from the coordinator, and the
// fulfillment pays the whole balance to the player the word picks.
package lottery

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vrflottery/raffle/pkg/devchain"
	"github.com/vrflottery/raffle/pkg/vrf"
)

const (
	// RequestConfirmations is the number of blocks the oracle waits before
	// answering a request.
	RequestConfirmations uint16 = 3
	// NumWords is the number of random words requested per round.
	NumWords uint32 = 1
)

var (
	_ devchain.Contract = (*Lottery)(nil)
	_ vrf.Consumer      = (*Lottery)(nil)
)

// Params are the constructor arguments of the lottery, in the order of the
// canonical constructor.
type Params struct {
	VRFCoordinatorV2 common.Address
	SubscriptionID   uint64
	GasLane          common.Hash
	Interval         *big.Int
	EntranceFee      *big.Int
	CallbackGasLimit uint32
}

type lotteryState struct {
	players        []common.Address
	recentWinner   common.Address
	state          State
	lastTimestamp  uint64
	pendingRequest *big.Int
}

func (s lotteryState) copy() lotteryState {
	n := s
	n.players = append([]common.Address(nil), s.players...)
	if s.pendingRequest != nil {
		n.pendingRequest = new(big.Int).Set(s.pendingRequest)
	}
	return n
}

// Lottery is the lottery contract.
type Lottery struct {
	vrf.ConsumerBase
	entranceFee      *big.Int
	gasLane          common.Hash
	subscriptionID   uint64
	callbackGasLimit uint32
	interval         uint64
	state            lotteryState
}

// New is the constructor of the contract. The lottery starts open, with
// the deployment block as the start of the first interval.
func New(env *devchain.Env, p Params) (*Lottery, error) {
	if p.EntranceFee == nil || p.Interval == nil {
		return nil, fmt.Errorf("lottery: missing constructor arguments")
	}
	if !p.Interval.IsUint64() {
		return nil, fmt.Errorf("lottery: interval %s out of range", p.Interval)
	}
	return &Lottery{
		ConsumerBase:     vrf.ConsumerBase{Coordinator: p.VRFCoordinatorV2},
		entranceFee:      new(big.Int).Set(p.EntranceFee),
		gasLane:          p.GasLane,
		subscriptionID:   p.SubscriptionID,
		callbackGasLimit: p.CallbackGasLimit,
		interval:         p.Interval.Uint64(),
		state: lotteryState{
			state:         StateOpen,
			lastTimestamp: env.Block.Time,
		},
	}, nil
}

func (l *Lottery) Snapshot() interface{} {
	return l.state.copy()
}

func (l *Lottery) Restore(s interface{}) {
	l.state = s.(lotteryState).copy()
}

// EnterLottery registers the caller as a player. The fee check comes
// before the state check.
func (l *Lottery) EnterLottery(env *devchain.Env) error {
	if env.Value.Cmp(l.entranceFee) < 0 {
		return ErrNotEnoughFee
	}
	if l.state.state != StateOpen {
		return ErrNotOpen
	}
	l.state.players = append(l.state.players, env.Caller)
	return env.Emit(lotteryABI.Events["LotteryEnter"], env.Caller)
}

// CheckUpkeep reports whether a winner can be requested: the interval has
// elapsed, the lottery is open and it has players and a balance.
func (l *Lottery) CheckUpkeep(env *devchain.Env, _ []byte) (upkeepNeeded bool, performData []byte) {
	timePassed := env.Block.Time >= l.state.lastTimestamp && env.Block.Time-l.state.lastTimestamp >= l.interval
	isOpen := l.state.state == StateOpen
	hasPlayers := len(l.state.players) > 0
	hasBalance := env.Balance().Sign() > 0
	return timePassed && isOpen && hasPlayers && hasBalance, []byte{}
}

// PerformUpkeep closes the round and requests the random word that picks
// the winner.
func (l *Lottery) PerformUpkeep(env *devchain.Env, performData []byte) error {
	if needed, _ := l.CheckUpkeep(env, performData); !needed {
		return &UpkeepNotNeededError{
			Balance:    env.Balance(),
			NumPlayers: uint64(len(l.state.players)),
			State:      l.state.state,
		}
	}
	l.state.state = StateCalculating
	requestID, err := l.RequestRandomWords(env, vrf.Request{
		KeyHash:                     l.gasLane,
		SubID:                       l.subscriptionID,
		MinimumRequestConfirmations: RequestConfirmations,
		CallbackGasLimit:            l.callbackGasLimit,
		NumWords:                    NumWords,
	})
	if err != nil {
		return err
	}
	l.state.pendingRequest = requestID
	return env.Emit(lotteryABI.Events["RequestedLotteryWinner"], requestID)
}

// RawFulfillRandomWords is called by the coordinator with the words of a
// request.
func (l *Lottery) RawFulfillRandomWords(env *devchain.Env, requestID *big.Int, words []*big.Int) error {
	if err := l.OnlyCoordinator(env); err != nil {
		return err
	}
	return l.fulfillRandomWords(env, requestID, words)
}

func (l *Lottery) fulfillRandomWords(env *devchain.Env, requestID *big.Int, words []*big.Int) error {
	if l.state.pendingRequest == nil || l.state.pendingRequest.Cmp(requestID) != 0 {
		return fmt.Errorf("%w(%s)", ErrUnknownRequest, requestID)
	}
	if len(words) == 0 {
		return ErrNoRandomWords
	}
	n := len(l.state.players)
	if n == 0 {
		return ErrNoPlayers
	}
	index := new(big.Int).Mod(words[0], big.NewInt(int64(n))).Int64()
	winner := l.state.players[index]

	l.state.recentWinner = winner
	l.state.state = StateOpen
	l.state.players = nil
	l.state.lastTimestamp = env.Block.Time
	l.state.pendingRequest = nil

	if err := env.Transfer(winner, env.Balance()); err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return env.Emit(lotteryABI.Events["WinnerPicked"], winner)
}

func (l *Lottery) EntranceFee() *big.Int {
	return new(big.Int).Set(l.entranceFee)
}

// Player returns the player at the index of the current round.
func (l *Lottery) Player(index uint64) (common.Address, error) {
	if index >= uint64(len(l.state.players)) {
		return common.Address{}, fmt.Errorf("%w: %d >= %d", ErrPlayerIndexOutOfRange, index, len(l.state.players))
	}
	return l.state.players[index], nil
}

func (l *Lottery) Players() []common.Address {
	return append([]common.Address(nil), l.state.players...)
}

func (l *Lottery) RecentWinner() common.Address {
	return l.state.recentWinner
}

func (l *Lottery) State() State {
	return l.state.state
}

func (l *Lottery) NumWords() uint32 {
	return NumWords
}

func (l *Lottery) NumberOfPlayers() uint64 {
	return uint64(len(l.state.players))
}

func (l *Lottery) LatestTimestamp() uint64 {
	return l.state.lastTimestamp
}

func (l *Lottery) RequestConfirmations() uint16 {
	return RequestConfirmations
}

func (l *Lottery) Interval() uint64 {
	return l.interval
}

func (l *Lottery) SubscriptionID() uint64 {
	return l.subscriptionID
}

func (l *Lottery) GasLane() common.Hash {
	return l.gasLane
}

func (l *Lottery) CallbackGasLimit() uint32 {
	return l.callbackGasLimit
}

// PendingRequest returns the id of the outstanding randomness request, or
// nil.
func (l *Lottery) PendingRequest() *big.Int {
	if l.state.pendingRequest == nil {
		return nil
	}
	return new(big.Int).Set(l.state.pendingRequest)
}
