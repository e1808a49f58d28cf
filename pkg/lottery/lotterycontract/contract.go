// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lotterycontract drives a lottery deployed on a live network
// through ABI encoded calls and transactions.
package lotterycontract

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/sctx"
	"github.com/vrflottery/raffle/pkg/transaction"
)

const (
	enterGasLimit  = 200_000
	upkeepGasLimit = 500_000
)

var lotteryABI = lottery.ABI()

type Interface interface {
	Address() common.Address
	EntranceFee(context.Context) (*big.Int, error)
	Player(context.Context, uint64) (common.Address, error)
	Players(context.Context) ([]common.Address, error)
	NumberOfPlayers(context.Context) (uint64, error)
	RecentWinner(context.Context) (common.Address, error)
	State(context.Context) (lottery.State, error)
	LatestTimestamp(context.Context) (uint64, error)
	Interval(context.Context) (uint64, error)
	SubscriptionID(context.Context) (uint64, error)
	Status(context.Context) (lottery.Status, error)
	Enter(context.Context, *big.Int) (*types.Receipt, error)
	CheckUpkeep(context.Context) (bool, error)
	PerformUpkeep(context.Context) (*big.Int, error)
}

// BalanceReader reads account balances from the chain.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

type Service struct {
	logger    logging.Logger
	txService transaction.Service
	balances  BalanceReader
	address   common.Address
}

var _ Interface = (*Service)(nil)

func New(logger logging.Logger, txService transaction.Service, balances BalanceReader, address common.Address) *Service {
	return &Service{
		logger:    logger,
		txService: txService,
		balances:  balances,
		address:   address,
	}
}

func (s *Service) Address() common.Address {
	return s.address
}

func (s *Service) EntranceFee(ctx context.Context) (*big.Int, error) {
	var fee *big.Int
	if err := s.call(ctx, "getEntranceFee", &fee); err != nil {
		return nil, err
	}
	return fee, nil
}

// Player returns the player at the index. Out of range indexes revert.
func (s *Service) Player(ctx context.Context, index uint64) (common.Address, error) {
	var player common.Address
	if err := s.call(ctx, "getPlayer", &player, new(big.Int).SetUint64(index)); err != nil {
		return common.Address{}, err
	}
	return player, nil
}

// Players reads every entered player in order.
func (s *Service) Players(ctx context.Context) ([]common.Address, error) {
	n, err := s.NumberOfPlayers(ctx)
	if err != nil {
		return nil, err
	}
	players := make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		p, err := s.Player(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i, err)
		}
		players = append(players, p)
	}
	return players, nil
}

func (s *Service) NumberOfPlayers(ctx context.Context) (uint64, error) {
	var n *big.Int
	if err := s.call(ctx, "getNumberOfPlayers", &n); err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

func (s *Service) RecentWinner(ctx context.Context) (common.Address, error) {
	var winner common.Address
	if err := s.call(ctx, "getRecentWinner", &winner); err != nil {
		return common.Address{}, err
	}
	return winner, nil
}

func (s *Service) State(ctx context.Context) (lottery.State, error) {
	var state uint8
	if err := s.call(ctx, "getLotteryState", &state); err != nil {
		return 0, err
	}
	return lottery.State(state), nil
}

func (s *Service) LatestTimestamp(ctx context.Context) (uint64, error) {
	var ts *big.Int
	if err := s.call(ctx, "getLatestTimeStamp", &ts); err != nil {
		return 0, err
	}
	return ts.Uint64(), nil
}

func (s *Service) Interval(ctx context.Context) (uint64, error) {
	var interval *big.Int
	if err := s.call(ctx, "getInterval", &interval); err != nil {
		return 0, err
	}
	return interval.Uint64(), nil
}

func (s *Service) SubscriptionID(ctx context.Context) (uint64, error) {
	var id uint64
	if err := s.call(ctx, "getSubscriptionId", &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Service) NumWords(ctx context.Context) (uint32, error) {
	var n *big.Int
	if err := s.call(ctx, "getNumWords", &n); err != nil {
		return 0, err
	}
	return uint32(n.Uint64()), nil
}

func (s *Service) RequestConfirmations(ctx context.Context) (uint16, error) {
	var n *big.Int
	if err := s.call(ctx, "getRequestConfirmations", &n); err != nil {
		return 0, err
	}
	return uint16(n.Uint64()), nil
}

// CheckUpkeep simulates checkUpkeep with empty check data.
func (s *Service) CheckUpkeep(ctx context.Context) (bool, error) {
	callData, err := lotteryABI.Pack("checkUpkeep", []byte{})
	if err != nil {
		return false, err
	}
	result, err := s.callTx(ctx, callData)
	if err != nil {
		return false, fmt.Errorf("check upkeep: %w", err)
	}
	results, err := lotteryABI.Unpack("checkUpkeep", result)
	if err != nil {
		return false, fmt.Errorf("check upkeep: results %v: %w", results, err)
	}
	return results[0].(bool), nil
}

// Status reads the observable lottery state. The reads are separate calls
// and may straddle a block.
func (s *Service) Status(ctx context.Context) (st lottery.Status, err error) {
	st.Address = s.address
	if st.State, err = s.State(ctx); err != nil {
		return st, err
	}
	if st.EntranceFee, err = s.EntranceFee(ctx); err != nil {
		return st, err
	}
	if st.NumberOfPlayers, err = s.NumberOfPlayers(ctx); err != nil {
		return st, err
	}
	if st.RecentWinner, err = s.RecentWinner(ctx); err != nil {
		return st, err
	}
	if st.LatestTimestamp, err = s.LatestTimestamp(ctx); err != nil {
		return st, err
	}
	if st.Interval, err = s.Interval(ctx); err != nil {
		return st, err
	}
	if st.SubscriptionID, err = s.SubscriptionID(ctx); err != nil {
		return st, err
	}
	if st.NumWords, err = s.NumWords(ctx); err != nil {
		return st, err
	}
	if st.RequestConfirmations, err = s.RequestConfirmations(ctx); err != nil {
		return st, err
	}
	if st.UpkeepNeeded, err = s.CheckUpkeep(ctx); err != nil {
		return st, err
	}
	if s.balances != nil {
		if st.Balance, err = s.balances.BalanceAt(ctx, s.address, nil); err != nil {
			return st, fmt.Errorf("lottery balance: %w", err)
		}
	}
	return st, nil
}

// Enter enters the lottery paying value.
func (s *Service) Enter(ctx context.Context, value *big.Int) (*types.Receipt, error) {
	callData, err := lotteryABI.Pack("enterLottery")
	if err != nil {
		return nil, err
	}
	request := &transaction.TxRequest{
		To:          &s.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimitWithDefault(ctx, enterGasLimit),
		Value:       value,
		Description: "enter lottery",
	}
	if err := s.simulate(ctx, request); err != nil {
		return nil, fmt.Errorf("enter lottery: %w", err)
	}
	receipt, err := s.sendAndWait(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("enter lottery: %w", err)
	}
	return receipt, nil
}

// PerformUpkeep closes the round and returns the id of the randomness
// request.
func (s *Service) PerformUpkeep(ctx context.Context) (*big.Int, error) {
	callData, err := lotteryABI.Pack("performUpkeep", []byte{})
	if err != nil {
		return nil, err
	}
	request := &transaction.TxRequest{
		To:          &s.address,
		Data:        callData,
		GasPrice:    sctx.GetGasPrice(ctx),
		GasLimit:    sctx.GetGasLimitWithDefault(ctx, upkeepGasLimit),
		Value:       big.NewInt(0),
		Description: "perform upkeep",
	}
	if err := s.simulate(ctx, request); err != nil {
		return nil, fmt.Errorf("perform upkeep: %w", err)
	}
	receipt, err := s.sendAndWait(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("perform upkeep: %w", err)
	}
	for _, l := range receipt.Logs {
		if l.Address != s.address || len(l.Topics) == 0 || l.Topics[0] != lottery.RequestedLotteryWinnerTopic {
			continue
		}
		ev, err := lottery.ParseRequestedLotteryWinner(*l)
		if err != nil {
			return nil, fmt.Errorf("perform upkeep: %w", err)
		}
		s.logger.Debugf("lottery %s: requested winner with request %s", s.address, ev.RequestId)
		return ev.RequestId, nil
	}
	return nil, lottery.ErrNoRequestEvent
}

func (s *Service) call(ctx context.Context, method string, out interface{}, args ...interface{}) error {
	callData, err := lotteryABI.Pack(method, args...)
	if err != nil {
		return err
	}
	result, err := s.callTx(ctx, callData)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := lotteryABI.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("%s: unpack: %w", method, err)
	}
	return nil
}

// callTx simulates a transaction based on tx request.
func (s *Service) callTx(ctx context.Context, callData []byte) ([]byte, error) {
	result, err := s.txService.Call(ctx, &transaction.TxRequest{
		To:   &s.address,
		Data: callData,
	})
	if err != nil {
		return nil, decodeRevert(err)
	}
	return result, nil
}

// simulate runs the transaction as a call so that reverts surface as
// lottery errors before anything is sent.
func (s *Service) simulate(ctx context.Context, request *transaction.TxRequest) error {
	_, err := s.txService.Call(ctx, request)
	if err != nil {
		return decodeRevert(err)
	}
	return nil
}

// sendAndWait sends a transaction and waits until it is mined or ctx is
// cancelled.
func (s *Service) sendAndWait(ctx context.Context, request *transaction.TxRequest) (*types.Receipt, error) {
	txHash, err := s.txService.Send(ctx, request)
	if err != nil {
		return nil, err
	}

	receipt, err := s.txService.WaitForReceipt(ctx, txHash)
	if err != nil {
		return nil, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, transaction.ErrTransactionReverted
	}
	return receipt, nil
}

func decodeRevert(err error) error {
	data, ok := transaction.RevertData(err)
	if !ok {
		return err
	}
	if revert := lottery.DecodeRevert(data); revert != nil {
		return revert
	}
	return err
}
