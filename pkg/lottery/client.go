// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/devchain"
)

var ErrNoRequestEvent = errors.New("requested lottery winner event not found")

// Status is a snapshot of the observable lottery state.
type Status struct {
	Address              common.Address `json:"address"`
	State                State          `json:"state"`
	EntranceFee          *big.Int       `json:"entranceFee"`
	Balance              *big.Int       `json:"balance"`
	NumberOfPlayers      uint64         `json:"numberOfPlayers"`
	RecentWinner         common.Address `json:"recentWinner"`
	LatestTimestamp      uint64         `json:"latestTimestamp"`
	Interval             uint64         `json:"interval"`
	SubscriptionID       uint64         `json:"subscriptionId"`
	NumWords             uint32         `json:"numWords"`
	RequestConfirmations uint16         `json:"requestConfirmations"`
	UpkeepNeeded         bool           `json:"upkeepNeeded"`
}

// Client drives a lottery deployed on a development chain.
type Client struct {
	chain   *devchain.Chain
	address common.Address
	lottery *Lottery
}

// Deploy deploys a lottery with the constructor arguments.
func Deploy(ctx context.Context, chain *devchain.Chain, from common.Address, p Params) (*Client, *types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	address, receipt, err := chain.Deploy(from, nil, func(env *devchain.Env) (devchain.Contract, error) {
		return New(env, p)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("deploy lottery: %w", err)
	}
	c, err := NewClient(chain, address)
	if err != nil {
		return nil, nil, err
	}
	return c, receipt, nil
}

// NewClient binds to the lottery deployed at address.
func NewClient(chain *devchain.Chain, address common.Address) (*Client, error) {
	contract, ok := chain.ContractAt(address)
	if !ok {
		return nil, fmt.Errorf("%w: %s", devchain.ErrUnknownContract, address)
	}
	l, ok := contract.(*Lottery)
	if !ok {
		return nil, fmt.Errorf("contract %s is not a lottery", address)
	}
	return &Client{
		chain:   chain,
		address: address,
		lottery: l,
	}, nil
}

func (c *Client) Address() common.Address {
	return c.address
}

// Enter enters the lottery from the account, paying value.
func (c *Client) Enter(ctx context.Context, from common.Address, value *big.Int) (*types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.chain.Transact(from, c.address, value, c.lottery.EnterLottery)
}

// CheckUpkeep evaluates the upkeep predicate against the pending block
// without mining.
func (c *Client) CheckUpkeep(ctx context.Context, checkData []byte) (upkeepNeeded bool, performData []byte, err error) {
	err = c.view(ctx, func(env *devchain.Env) error {
		upkeepNeeded, performData = c.lottery.CheckUpkeep(env, checkData)
		return nil
	})
	return upkeepNeeded, performData, err
}

// PerformUpkeep requests a winner and returns the id of the randomness
// request, read from the RequestedLotteryWinner event of the receipt.
func (c *Client) PerformUpkeep(ctx context.Context, from common.Address, performData []byte) (*big.Int, *types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	receipt, err := c.chain.Transact(from, c.address, nil, func(env *devchain.Env) error {
		return c.lottery.PerformUpkeep(env, performData)
	})
	if err != nil {
		return nil, nil, err
	}
	l, ok := findLog(receipt, RequestedLotteryWinnerTopic)
	if !ok {
		return nil, nil, ErrNoRequestEvent
	}
	ev, err := ParseRequestedLotteryWinner(*l)
	if err != nil {
		return nil, nil, err
	}
	return ev.RequestId, receipt, nil
}

func (c *Client) EntranceFee(ctx context.Context) (fee *big.Int, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		fee = c.lottery.EntranceFee()
		return nil
	})
	return fee, err
}

func (c *Client) Player(ctx context.Context, index uint64) (player common.Address, err error) {
	err = c.view(ctx, func(_ *devchain.Env) (err error) {
		player, err = c.lottery.Player(index)
		return err
	})
	return player, err
}

func (c *Client) Players(ctx context.Context) (players []common.Address, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		players = c.lottery.Players()
		return nil
	})
	return players, err
}

func (c *Client) NumberOfPlayers(ctx context.Context) (n uint64, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		n = c.lottery.NumberOfPlayers()
		return nil
	})
	return n, err
}

func (c *Client) RecentWinner(ctx context.Context) (winner common.Address, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		winner = c.lottery.RecentWinner()
		return nil
	})
	return winner, err
}

func (c *Client) State(ctx context.Context) (s State, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		s = c.lottery.State()
		return nil
	})
	return s, err
}

func (c *Client) LatestTimestamp(ctx context.Context) (ts uint64, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		ts = c.lottery.LatestTimestamp()
		return nil
	})
	return ts, err
}

func (c *Client) Interval(ctx context.Context) (interval uint64, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		interval = c.lottery.Interval()
		return nil
	})
	return interval, err
}

func (c *Client) SubscriptionID(ctx context.Context) (id uint64, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		id = c.lottery.SubscriptionID()
		return nil
	})
	return id, err
}

func (c *Client) PendingRequest(ctx context.Context) (id *big.Int, err error) {
	err = c.view(ctx, func(_ *devchain.Env) error {
		id = c.lottery.PendingRequest()
		return nil
	})
	return id, err
}

// Status reads the whole lottery state in a single call.
func (c *Client) Status(ctx context.Context) (s Status, err error) {
	err = c.view(ctx, func(env *devchain.Env) error {
		needed, _ := c.lottery.CheckUpkeep(env, nil)
		s = Status{
			Address:              c.address,
			State:                c.lottery.State(),
			EntranceFee:          c.lottery.EntranceFee(),
			Balance:              env.Balance(),
			NumberOfPlayers:      c.lottery.NumberOfPlayers(),
			RecentWinner:         c.lottery.RecentWinner(),
			LatestTimestamp:      c.lottery.LatestTimestamp(),
			Interval:             c.lottery.Interval(),
			SubscriptionID:       c.lottery.SubscriptionID(),
			NumWords:             c.lottery.NumWords(),
			RequestConfirmations: c.lottery.RequestConfirmations(),
			UpkeepNeeded:         needed,
		}
		return nil
	})
	return s, err
}

func (c *Client) view(ctx context.Context, fn devchain.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.chain.Call(common.Address{}, c.address, nil, fn)
}

// Upkeep performs the upkeep of a lottery from a fixed sender.
type Upkeep struct {
	client *Client
	from   common.Address
}

// AsUpkeep returns the upkeep of the lottery sent from the account.
func (c *Client) AsUpkeep(from common.Address) *Upkeep {
	return &Upkeep{client: c, from: from}
}

func (u *Upkeep) CheckUpkeep(ctx context.Context) (bool, error) {
	needed, _, err := u.client.CheckUpkeep(ctx, nil)
	return needed, err
}

func (u *Upkeep) PerformUpkeep(ctx context.Context) (*big.Int, error) {
	id, _, err := u.client.PerformUpkeep(ctx, u.from, nil)
	return id, err
}
