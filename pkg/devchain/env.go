// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const maxCallDepth = 1024

// BlockContext describes the block a transaction executes in.
type BlockContext struct {
	Number uint64
	Time   uint64
}

type pendingTx struct {
	logs []*types.Log
}

// Env is the execution environment of a contract call. It is only valid
// for the duration of the call it was passed to.
type Env struct {
	chain *Chain
	tx    *pendingTx
	depth int

	Caller common.Address
	Origin common.Address
	Self   common.Address
	Value  *big.Int
	Block  BlockContext
}

// BalanceOf returns the balance of an account.
func (e *Env) BalanceOf(account common.Address) *big.Int {
	return e.chain.balanceOf(account)
}

// Balance returns the balance of the executing contract.
func (e *Env) Balance() *big.Int {
	return e.BalanceOf(e.Self)
}

// Contract returns the contract deployed at the address.
func (e *Env) Contract(address common.Address) (Contract, bool) {
	c, ok := e.chain.contracts[address]
	return c, ok
}

// Call performs a nested call from the executing contract. All changes made
// by fn, including the value transfer and emitted logs, are reverted if it
// fails. The returned error is a *RevertError.
func (e *Env) Call(to common.Address, value *big.Int, fn TxFunc) error {
	if e.depth+1 > maxCallDepth {
		return &RevertError{Reason: ErrCallDepth}
	}
	if value == nil {
		value = new(big.Int)
	}
	snap := e.chain.snapshotState()
	logs := len(e.tx.logs)

	nested := &Env{
		chain:  e.chain,
		tx:     e.tx,
		depth:  e.depth + 1,
		Caller: e.Self,
		Origin: e.Origin,
		Self:   to,
		Value:  new(big.Int).Set(value),
		Block:  e.Block,
	}
	err := nested.transferValue(e.Self, to, value)
	if err == nil {
		err = fn(nested)
	}
	if err != nil {
		e.chain.restoreState(snap)
		e.tx.logs = e.tx.logs[:logs]
		return asRevert(err)
	}
	return nil
}

// Transfer sends value from the executing contract. Transfers to contracts
// run their Receive hook and fail if they have none.
func (e *Env) Transfer(to common.Address, amount *big.Int) error {
	return e.Call(to, amount, func(env *Env) error {
		contract, ok := env.Contract(to)
		if !ok {
			return nil
		}
		r, ok := contract.(Receiver)
		if !ok {
			return fmt.Errorf("contract %s does not accept value", to)
		}
		return r.Receive(env)
	})
}

func (e *Env) transferValue(from, to common.Address, value *big.Int) error {
	if value == nil || value.Sign() == 0 {
		return nil
	}
	if value.Sign() < 0 {
		return fmt.Errorf("negative value %s", value)
	}
	balance := e.chain.balanceOf(from)
	if balance.Cmp(value) < 0 {
		return fmt.Errorf("%w: have %s want %s", ErrInsufficientFunds, balance, value)
	}
	e.chain.balances[from] = balance.Sub(balance, value)
	e.chain.balances[to] = new(big.Int).Add(e.chain.balanceOf(to), value)
	return nil
}

// Emit appends an ABI encoded log of the event to the transaction. Indexed
// arguments become topics, the rest is packed into the log data.
func (e *Env) Emit(ev abi.Event, args ...interface{}) error {
	l, err := EncodeLog(e.Self, ev, args...)
	if err != nil {
		return err
	}
	e.tx.logs = append(e.tx.logs, l)
	return nil
}

// EncodeLog encodes an event emitted by the contract at address.
func EncodeLog(address common.Address, ev abi.Event, args ...interface{}) (*types.Log, error) {
	if len(args) != len(ev.Inputs) {
		return nil, fmt.Errorf("event %s: got %d arguments, want %d", ev.Name, len(args), len(ev.Inputs))
	}
	var (
		indexed [][]interface{}
		data    []interface{}
	)
	for i, in := range ev.Inputs {
		if in.Indexed {
			indexed = append(indexed, []interface{}{args[i]})
		} else {
			data = append(data, args[i])
		}
	}
	topics := []common.Hash{ev.ID}
	if len(indexed) > 0 {
		t, err := abi.MakeTopics(indexed...)
		if err != nil {
			return nil, fmt.Errorf("event %s topics: %w", ev.Name, err)
		}
		for _, q := range t {
			topics = append(topics, q[0])
		}
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		return nil, fmt.Errorf("event %s data: %w", ev.Name, err)
	}
	return &types.Log{
		Address: address,
		Topics:  topics,
		Data:    packed,
	}, nil
}
