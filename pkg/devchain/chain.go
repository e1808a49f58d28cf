// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package devchain implements an in-process development ledger with
// automine, time travel and state snapshots. Contracts are Go values that
// run against an Env and whose state the chain can snapshot and restore,
// so that every transaction and every nested call is atomic.
package devchain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/sirupsen/logrus"

	"github.com/vrflottery/raffle/pkg/logging"
)

// DefaultChainID is the chain id of the hardhat development network.
const DefaultChainID = 31337

const blockGasLimit = 30_000_000

var (
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
	ErrUnknownContract   = errors.New("no contract at address")
	ErrUnknownSnapshot   = errors.New("unknown snapshot")
	ErrTimestampTooLow   = errors.New("timestamp lower than or equal to the previous block")
	ErrCallDepth         = errors.New("max call depth exceeded")
)

// RevertError is returned by transactions and calls that reverted.
type RevertError struct {
	Reason error
}

func (e *RevertError) Error() string {
	return "execution reverted: " + e.Reason.Error()
}

func (e *RevertError) Unwrap() error {
	return e.Reason
}

// Contract is the state of a deployed contract. Snapshot returns an
// independent copy of the state and Restore puts such a copy back.
type Contract interface {
	Snapshot() interface{}
	Restore(interface{})
}

// Receiver is implemented by contracts that accept plain value transfers.
// Transfers to contracts that do not implement it fail.
type Receiver interface {
	Receive(env *Env) error
}

// TxFunc is the body of a transaction or call, executed on behalf of
// env.Caller against the contract at env.Self.
type TxFunc func(env *Env) error

// Chain is the development ledger. It is safe for concurrent use, every
// transaction is executed under a single lock and mined in its own block.
type Chain struct {
	mu        sync.Mutex
	chainID   *big.Int
	clock     func() time.Time
	offset    int64  // seconds added to the clock by IncreaseTime
	nextTime  uint64 // timestamp forced for the next block, zero if unset
	headers   []*types.Header
	balances  map[common.Address]*big.Int
	nonces    map[common.Address]uint64
	contracts map[common.Address]Contract
	receipts  map[common.Hash]*types.Receipt
	logs      []*types.Log
	snapshots map[uint64]*chainSnapshot
	snapID    uint64
	accounts  []Account
	logsFeed  event.Feed
	logger    logging.Logger
}

type Option func(*Chain)

// WithClock sets the wall clock used for block timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Chain) {
		c.clock = clock
	}
}

// WithChainID overrides the default chain id.
func WithChainID(id int64) Option {
	return func(c *Chain) {
		c.chainID = big.NewInt(id)
	}
}

// WithAccounts sets the number of funded accounts and their balance.
func WithAccounts(n int, balance *big.Int) Option {
	return func(c *Chain) {
		c.accounts = NewAccounts(n)
		for _, a := range c.accounts {
			c.balances[a.Address] = new(big.Int).Set(balance)
		}
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(c *Chain) {
		c.logger = logger
	}
}

// New creates a chain with a genesis block and, unless configured
// otherwise, DefaultAccounts funded accounts.
func New(opts ...Option) *Chain {
	c := &Chain{
		chainID:   big.NewInt(DefaultChainID),
		clock:     time.Now,
		balances:  make(map[common.Address]*big.Int),
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]Contract),
		receipts:  make(map[common.Hash]*types.Receipt),
		snapshots: make(map[uint64]*chainSnapshot),
	}
	WithAccounts(DefaultAccounts, DefaultBalance)(c)
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = logging.New(io.Discard, logrus.PanicLevel)
	}
	c.headers = []*types.Header{{
		Number:     big.NewInt(0),
		Time:       uint64(c.clock().Unix()),
		GasLimit:   blockGasLimit,
		Difficulty: big.NewInt(0),
	}}
	return c
}

// Accounts returns the funded development accounts.
func (c *Chain) Accounts() []Account {
	return append([]Account(nil), c.accounts...)
}

// Deploy creates a contract from the deployer account. The constructor runs
// with env.Self set to the new contract address, which is derived from the
// deployer address and nonce.
func (c *Chain) Deploy(from common.Address, value *big.Int, ctor func(env *Env) (Contract, error)) (common.Address, *types.Receipt, error) {
	c.mu.Lock()
	address := crypto.CreateAddress(from, c.nonces[from])
	var contract Contract
	receipt, logs, err := c.execute(from, address, value, func(env *Env) (err error) {
		contract, err = ctor(env)
		if err != nil {
			return err
		}
		c.contracts[address] = contract
		return nil
	})
	c.mu.Unlock()
	if err != nil {
		return common.Address{}, nil, err
	}
	receipt.ContractAddress = address
	c.publish(logs)
	c.logger.Debugf("devchain: deployed contract %s from %s in block %d", address, from, receipt.BlockNumber)
	return address, receipt, nil
}

// Transact executes fn as a transaction from the sender to the contract or
// account at to, transferring value first. The transaction is mined in a new
// block. A failing transaction is not mined and leaves no trace.
func (c *Chain) Transact(from, to common.Address, value *big.Int, fn TxFunc) (*types.Receipt, error) {
	c.mu.Lock()
	receipt, logs, err := c.execute(from, to, value, fn)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	c.publish(logs)
	return receipt, nil
}

// Call executes fn against the pending block without persisting any change,
// the way eth_call does.
func (c *Chain) Call(from, to common.Address, value *big.Int, fn TxFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snapshotState()
	defer c.restoreState(snap)

	env := c.newEnv(from, to, value, &pendingTx{})
	if err := env.transferValue(from, to, value); err != nil {
		return err
	}
	if err := fn(env); err != nil {
		return asRevert(err)
	}
	return nil
}

func (c *Chain) execute(from, to common.Address, value *big.Int, fn TxFunc) (*types.Receipt, []*types.Log, error) {
	snap := c.snapshotState()
	tx := &pendingTx{}
	env := c.newEnv(from, to, value, tx)

	if err := env.transferValue(from, to, value); err != nil {
		c.restoreState(snap)
		return nil, nil, err
	}
	if err := fn(env); err != nil {
		c.restoreState(snap)
		return nil, nil, asRevert(err)
	}

	nonce := c.nonces[from]
	c.nonces[from] = nonce + 1
	header := c.mine(env.Block.Time)

	txHash := transactionHash(c.chainID, from, to, nonce)
	for i, l := range tx.logs {
		l.BlockNumber = header.Number.Uint64()
		l.BlockHash = header.Hash()
		l.TxHash = txHash
		l.TxIndex = 0
		l.Index = uint(i)
	}
	receipt := &types.Receipt{
		Type:              types.LegacyTxType,
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 21000,
		GasUsed:           21000,
		Logs:              tx.logs,
		TxHash:            txHash,
		BlockHash:         header.Hash(),
		BlockNumber:       new(big.Int).Set(header.Number),
		TransactionIndex:  0,
	}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})
	c.receipts[txHash] = receipt
	c.logs = append(c.logs, tx.logs...)
	return receipt, tx.logs, nil
}

func (c *Chain) publish(logs []*types.Log) {
	if len(logs) > 0 {
		c.logsFeed.Send(logs)
	}
}

func (c *Chain) newEnv(from, to common.Address, value *big.Int, tx *pendingTx) *Env {
	if value == nil {
		value = new(big.Int)
	}
	return &Env{
		chain:  c,
		tx:     tx,
		Caller: from,
		Origin: from,
		Self:   to,
		Value:  new(big.Int).Set(value),
		Block: BlockContext{
			Number: c.head().Number.Uint64() + 1,
			Time:   c.pendingTime(),
		},
	}
}

func (c *Chain) head() *types.Header {
	return c.headers[len(c.headers)-1]
}

// pendingTime is the timestamp of the next block: the forced timestamp if
// one is set, otherwise the clock shifted by the accumulated time increase,
// and always later than the head block.
func (c *Chain) pendingTime() uint64 {
	if c.nextTime != 0 {
		return c.nextTime
	}
	t := uint64(c.clock().Unix() + c.offset)
	if parent := c.head().Time; t <= parent {
		t = parent + 1
	}
	return t
}

func (c *Chain) mine(timestamp uint64) *types.Header {
	c.nextTime = 0
	// chain time never falls behind the head block
	if d := int64(timestamp) - c.clock().Unix(); d > c.offset {
		c.offset = d
	}
	parent := c.head()
	header := &types.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).Add(parent.Number, big.NewInt(1)),
		Time:       timestamp,
		GasLimit:   blockGasLimit,
		Difficulty: big.NewInt(0),
	}
	c.headers = append(c.headers, header)
	return header
}

// Mine mines an empty block, the way evm_mine does.
func (c *Chain) Mine() *types.Header {
	c.mu.Lock()
	defer c.mu.Unlock()

	h := c.mine(c.pendingTime())
	return types.CopyHeader(h)
}

// IncreaseTime moves the clock of all following blocks forward, the way
// evm_increaseTime does.
func (c *Chain) IncreaseTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.offset += int64(d / time.Second)
}

// SetNextBlockTimestamp forces the timestamp of the next block. The
// following blocks continue from it.
func (c *Chain) SetNextBlockTimestamp(timestamp uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timestamp <= c.head().Time {
		return fmt.Errorf("%w: %d <= %d", ErrTimestampTooLow, timestamp, c.head().Time)
	}
	c.nextTime = timestamp
	return nil
}

// SetBalance sets the balance of any account, the way hardhat_setBalance
// does.
func (c *Chain) SetBalance(account common.Address, balance *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.balances[account] = new(big.Int).Set(balance)
}

// ContractAt returns the contract deployed at the address.
func (c *Chain) ContractAt(address common.Address) (Contract, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	contract, ok := c.contracts[address]
	return contract, ok
}

func (c *Chain) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.chainID), nil
}

func (c *Chain) BlockNumber(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.head().Number.Uint64(), nil
}

// HeaderByNumber returns the header of the block, or of the head block if
// number is nil.
func (c *Chain) HeaderByNumber(_ context.Context, number *big.Int) (*types.Header, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if number == nil {
		return types.CopyHeader(c.head()), nil
	}
	if !number.IsUint64() || number.Uint64() >= uint64(len(c.headers)) {
		return nil, ethereum.NotFound
	}
	return types.CopyHeader(c.headers[number.Uint64()]), nil
}

// BalanceAt returns the current balance of the account. Historical state is
// not kept, so only the latest block is supported.
func (c *Chain) BalanceAt(_ context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if blockNumber != nil && blockNumber.Cmp(c.head().Number) != 0 {
		return nil, fmt.Errorf("balance at block %s: historical state not available", blockNumber)
	}
	return c.balanceOf(account), nil
}

func (c *Chain) NonceAt(_ context.Context, account common.Address, _ *big.Int) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nonces[account], nil
}

func (c *Chain) TransactionReceipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (c *Chain) balanceOf(account common.Address) *big.Int {
	if b, ok := c.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// stateSnapshot is the state restored when a call or transaction fails.
type stateSnapshot struct {
	balances  map[common.Address]*big.Int
	contracts map[common.Address]interface{}
}

func (c *Chain) snapshotState() *stateSnapshot {
	s := &stateSnapshot{
		balances:  make(map[common.Address]*big.Int, len(c.balances)),
		contracts: make(map[common.Address]interface{}, len(c.contracts)),
	}
	for a, b := range c.balances {
		s.balances[a] = new(big.Int).Set(b)
	}
	for a, contract := range c.contracts {
		s.contracts[a] = contract.Snapshot()
	}
	return s
}

func (c *Chain) restoreState(s *stateSnapshot) {
	c.balances = s.balances
	for a, contract := range c.contracts {
		state, ok := s.contracts[a]
		if !ok {
			delete(c.contracts, a)
			continue
		}
		contract.Restore(state)
	}
}

type chainSnapshot struct {
	state     *stateSnapshot
	contracts map[common.Address]Contract
	headers   int
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*types.Receipt
	logs      int
	offset    int64
	nextTime  uint64
}

// Snapshot records the whole chain state and returns its id, the way
// evm_snapshot does.
func (c *Chain) Snapshot() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &chainSnapshot{
		state:     c.snapshotState(),
		contracts: make(map[common.Address]Contract, len(c.contracts)),
		headers:   len(c.headers),
		nonces:    make(map[common.Address]uint64, len(c.nonces)),
		receipts:  make(map[common.Hash]*types.Receipt, len(c.receipts)),
		logs:      len(c.logs),
		offset:    c.offset,
		nextTime:  c.nextTime,
	}
	for a, contract := range c.contracts {
		s.contracts[a] = contract
	}
	for a, n := range c.nonces {
		s.nonces[a] = n
	}
	for h, r := range c.receipts {
		s.receipts[h] = r
	}
	c.snapID++
	c.snapshots[c.snapID] = s
	return c.snapID
}

// Revert restores the state recorded by Snapshot. The snapshot and all
// snapshots taken after it are discarded, the way evm_revert does.
func (c *Chain) Revert(id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.snapshots[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownSnapshot, id)
	}
	c.contracts = make(map[common.Address]Contract, len(s.contracts))
	for a, contract := range s.contracts {
		c.contracts[a] = contract
	}
	c.restoreState(s.state)
	c.headers = c.headers[:s.headers]
	c.nonces = s.nonces
	c.receipts = s.receipts
	c.logs = c.logs[:s.logs]
	c.offset = s.offset
	c.nextTime = s.nextTime
	for sid := range c.snapshots {
		if sid >= id {
			delete(c.snapshots, sid)
		}
	}
	return nil
}

func transactionHash(chainID *big.Int, from, to common.Address, nonce uint64) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	return crypto.Keccak256Hash(chainID.Bytes(), from.Bytes(), to.Bytes(), n[:])
}

func asRevert(err error) error {
	var revert *RevertError
	if errors.As(err, &revert) {
		return err
	}
	return &RevertError{Reason: err}
}
