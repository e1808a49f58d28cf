// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package vrf implements a mock of the verifiable randomness coordinator
// with subscriptions, consumers and deterministic fulfillment, together with
// the consumer side of the request and fulfillment protocol.
package vrf

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vrflottery/raffle/pkg/devchain"
)

const (
	// MaxConsumers is the maximal number of consumers of a subscription.
	MaxConsumers = 100
	// MaxNumWords is the maximal number of words in a single request.
	MaxNumWords = 500
	// FulfillmentGas is the gas accounted for a consumer callback, capped
	// at the request callback gas limit.
	FulfillmentGas = 100_000
)

var (
	// BaseFee is the flat fee of a fulfillment, 0.25 LINK.
	BaseFee = new(big.Int).Div(big.NewInt(1e18), big.NewInt(4))
	// GasPriceLink is the LINK price of a unit of gas, 1e9 juels.
	GasPriceLink = big.NewInt(1e9)

	initialPreSeed = big.NewInt(100)
)

var _ devchain.Contract = (*Coordinator)(nil)

type subscription struct {
	owner     common.Address
	balance   *big.Int
	consumers []common.Address
}

type request struct {
	subID            uint64
	callbackGasLimit uint32
	numWords         uint32
}

type coordinatorState struct {
	currentSubID  uint64
	nextRequestID *big.Int
	nextPreSeed   *big.Int
	subscriptions map[uint64]*subscription
	requests      map[string]request
}

// Coordinator is the VRFCoordinatorV2Mock contract.
type Coordinator struct {
	baseFee      *big.Int
	gasPriceLink *big.Int
	state        coordinatorState
}

// NewCoordinator returns a coordinator charging baseFee plus gasPriceLink
// per unit of callback gas for every fulfillment.
func NewCoordinator(baseFee, gasPriceLink *big.Int) *Coordinator {
	return &Coordinator{
		baseFee:      new(big.Int).Set(baseFee),
		gasPriceLink: new(big.Int).Set(gasPriceLink),
		state: coordinatorState{
			nextRequestID: big.NewInt(1),
			nextPreSeed:   new(big.Int).Set(initialPreSeed),
			subscriptions: make(map[uint64]*subscription),
			requests:      make(map[string]request),
		},
	}
}

func (c *Coordinator) Snapshot() interface{} {
	return c.state.copy()
}

func (c *Coordinator) Restore(s interface{}) {
	c.state = s.(coordinatorState).copy()
}

func (s coordinatorState) copy() coordinatorState {
	n := coordinatorState{
		currentSubID:  s.currentSubID,
		nextRequestID: new(big.Int).Set(s.nextRequestID),
		nextPreSeed:   new(big.Int).Set(s.nextPreSeed),
		subscriptions: make(map[uint64]*subscription, len(s.subscriptions)),
		requests:      make(map[string]request, len(s.requests)),
	}
	for id, sub := range s.subscriptions {
		n.subscriptions[id] = &subscription{
			owner:     sub.owner,
			balance:   new(big.Int).Set(sub.balance),
			consumers: append([]common.Address(nil), sub.consumers...),
		}
	}
	for id, r := range s.requests {
		n.requests[id] = r
	}
	return n
}

func (c *Coordinator) BaseFee() *big.Int {
	return new(big.Int).Set(c.baseFee)
}

func (c *Coordinator) GasPriceLink() *big.Int {
	return new(big.Int).Set(c.gasPriceLink)
}

// CreateSubscription creates a subscription owned by the caller.
func (c *Coordinator) CreateSubscription(env *devchain.Env) (uint64, error) {
	c.state.currentSubID++
	id := c.state.currentSubID
	c.state.subscriptions[id] = &subscription{
		owner:   env.Caller,
		balance: new(big.Int),
	}
	if err := env.Emit(coordinatorABI.Events["SubscriptionCreated"], id, env.Caller); err != nil {
		return 0, err
	}
	return id, nil
}

// FundSubscription credits the subscription. The mock mints the LINK.
func (c *Coordinator) FundSubscription(env *devchain.Env, subID uint64, amount *big.Int) error {
	sub, ok := c.state.subscriptions[subID]
	if !ok {
		return ErrInvalidSubscription
	}
	oldBalance := new(big.Int).Set(sub.balance)
	sub.balance.Add(sub.balance, amount)
	return env.Emit(coordinatorABI.Events["SubscriptionFunded"], subID, oldBalance, new(big.Int).Set(sub.balance))
}

func (c *Coordinator) ownedSubscription(env *devchain.Env, subID uint64) (*subscription, error) {
	sub, ok := c.state.subscriptions[subID]
	if !ok {
		return nil, ErrInvalidSubscription
	}
	if sub.owner != env.Caller {
		return nil, mustBeSubOwner(sub.owner)
	}
	return sub, nil
}

// AddConsumer allows the consumer to request randomness on the
// subscription. Adding a consumer twice is a no-op.
func (c *Coordinator) AddConsumer(env *devchain.Env, subID uint64, consumer common.Address) error {
	sub, err := c.ownedSubscription(env, subID)
	if err != nil {
		return err
	}
	if len(sub.consumers) == MaxConsumers {
		return ErrTooManyConsumers
	}
	if indexOf(sub.consumers, consumer) >= 0 {
		return nil
	}
	sub.consumers = append(sub.consumers, consumer)
	return env.Emit(coordinatorABI.Events["ConsumerAdded"], subID, consumer)
}

func (c *Coordinator) RemoveConsumer(env *devchain.Env, subID uint64, consumer common.Address) error {
	sub, err := c.ownedSubscription(env, subID)
	if err != nil {
		return err
	}
	i := indexOf(sub.consumers, consumer)
	if i < 0 {
		return ErrInvalidConsumer
	}
	sub.consumers = append(sub.consumers[:i], sub.consumers[i+1:]...)
	return env.Emit(coordinatorABI.Events["ConsumerRemoved"], subID, consumer)
}

// CancelSubscription deletes the subscription. The mock does not move the
// remaining LINK, the amount is only reported in the event.
func (c *Coordinator) CancelSubscription(env *devchain.Env, subID uint64, to common.Address) error {
	sub, err := c.ownedSubscription(env, subID)
	if err != nil {
		return err
	}
	delete(c.state.subscriptions, subID)
	return env.Emit(coordinatorABI.Events["SubscriptionCanceled"], subID, to, new(big.Int).Set(sub.balance))
}

// Subscription is the public state of a subscription.
type Subscription struct {
	Balance   *big.Int
	ReqCount  uint64
	Owner     common.Address
	Consumers []common.Address
}

func (c *Coordinator) GetSubscription(subID uint64) (Subscription, error) {
	sub, ok := c.state.subscriptions[subID]
	if !ok {
		return Subscription{}, ErrInvalidSubscription
	}
	return Subscription{
		Balance:   new(big.Int).Set(sub.balance),
		Owner:     sub.owner,
		Consumers: append([]common.Address(nil), sub.consumers...),
	}, nil
}

func (c *Coordinator) ConsumerIsAdded(subID uint64, consumer common.Address) bool {
	sub, ok := c.state.subscriptions[subID]
	return ok && indexOf(sub.consumers, consumer) >= 0
}

// Request holds the parameters of a randomness request.
type Request struct {
	KeyHash                     common.Hash
	SubID                       uint64
	MinimumRequestConfirmations uint16
	CallbackGasLimit            uint32
	NumWords                    uint32
}

// RequestRandomWords records a request on behalf of the calling consumer and
// returns its id. Request ids start at one.
func (c *Coordinator) RequestRandomWords(env *devchain.Env, r Request) (*big.Int, error) {
	sub, ok := c.state.subscriptions[r.SubID]
	if !ok {
		return nil, ErrInvalidSubscription
	}
	if indexOf(sub.consumers, env.Caller) < 0 {
		return nil, ErrInvalidConsumer
	}
	if r.NumWords > MaxNumWords {
		return nil, fmt.Errorf("%w(%d, %d)", ErrNumWordsTooBig, r.NumWords, MaxNumWords)
	}

	requestID := new(big.Int).Set(c.state.nextRequestID)
	preSeed := new(big.Int).Set(c.state.nextPreSeed)
	c.state.nextRequestID.Add(c.state.nextRequestID, big.NewInt(1))
	c.state.nextPreSeed.Add(c.state.nextPreSeed, big.NewInt(1))
	c.state.requests[requestID.String()] = request{
		subID:            r.SubID,
		callbackGasLimit: r.CallbackGasLimit,
		numWords:         r.NumWords,
	}

	err := env.Emit(coordinatorABI.Events["RandomWordsRequested"],
		r.KeyHash, requestID, preSeed, r.SubID,
		r.MinimumRequestConfirmations, r.CallbackGasLimit, r.NumWords, env.Caller)
	if err != nil {
		return nil, err
	}
	return requestID, nil
}

// PendingRequest reports whether the request is waiting for fulfillment.
func (c *Coordinator) PendingRequest(requestID *big.Int) bool {
	_, ok := c.state.requests[requestID.String()]
	return ok
}

// FulfillRandomWords fulfills the request with MockRandomWords.
func (c *Coordinator) FulfillRandomWords(env *devchain.Env, requestID *big.Int, consumer common.Address) error {
	return c.FulfillRandomWordsWithOverride(env, requestID, consumer, nil)
}

// FulfillRandomWordsWithOverride delivers words to the consumer. Without
// override words, deterministic words derived from the request id are used.
// A failing consumer callback does not revert the fulfillment, it is
// reported in the RandomWordsFulfilled event. The subscription is charged
// the base fee plus the callback gas.
func (c *Coordinator) FulfillRandomWordsWithOverride(env *devchain.Env, requestID *big.Int, consumer common.Address, words []*big.Int) error {
	req, ok := c.state.requests[requestID.String()]
	if !ok {
		return ErrNonexistentRequest
	}

	if len(words) == 0 {
		words = MockRandomWords(requestID, req.numWords)
	} else if len(words) != int(req.numWords) {
		return ErrInvalidRandomWords
	}

	callErr := env.Call(consumer, nil, func(cenv *devchain.Env) error {
		contract, ok := cenv.Contract(consumer)
		if !ok {
			return fmt.Errorf("%w: %s", devchain.ErrUnknownContract, consumer)
		}
		fulfiller, ok := contract.(Consumer)
		if !ok {
			return fmt.Errorf("contract %s is not a randomness consumer", consumer)
		}
		return fulfiller.RawFulfillRandomWords(cenv, requestID, words)
	})
	success := callErr == nil

	gasUsed := uint64(FulfillmentGas)
	if uint64(req.callbackGasLimit) < gasUsed {
		gasUsed = uint64(req.callbackGasLimit)
	}
	payment := new(big.Int).Mul(c.gasPriceLink, new(big.Int).SetUint64(gasUsed))
	payment.Add(payment, c.baseFee)

	sub, ok := c.state.subscriptions[req.subID]
	if !ok {
		return ErrInvalidSubscription
	}
	if sub.balance.Cmp(payment) < 0 {
		return ErrInsufficientBalance
	}
	sub.balance.Sub(sub.balance, payment)
	delete(c.state.requests, requestID.String())

	return env.Emit(coordinatorABI.Events["RandomWordsFulfilled"], requestID, new(big.Int).Set(requestID), payment, success)
}

// MockRandomWords returns the words the mock delivers for a request:
// keccak256(abi.encode(requestId, i)) for every index i.
func MockRandomWords(requestID *big.Int, numWords uint32) []*big.Int {
	words := make([]*big.Int, numWords)
	for i := range words {
		encoded := append(
			common.LeftPadBytes(requestID.Bytes(), 32),
			common.LeftPadBytes(big.NewInt(int64(i)).Bytes(), 32)...,
		)
		words[i] = new(big.Int).SetBytes(crypto.Keccak256(encoded))
	}
	return words
}

func indexOf(list []common.Address, a common.Address) int {
	for i, v := range list {
		if v == a {
			return i
		}
	}
	return -1
}
