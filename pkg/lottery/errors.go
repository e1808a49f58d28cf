// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vrflottery/raffle/pkg/util/abiutil"
	"github.com/vrflottery/raffle/pkg/vrf"
)

// Kind classifies the reverts of the lottery.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotEnoughFee
	KindNotOpen
	KindUpkeepNotNeeded
	KindTransferFailed
	KindUnknownRequest
)

var kindIdentifiers = map[Kind]string{
	KindNotEnoughFee:    "lottery__NotEnoughFee",
	KindNotOpen:         "lottery__NotOpen",
	KindUpkeepNotNeeded: "lottery__UpkeepNotNeeded",
	KindTransferFailed:  "lottery__TransferFailed",
	KindUnknownRequest:  "lottery__UnknownRequest",
}

// String returns the canonical contract error identifier of the kind.
func (k Kind) String() string {
	if id, ok := kindIdentifiers[k]; ok {
		return id
	}
	return "unknown"
}

// ParseKind maps a canonical identifier back to its kind. Only exact
// canonical identifiers are recognized.
func ParseKind(id string) (Kind, bool) {
	for k, v := range kindIdentifiers {
		if v == id {
			return k, true
		}
	}
	return KindUnknown, false
}

// Error is a lottery revert without arguments.
type Error struct {
	kind Kind
}

func (e *Error) Error() string {
	return e.kind.String()
}

func (e *Error) Kind() Kind {
	return e.kind
}

// Is matches any lottery error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.kind == e.kind
}

var (
	ErrNotEnoughFee    = &Error{kind: KindNotEnoughFee}
	ErrNotOpen         = &Error{kind: KindNotOpen}
	ErrUpkeepNotNeeded = &Error{kind: KindUpkeepNotNeeded}
	ErrTransferFailed  = &Error{kind: KindTransferFailed}
	ErrUnknownRequest  = &Error{kind: KindUnknownRequest}

	ErrPlayerIndexOutOfRange = errors.New("player index out of range")
	ErrNoPlayers             = errors.New("no players")
	ErrNoRandomWords         = errors.New("no random words")
)

// UpkeepNotNeededError reports the lottery state that made an upkeep
// ineligible. It matches ErrUpkeepNotNeeded.
type UpkeepNotNeededError struct {
	Balance    *big.Int
	NumPlayers uint64
	State      State
}

func (e *UpkeepNotNeededError) Error() string {
	return fmt.Sprintf("%s(%s, %d, %d)", KindUpkeepNotNeeded, e.Balance, e.NumPlayers, uint8(e.State))
}

func (e *UpkeepNotNeededError) Is(target error) bool {
	return target == ErrUpkeepNotNeeded
}

func (e *UpkeepNotNeededError) Kind() Kind {
	return KindUpkeepNotNeeded
}

// KindOf returns the kind of the lottery revert in the error chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var k interface{ Kind() Kind }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// DecodeRevert maps revert data returned by a node for a failed lottery
// call to the errors of this package.
func DecodeRevert(data []byte) error {
	name, args, err := abiutil.DecodeError(lotteryABI, data)
	if err != nil {
		return err
	}
	if name == "OnlyCoordinatorCanFulfill" {
		return fmt.Errorf("%w%v", vrf.ErrOnlyCoordinatorCanFulfill, args)
	}
	if name == "Error" {
		return fmt.Errorf("revert: %v", args[0])
	}
	kind, ok := ParseKind(name)
	if !ok {
		return fmt.Errorf("%w: %s", abiutil.ErrUnknownError, name)
	}
	switch kind {
	case KindUpkeepNotNeeded:
		balance, _ := args[0].(*big.Int)
		players, _ := args[1].(*big.Int)
		state, _ := args[2].(*big.Int)
		if balance == nil || players == nil || state == nil {
			return ErrUpkeepNotNeeded
		}
		return &UpkeepNotNeededError{Balance: balance, NumPlayers: players.Uint64(), State: State(state.Uint64())}
	case KindUnknownRequest:
		return fmt.Errorf("%w(%v)", ErrUnknownRequest, args[0])
	default:
		return &Error{kind: kind}
	}
}
