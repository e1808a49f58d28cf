// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package vrf

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vrflottery/raffle/pkg/util/abiutil"
)

// Reverts of the coordinator and of consumers. The messages are the
// identifiers of the corresponding contract errors, except for the
// nonexistent request revert which is a plain revert reason.
var (
	ErrNonexistentRequest        = errors.New("nonexistent request")
	ErrInvalidSubscription       = errors.New("InvalidSubscription")
	ErrInsufficientBalance       = errors.New("InsufficientBalance")
	ErrMustBeSubOwner            = errors.New("MustBeSubOwner")
	ErrTooManyConsumers          = errors.New("TooManyConsumers")
	ErrInvalidConsumer           = errors.New("InvalidConsumer")
	ErrInvalidRandomWords        = errors.New("InvalidRandomWords")
	ErrNumWordsTooBig            = errors.New("NumWordsTooBig")
	ErrOnlyCoordinatorCanFulfill = errors.New("OnlyCoordinatorCanFulfill")
)

var errorsByName = map[string]error{
	"InvalidSubscription":       ErrInvalidSubscription,
	"InsufficientBalance":       ErrInsufficientBalance,
	"MustBeSubOwner":            ErrMustBeSubOwner,
	"TooManyConsumers":          ErrTooManyConsumers,
	"InvalidConsumer":           ErrInvalidConsumer,
	"InvalidRandomWords":        ErrInvalidRandomWords,
	"NumWordsTooBig":            ErrNumWordsTooBig,
	"OnlyCoordinatorCanFulfill": ErrOnlyCoordinatorCanFulfill,
}

func mustBeSubOwner(owner common.Address) error {
	return fmt.Errorf("%w(%s)", ErrMustBeSubOwner, owner)
}

func onlyCoordinatorCanFulfill(have, want common.Address) error {
	return fmt.Errorf("%w(%s, %s)", ErrOnlyCoordinatorCanFulfill, have, want)
}

// DecodeRevert maps coordinator revert data, as returned by a node for a
// failed call, to the errors of this package.
func DecodeRevert(data []byte) error {
	name, args, err := abiutil.DecodeError(coordinatorABI, data)
	if err != nil {
		return err
	}
	if name == "Error" {
		if reason, _ := args[0].(string); reason == ErrNonexistentRequest.Error() {
			return ErrNonexistentRequest
		}
		return fmt.Errorf("revert: %v", args[0])
	}
	e := errorsByName[name]
	if len(args) > 0 {
		return fmt.Errorf("%w%v", e, args)
	}
	return e
}
