// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package abiutil_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vrflottery/raffle/pkg/util/abiutil"
)

const testABI = `[
	{"type":"event","name":"Entered","anonymous":false,"inputs":[{"name":"player","type":"address","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"error","name":"Closed","inputs":[]},
	{"type":"error","name":"TooLow","inputs":[{"name":"have","type":"uint256"},{"name":"want","type":"uint256"}]}
]`

var testContract = abiutil.MustParseABI(testABI)

func TestMustParseABIPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	abiutil.MustParseABI("{")
}

func TestUnpackLog(t *testing.T) {
	t.Parallel()

	player := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	data, err := testContract.Events["Entered"].Inputs.NonIndexed().Pack(big.NewInt(42))
	if err != nil {
		t.Fatal(err)
	}
	log := types.Log{
		Topics: []common.Hash{testContract.Events["Entered"].ID, common.BytesToHash(player.Bytes())},
		Data:   data,
	}

	var ev struct {
		Player common.Address
		Amount *big.Int
	}
	if err := abiutil.UnpackLog(testContract, &ev, "Entered", log); err != nil {
		t.Fatal(err)
	}
	if ev.Player != player || ev.Amount.Int64() != 42 {
		t.Fatalf("got %+v", ev)
	}

	log.Topics[0] = common.Hash{}
	if err := abiutil.UnpackLog(testContract, &ev, "Entered", log); !errors.Is(err, abiutil.ErrUnexpectedEvent) {
		t.Fatalf("got %v, want %v", err, abiutil.ErrUnexpectedEvent)
	}
}

func TestDecodeError(t *testing.T) {
	t.Parallel()

	data, err := abiutil.EncodeError(testContract, "TooLow", big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	if want := crypto.Keccak256([]byte("TooLow(uint256,uint256)"))[:4]; string(data[:4]) != string(want) {
		t.Fatalf("got selector %x, want %x", data[:4], want)
	}
	name, args, err := abiutil.DecodeError(testContract, data)
	if err != nil {
		t.Fatal(err)
	}
	if name != "TooLow" || len(args) != 2 || args[1].(*big.Int).Int64() != 2 {
		t.Fatalf("got %s %v", name, args)
	}

	closed, err := abiutil.EncodeError(testContract, "Closed")
	if err != nil {
		t.Fatal(err)
	}
	if name, _, err := abiutil.DecodeError(testContract, closed); err != nil || name != "Closed" {
		t.Fatalf("got %s %v", name, err)
	}

	if _, _, err := abiutil.DecodeError(testContract, []byte{1, 2, 3, 4}); !errors.Is(err, abiutil.ErrUnknownError) {
		t.Fatalf("got %v, want %v", err, abiutil.ErrUnknownError)
	}
	if _, err := abiutil.EncodeError(testContract, "Missing"); !errors.Is(err, abiutil.ErrUnknownError) {
		t.Fatalf("got %v, want %v", err, abiutil.ErrUnknownError)
	}
}
