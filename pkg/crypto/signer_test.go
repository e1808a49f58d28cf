// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crypto_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vrflottery/raffle/pkg/crypto"
)

func TestDefaultSigner(t *testing.T) {
	key, err := crypto.GenerateSecp256k1Key()
	if err != nil {
		t.Fatal(err)
	}
	signer := crypto.NewDefaultSigner(key)

	signature, err := signer.Sign([]byte("raffle"))
	if err != nil {
		t.Fatal(err)
	}
	if len(signature) != 65 {
		t.Fatalf("got signature length %d, want 65", len(signature))
	}
	if v := signature[64]; v != 27 && v != 28 {
		t.Fatalf("got recovery id %d", v)
	}

	pub, err := signer.PublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if pub.X.Cmp(key.PublicKey.X) != 0 || pub.Y.Cmp(key.PublicKey.Y) != 0 {
		t.Fatal("public key mismatch")
	}
}

func TestDefaultSignerSignTx(t *testing.T) {
	key, err := crypto.GenerateSecp256k1Key()
	if err != nil {
		t.Fatal(err)
	}
	signer := crypto.NewDefaultSigner(key)
	address, err := signer.EthereumAddress()
	if err != nil {
		t.Fatal(err)
	}

	chainID := big.NewInt(11155111)
	tx := types.NewTransaction(3, common.HexToAddress("0xabcd"), big.NewInt(10), 21000, big.NewInt(1e9), nil)

	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		t.Fatal(err)
	}
	if signed.ChainId().Cmp(chainID) != 0 {
		t.Fatalf("got chain id %s, want %s", signed.ChainId(), chainID)
	}
	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatal(err)
	}
	if sender != address {
		t.Fatalf("got sender %s, want %s", sender, address)
	}
}
