// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package devchain

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const DefaultAccounts = 20

// DefaultBalance is the initial balance of every development account, 10000 ETH.
var DefaultBalance = new(big.Int).Mul(big.NewInt(10000), big.NewInt(1e18))

// Account is a funded development account.
type Account struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// NewAccounts derives n deterministic accounts. The same index always
// yields the same key, so deployments on a fresh chain get the same
// addresses.
func NewAccounts(n int) []Account {
	accounts := make([]Account, n)
	for i := range accounts {
		seed := crypto.Keccak256([]byte(fmt.Sprintf("raffle devchain account %d", i)))
		key, err := crypto.ToECDSA(seed)
		if err != nil {
			// a keccak digest is a valid secp256k1 scalar with overwhelming probability
			panic(err)
		}
		accounts[i] = Account{
			Address: crypto.PubkeyToAddress(key.PublicKey),
			Key:     key,
		}
	}
	return accounts
}
