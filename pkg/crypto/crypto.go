// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidPrivateKey = errors.New("invalid private key")

// GenerateSecp256k1Key generates an ECDSA private key using
// secp256k1 elliptic curve.
func GenerateSecp256k1Key() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// EncodeSecp256k1PrivateKey encodes raw ECDSA private key.
func EncodeSecp256k1PrivateKey(k *ecdsa.PrivateKey) []byte {
	return crypto.FromECDSA(k)
}

// DecodeSecp256k1PrivateKey decodes raw ECDSA private key.
func DecodeSecp256k1PrivateKey(data []byte) (*ecdsa.PrivateKey, error) {
	if l := len(data); l != 32 {
		return nil, fmt.Errorf("secp256k1 data size %d expected %d", l, 32)
	}
	return crypto.ToECDSA(data)
}

// ParsePrivateKey decodes a hex encoded private key, with or without the 0x
// prefix, as found in PRIVATE_KEY environment variables.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	key, err := crypto.HexToECDSA(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return key, nil
}

// NewEthereumAddress returns the ethereum address of the public key.
func NewEthereumAddress(p ecdsa.PublicKey) (common.Address, error) {
	if p.X == nil || p.Y == nil {
		return common.Address{}, errors.New("invalid public key")
	}
	return crypto.PubkeyToAddress(p), nil
}
