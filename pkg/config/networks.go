// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

// networkEntry is a single network in a networks file. Unset fields keep
// the value of the built-in network with the same name.
type networkEntry struct {
	ChainID            *int64  `yaml:"chainId"`
	VRFCoordinatorV2   *string `yaml:"vrfCoordinatorV2"`
	SubscriptionID     *uint64 `yaml:"subscriptionId"`
	GasLane            *string `yaml:"gasLane"`
	CallbackGasLimit   *uint32 `yaml:"callbackGasLimit"`
	Interval           *uint64 `yaml:"interval"`
	EntranceFee        *string `yaml:"entranceFee"`
	BlockConfirmations *uint64 `yaml:"blockConfirmations"`
	ExplorerAPIURL     *string `yaml:"explorerApiUrl"`
}

type networksFile struct {
	Networks map[string]networkEntry `yaml:"networks"`
}

// Load reads a YAML networks file and merges it into the registry:
//
//	networks:
//	  sepolia:
//	    subscriptionId: 1234
//	  mainnet-fork:
//	    chainId: 31337
//	    entranceFee: "0.1"
func (r *Registry) Load(rd io.Reader) error {
	var f networksFile
	if err := yaml.NewDecoder(rd).Decode(&f); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode networks: %w", err)
	}
	for name, e := range f.Networks {
		n, ok := r.networks[name]
		if ok {
			n = n.Copy()
		} else {
			n = &Network{
				Name:             name,
				CallbackGasLimit: defaultCallbackGasLimit,
				Interval:         defaultInterval,
			}
		}
		if err := e.apply(n); err != nil {
			return fmt.Errorf("network %s: %w", name, err)
		}
		if n.ChainID == 0 {
			return fmt.Errorf("network %s: chain id not set", name)
		}
		r.Add(n)
	}
	return nil
}

func (e networkEntry) apply(n *Network) error {
	if e.ChainID != nil {
		n.ChainID = *e.ChainID
	}
	if e.VRFCoordinatorV2 != nil {
		if !common.IsHexAddress(*e.VRFCoordinatorV2) {
			return fmt.Errorf("invalid vrf coordinator address %q", *e.VRFCoordinatorV2)
		}
		n.VRFCoordinatorV2 = common.HexToAddress(*e.VRFCoordinatorV2)
	}
	if e.SubscriptionID != nil {
		n.SubscriptionID = *e.SubscriptionID
	}
	if e.GasLane != nil {
		b, err := decodeHash(*e.GasLane)
		if err != nil {
			return err
		}
		n.GasLane = b
	}
	if e.CallbackGasLimit != nil {
		n.CallbackGasLimit = *e.CallbackGasLimit
	}
	if e.Interval != nil {
		n.Interval = *e.Interval
	}
	if e.EntranceFee != nil {
		fee, err := ethunit.ParseEther(*e.EntranceFee)
		if err != nil {
			return err
		}
		n.EntranceFee = fee
	}
	if e.BlockConfirmations != nil {
		n.BlockConfirmations = *e.BlockConfirmations
	}
	if e.ExplorerAPIURL != nil {
		n.ExplorerAPIURL = *e.ExplorerAPIURL
	}
	return nil
}

func decodeHash(s string) (common.Hash, error) {
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid gas lane %q", s)
	}
	return common.BytesToHash(b), nil
}
