// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the per network deployment parameters of the
// lottery, keyed by chain id and network name.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"

	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

var (
	// chain ID
	hardhatChainID = int64(31337)
	goerliChainID  = int64(5)
	sepoliaChainID = int64(11155111)
	// vrf coordinator
	goerliVRFCoordinatorAddress  = common.HexToAddress("0x2Ca8E0C643bDe4C2E08ab1fA0da3401AdAD7734D")
	sepoliaVRFCoordinatorAddress = common.HexToAddress("0x8103B0A8A00be2DDC778e6e7eaa21791Cd364625")
	// key hashes
	goerliGasLane  = common.HexToHash("0x79d3d8832d904592c0bf9818b621522c988bb8b0c05cdc3b15aea1b6e8db0c15")
	sepoliaGasLane = common.HexToHash("0x474e34a077df58807dbe9c96d3c009b23b3c6d0cce433e59bbf5b34f823bc56c")
	// block explorers
	goerliExplorerAPI  = "https://api-goerli.etherscan.io/api"
	sepoliaExplorerAPI = "https://api-sepolia.etherscan.io/api"

	defaultEntranceFee      = ethunit.MustParseEther("0.01")
	defaultCallbackGasLimit = uint32(500000)
	defaultInterval         = uint64(30)
)

var (
	ErrUnknownNetwork  = errors.New("unknown network")
	ErrInvalidNetwork  = errors.New("invalid network configuration")
	ErrMissingSubID    = errors.New("subscription id not set")
	ErrMissingVRF      = errors.New("vrf coordinator address not set")
	ErrMissingGasLane  = errors.New("gas lane not set")
	ErrZeroEntranceFee = errors.New("entrance fee must be positive")
)

// DevelopmentChains are the network names on which mocks are deployed and
// the subscription is created by the deployer.
var DevelopmentChains = []string{"hardhat", "localhost"}

// IsDevelopment reports whether the named network is a development chain.
func IsDevelopment(name string) bool {
	for _, n := range DevelopmentChains {
		if n == name {
			return true
		}
	}
	return false
}

// Network is the resolved deployment configuration of one network. It is
// resolved once and passed around by pointer.
type Network struct {
	Name               string
	ChainID            int64
	Development        bool
	VRFCoordinatorV2   common.Address // zero on development chains, the mock address is used
	SubscriptionID     uint64         // zero on development chains, a subscription is created
	GasLane            common.Hash
	CallbackGasLimit   uint32
	Interval           uint64 // seconds
	EntranceFee        *big.Int
	BlockConfirmations uint64
	ExplorerAPIURL     string
}

// Copy returns a deep copy of the network.
func (n *Network) Copy() *Network {
	c := *n
	if n.EntranceFee != nil {
		c.EntranceFee = new(big.Int).Set(n.EntranceFee)
	}
	return &c
}

// Confirmations returns the number of block confirmations to wait for after
// a deployment, defaulting to one.
func (n *Network) Confirmations() uint64 {
	if n.BlockConfirmations == 0 {
		return 1
	}
	return n.BlockConfirmations
}

// Validate checks that all parameters required for a deployment are set.
// All problems are reported together.
func (n *Network) Validate() error {
	var result *multierror.Error
	if n.EntranceFee == nil || n.EntranceFee.Sign() <= 0 {
		result = multierror.Append(result, ErrZeroEntranceFee)
	}
	if n.Interval == 0 {
		result = multierror.Append(result, errors.New("interval must be positive"))
	}
	if n.CallbackGasLimit == 0 {
		result = multierror.Append(result, errors.New("callback gas limit must be positive"))
	}
	if n.GasLane == (common.Hash{}) {
		result = multierror.Append(result, ErrMissingGasLane)
	}
	if !n.Development {
		if n.VRFCoordinatorV2 == (common.Address{}) {
			result = multierror.Append(result, ErrMissingVRF)
		}
		if n.SubscriptionID == 0 {
			result = multierror.Append(result, ErrMissingSubID)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w %s: %v", ErrInvalidNetwork, n.Name, err)
	}
	return nil
}

// GetNetwork returns the built-in configuration for a chain id.
func GetNetwork(chainID int64) (*Network, bool) {
	for _, n := range builtin() {
		if n.ChainID == chainID {
			return n, true
		}
	}
	return nil, false
}

func builtin() []*Network {
	return []*Network{
		{
			Name:             "hardhat",
			ChainID:          hardhatChainID,
			Development:      true,
			GasLane:          sepoliaGasLane,
			CallbackGasLimit: defaultCallbackGasLimit,
			Interval:         defaultInterval,
			EntranceFee:      new(big.Int).Set(defaultEntranceFee),
		},
		{
			Name:             "localhost",
			ChainID:          hardhatChainID,
			Development:      true,
			GasLane:          sepoliaGasLane,
			CallbackGasLimit: defaultCallbackGasLimit,
			Interval:         defaultInterval,
			EntranceFee:      new(big.Int).Set(defaultEntranceFee),
		},
		{
			Name:               "sepolia",
			ChainID:            sepoliaChainID,
			VRFCoordinatorV2:   sepoliaVRFCoordinatorAddress,
			GasLane:            sepoliaGasLane,
			CallbackGasLimit:   defaultCallbackGasLimit,
			Interval:           defaultInterval,
			EntranceFee:        new(big.Int).Set(defaultEntranceFee),
			BlockConfirmations: 6,
			ExplorerAPIURL:     sepoliaExplorerAPI,
		},
		{
			Name:               "goerli",
			ChainID:            goerliChainID,
			VRFCoordinatorV2:   goerliVRFCoordinatorAddress,
			GasLane:            goerliGasLane,
			CallbackGasLimit:   defaultCallbackGasLimit,
			Interval:           defaultInterval,
			EntranceFee:        new(big.Int).Set(defaultEntranceFee),
			BlockConfirmations: 6,
			ExplorerAPIURL:     goerliExplorerAPI,
		},
	}
}

// Registry resolves networks by name or chain id. It starts with the
// built-in networks and can be extended from a networks file.
type Registry struct {
	networks map[string]*Network
}

func NewRegistry() *Registry {
	r := &Registry{networks: make(map[string]*Network)}
	for _, n := range builtin() {
		r.networks[n.Name] = n
	}
	return r
}

// Add registers or replaces a network.
func (r *Registry) Add(n *Network) {
	n.Development = n.Development || IsDevelopment(n.Name)
	r.networks[n.Name] = n.Copy()
}

// Names returns the sorted names of all known networks.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a copy of the network identified by name or by decimal
// chain id without validating it. A chain id shared by several networks
// resolves to the first of them by name.
func (r *Registry) Lookup(nameOrID string) (*Network, error) {
	if n, ok := r.networks[nameOrID]; ok {
		return n.Copy(), nil
	}
	id, err := strconv.ParseInt(nameOrID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, nameOrID)
	}
	for _, name := range r.Names() {
		if n := r.networks[name]; n.ChainID == id {
			return n.Copy(), nil
		}
	}
	return nil, fmt.Errorf("%w: chain id %d", ErrUnknownNetwork, id)
}

// Resolve returns a validated copy of the network identified by name or by
// decimal chain id.
func (r *Registry) Resolve(nameOrID string) (*Network, error) {
	n, err := r.Lookup(nameOrID)
	if err != nil {
		return nil, err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}
