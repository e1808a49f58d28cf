// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deploy provisions the lottery on a network: the randomness
// coordinator mock and a funded subscription on development networks, the
// lottery itself everywhere, and explorer verification on public networks.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/util/ethunit"
	"github.com/vrflottery/raffle/pkg/vrf"
)

const (
	TagAll     = "all"
	TagMocks   = "mocks"
	TagLottery = "lottery"

	CoordinatorName = "VRFCoordinatorV2Mock"
	LotteryName     = "lottery"
)

// SubscriptionFundAmount is the LINK a development subscription is funded
// with.
var SubscriptionFundAmount = ethunit.MustParseEther("2")

var (
	ErrUnknownTag   = errors.New("unknown deployment tag")
	ErrNotSupported = errors.New("not supported on this backend")
)

// Backend executes the deployment transactions on a chain.
type Backend interface {
	Deployer() common.Address
	DeployCoordinator(ctx context.Context, baseFee, gasPriceLink *big.Int) (*Deployment, error)
	CreateSubscription(ctx context.Context, coordinator common.Address) (uint64, error)
	FundSubscription(ctx context.Context, coordinator common.Address, subID uint64, amount *big.Int) error
	AddConsumer(ctx context.Context, coordinator common.Address, subID uint64, consumer common.Address) error
	DeployLottery(ctx context.Context, p lottery.Params) (*Deployment, error)
}

// Verifier submits the source of a deployed lottery to a block explorer.
type Verifier interface {
	Verify(ctx context.Context, address common.Address, constructorArgs []byte) error
}

type Options struct {
	Network *config.Network
	Backend Backend
	Records *Records
	// Verifier is used on public networks only. Nil skips verification.
	Verifier Verifier
	Logger   logging.Logger
}

// Result are the addresses and parameters of a deployment run.
type Result struct {
	Coordinator    common.Address
	SubscriptionID uint64
	Lottery        common.Address
	Params         lottery.Params
}

type Deployer struct {
	network  *config.Network
	backend  Backend
	records  *Records
	verifier Verifier
	logger   logging.Logger
}

func New(o Options) *Deployer {
	return &Deployer{
		network:  o.Network,
		backend:  o.Backend,
		records:  o.Records,
		verifier: o.Verifier,
		logger:   o.Logger,
	}
}

// Run runs the deployment scripts selected by the tags, all of them when no
// tag is given.
func (d *Deployer) Run(ctx context.Context, tags ...string) (*Result, error) {
	mocks, lot := len(tags) == 0, len(tags) == 0
	for _, t := range tags {
		switch t {
		case TagAll:
			mocks, lot = true, true
		case TagMocks:
			mocks = true
		case TagLottery:
			lot = true
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownTag, t)
		}
	}

	if err := d.network.Validate(); err != nil {
		return nil, err
	}

	result := new(Result)
	if mocks {
		if err := d.deployMocks(ctx, result); err != nil {
			return nil, fmt.Errorf("deploy mocks: %w", err)
		}
	}
	if lot {
		if err := d.deployLottery(ctx, result); err != nil {
			return nil, fmt.Errorf("deploy lottery: %w", err)
		}
	}
	return result, nil
}

func (d *Deployer) deployMocks(ctx context.Context, result *Result) error {
	if !d.network.Development {
		return nil
	}
	d.logger.Info("Local network detected. Deploying mocks")

	dep, err := d.backend.DeployCoordinator(ctx, vrf.BaseFee, vrf.GasPriceLink)
	if err != nil {
		return err
	}
	dep.Args = []string{vrf.BaseFee.String(), vrf.GasPriceLink.String()}
	if err := d.save(CoordinatorName, dep); err != nil {
		return err
	}
	result.Coordinator = dep.Address

	d.logger.Infof("deployed %s at %s", CoordinatorName, dep.Address)
	d.logger.Info("Mocks deployed")
	return nil
}

func (d *Deployer) deployLottery(ctx context.Context, result *Result) error {
	var (
		coordinator common.Address
		subID       uint64
	)
	if d.network.Development {
		coordinator = result.Coordinator
		if coordinator == (common.Address{}) {
			dep, err := d.records.Load(d.network.Name, CoordinatorName)
			if err != nil {
				return err
			}
			coordinator = dep.Address
		}

		id, err := d.backend.CreateSubscription(ctx, coordinator)
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		if err := d.backend.FundSubscription(ctx, coordinator, id, SubscriptionFundAmount); err != nil {
			return fmt.Errorf("fund subscription %d: %w", id, err)
		}
		subID = id
		d.logger.Infof("created subscription %d funded with %s LINK", id, ethunit.FormatEther(SubscriptionFundAmount))
	}

	p := LotteryParams(d.network, coordinator, subID)
	dep, err := d.backend.DeployLottery(ctx, p)
	if err != nil {
		return err
	}
	dep.Args = ArgStrings(p)
	if err := d.save(LotteryName, dep); err != nil {
		return err
	}
	d.logger.Infof("deployed %s at %s", LotteryName, dep.Address)

	if d.network.Development {
		if err := d.backend.AddConsumer(ctx, p.VRFCoordinatorV2, p.SubscriptionID, dep.Address); err != nil {
			return fmt.Errorf("add consumer: %w", err)
		}
	}

	result.Coordinator = p.VRFCoordinatorV2
	result.SubscriptionID = p.SubscriptionID
	result.Lottery = dep.Address
	result.Params = p

	if !d.network.Development && d.verifier != nil {
		d.logger.Info("Verifying...")
		args, err := ConstructorArgs(p)
		if err != nil {
			return err
		}
		if err := d.verifier.Verify(ctx, dep.Address, args); err != nil {
			return fmt.Errorf("verify: %w", err)
		}
	}
	d.logger.Info("----------------------------------------------------")
	return nil
}

func (d *Deployer) save(name string, dep *Deployment) error {
	if d.records == nil {
		return nil
	}
	if err := d.records.Save(d.network.Name, d.network.ChainID, name, dep); err != nil {
		return fmt.Errorf("record %s: %w", name, err)
	}
	return nil
}
