// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package node wires the components of a raffle node: a self-driving
// development node and the connection to live networks.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/crypto"
	"github.com/vrflottery/raffle/pkg/debugapi"
	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/devchain"
	"github.com/vrflottery/raffle/pkg/keeper"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/vrf"
)

var ErrShutdownInProgress = errors.New("shutdown in progress")

type DevOptions struct {
	// Network is the development network the contracts are deployed with.
	// Defaults to the hardhat network.
	Network *config.Network
	// DebugAPIAddr is the listen address of the debug API. Empty disables
	// the API.
	DebugAPIAddr       string
	CORSAllowedOrigins []string
	// DeploymentsFs receives the deployment records. Defaults to an in-memory
	// file system.
	DeploymentsFs    afero.Fs
	DeploymentsDir   string
	Accounts         int
	KeeperSchedule   string
	KeeperTimeout    time.Duration
	FulfillmentDelay time.Duration
	// Clock drives block timestamps. Defaults to the wall clock.
	Clock func() time.Time
}

// DevNode is a development chain with the mocks and the lottery deployed,
// an oracle fulfilling randomness requests and a keeper performing upkeeps.
type DevNode struct {
	chain     *devchain.Chain
	result    *deploy.Result
	lottery   *lottery.Client
	metrics   nodeMetrics
	keeper    *keeper.Keeper
	fulfiller *vrf.Fulfiller

	errorLogWriter  io.Writer
	debugAPIService *debugapi.Service
	debugAPIServer  *http.Server
	debugAPIAddr    net.Addr

	shutdownInProgress bool
	shutdownMutex      sync.Mutex
}

func NewDevNode(ctx context.Context, logger logging.Logger, o *DevOptions) (n *DevNode, err error) {
	network := o.Network
	if network == nil {
		var ok bool
		network, ok = config.GetNetwork(devchain.DefaultChainID)
		if !ok {
			return nil, errors.New("no development network")
		}
	}
	if !network.Development {
		return nil, fmt.Errorf("network %s is not a development network", network.Name)
	}
	fs := o.DeploymentsFs
	if fs == nil {
		fs = afero.NewMemMapFs()
	}

	chainOpts := []devchain.Option{
		devchain.WithChainID(network.ChainID),
		devchain.WithLogger(logger),
	}
	if o.Accounts > 0 {
		chainOpts = append(chainOpts, devchain.WithAccounts(o.Accounts, devchain.DefaultBalance))
	}
	if o.Clock != nil {
		chainOpts = append(chainOpts, devchain.WithClock(o.Clock))
	}
	chain := devchain.New(chainOpts...)
	deployer := chain.Accounts()[0].Address

	n = &DevNode{
		chain:          chain,
		metrics:        newMetrics(),
		errorLogWriter: logger.WriterLevel(logrus.ErrorLevel),
	}
	defer func() {
		if err != nil {
			if shutdownErr := n.Shutdown(); shutdownErr != nil {
				logger.Debugf("dev node: shutdown after failed start: %v", shutdownErr)
			}
			n = nil
		}
	}()

	records := deploy.NewRecords(fs, o.DeploymentsDir)
	start := time.Now()
	n.result, err = deploy.New(deploy.Options{
		Network: network,
		Backend: deploy.NewDevBackend(chain, deployer),
		Records: records,
		Logger:  logger,
	}).Run(ctx, deploy.TagAll)
	if err != nil {
		return n, fmt.Errorf("deploy: %w", err)
	}
	n.metrics.DeployDuration.Observe(time.Since(start).Seconds())

	n.lottery, err = lottery.NewClient(chain, n.result.Lottery)
	if err != nil {
		return n, err
	}
	coordinator, err := vrf.NewClient(chain, n.result.Coordinator)
	if err != nil {
		return n, err
	}

	n.fulfiller, err = vrf.NewFulfiller(coordinator, chain, deployer, logger,
		vrf.WithFulfillmentDelay(o.FulfillmentDelay),
		vrf.WithSubscriptionTopUp(deploy.SubscriptionFundAmount),
	)
	if err != nil {
		return n, fmt.Errorf("vrf fulfiller: %w", err)
	}

	n.keeper, err = keeper.New(n.lottery.AsUpkeep(deployer), logger, keeper.Options{
		Schedule: o.KeeperSchedule,
		Timeout:  o.KeeperTimeout,
	})
	if err != nil {
		return n, err
	}
	n.keeper.Start()

	if o.DebugAPIAddr != "" {
		n.debugAPIService = debugapi.New(debugapi.Options{
			Lottery:            n.lottery,
			Keeper:             n.keeper,
			Events:             chain,
			Coordinator:        n.result.Coordinator,
			Records:            records,
			Network:            network.Name,
			CORSAllowedOrigins: o.CORSAllowedOrigins,
			Logger:             logger,
		})
		n.debugAPIService.MustRegisterMetrics(logger.Metrics()...)
		n.debugAPIService.MustRegisterMetrics(n.fulfiller.Metrics()...)
		n.debugAPIService.MustRegisterMetrics(n.keeper.Metrics()...)
		n.debugAPIService.MustRegisterMetrics(Metrics(n.metrics)...)

		debugAPIListener, err := net.Listen("tcp", o.DebugAPIAddr)
		if err != nil {
			return n, fmt.Errorf("debug api listener: %w", err)
		}
		n.debugAPIAddr = debugAPIListener.Addr()

		debugAPIServer := &http.Server{
			IdleTimeout:       30 * time.Second,
			ReadHeaderTimeout: 3 * time.Second,
			Handler:           n.debugAPIService,
			ErrorLog:          log.New(n.errorLogWriter, "", 0),
		}

		go func() {
			logger.Infof("debug api address: %s", debugAPIListener.Addr())

			if err := debugAPIServer.Serve(debugAPIListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Debugf("debug api server: %v", err)
				logger.Error("unable to serve debug api")
			}
		}()

		n.debugAPIServer = debugAPIServer
	}

	logger.Infof("dev node: lottery %s, coordinator %s, subscription %d", n.result.Lottery, n.result.Coordinator, n.result.SubscriptionID)
	for i, a := range chain.Accounts() {
		logger.Debugf("dev node: account #%d %s (%x)", i, a.Address, crypto.EncodeSecp256k1PrivateKey(a.Key))
	}

	return n, nil
}

func (n *DevNode) Chain() *devchain.Chain {
	return n.chain
}

func (n *DevNode) Deployment() *deploy.Result {
	return n.result
}

func (n *DevNode) Lottery() *lottery.Client {
	return n.lottery
}

func (n *DevNode) Keeper() *keeper.Keeper {
	return n.keeper
}

// DebugAPIAddr returns the address the debug API listens on, or nil when
// the API is disabled.
func (n *DevNode) DebugAPIAddr() net.Addr {
	return n.debugAPIAddr
}

func (n *DevNode) Shutdown() error {
	var mErr error

	// if a shutdown is already in process, return here
	n.shutdownMutex.Lock()
	if n.shutdownInProgress {
		n.shutdownMutex.Unlock()
		return ErrShutdownInProgress
	}
	n.shutdownInProgress = true
	n.shutdownMutex.Unlock()

	// tryClose is a convenient closure which decrease
	// repetitive io.Closer tryClose procedure.
	tryClose := func(c io.Closer, errMsg string) {
		if c == nil {
			return
		}
		if err := c.Close(); err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("%s: %w", errMsg, err))
		}
	}

	if n.debugAPIService != nil {
		tryClose(n.debugAPIService, "debug api")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var eg errgroup.Group
	if n.debugAPIServer != nil {
		eg.Go(func() error {
			if err := n.debugAPIServer.Shutdown(ctx); err != nil {
				return fmt.Errorf("debug api server: %w", err)
			}
			return nil
		})
	}
	if n.keeper != nil {
		eg.Go(func() error {
			if err := n.keeper.Close(); err != nil {
				return fmt.Errorf("keeper: %w", err)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	if n.fulfiller != nil {
		tryClose(n.fulfiller, "vrf fulfiller")
	}

	if c, ok := n.errorLogWriter.(io.Closer); ok {
		tryClose(c, "error log writer")
	}

	return mErr
}
