// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package debugapi exposes the HTTP API of a development node: health,
// metrics, lottery state, upkeep control, recorded deployments and a
// websocket stream of lottery events.
package debugapi

import (
	"context"
	"math/big"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/keeper"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/util/syncutil"
)

// Lottery is the read side of a deployed lottery.
type Lottery interface {
	Address() common.Address
	Status(ctx context.Context) (lottery.Status, error)
	Players(ctx context.Context) ([]common.Address, error)
}

// Keeper runs upkeeps on demand.
type Keeper interface {
	Upkeep(ctx context.Context) (*big.Int, error)
	Stats() keeper.Stats
}

type Options struct {
	Lottery Lottery
	Keeper  Keeper
	// Events is the log source streamed on /events. Nil disables the
	// stream.
	Events             ethereum.LogFilterer
	Coordinator        common.Address
	Records            *deploy.Records
	Network            string
	CORSAllowedOrigins []string
	Logger             logging.Logger
}

// Service implements http.Handler interface to be used in HTTP server.
type Service struct {
	lottery            Lottery
	keeper             Keeper
	events             ethereum.LogFilterer
	coordinator        common.Address
	records            *deploy.Records
	network            string
	corsAllowedOrigins []string
	logger             logging.Logger
	metricsRegistry    *prometheus.Registry
	handler            http.Handler

	wsMu sync.Mutex
	wsWg sync.WaitGroup
	quit *syncutil.Signaler
}

func New(o Options) *Service {
	s := &Service{
		lottery:            o.Lottery,
		keeper:             o.Keeper,
		events:             o.Events,
		coordinator:        o.Coordinator,
		records:            o.Records,
		network:            o.Network,
		corsAllowedOrigins: o.CORSAllowedOrigins,
		logger:             o.Logger,
		metricsRegistry:    newMetricsRegistry(),
		quit:               syncutil.NewSignaler(),
	}
	s.setRouter(s.newRouter())
	return s
}

// ServeHTTP implements http.Handler interface.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Close closes the open event streams and waits for them to finish.
func (s *Service) Close() error {
	s.wsMu.Lock()
	s.quit.Signal()
	s.wsMu.Unlock()
	s.wsWg.Wait()
	return nil
}
