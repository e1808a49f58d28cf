// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package keeper automates lottery upkeeps: on every scheduled tick it
// checks whether an upkeep is needed and performs it.
package keeper

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"
	"resenje.org/singleflight"

	"github.com/vrflottery/raffle/pkg/logging"
)

// DefaultSchedule runs an upkeep check every second.
const DefaultSchedule = "@every 1s"

const upkeepKey = "upkeep"

var ErrClosed = errors.New("keeper closed")

// Upkeeper is a contract that can be kept.
type Upkeeper interface {
	CheckUpkeep(ctx context.Context) (bool, error)
	PerformUpkeep(ctx context.Context) (*big.Int, error)
}

type Options struct {
	// Schedule is a cron spec, descriptors such as "@every 5s" included.
	Schedule string
	// Timeout bounds a single check and perform round.
	Timeout time.Duration
}

type Keeper struct {
	logger   logging.Logger
	metrics  metrics
	upkeeper Upkeeper
	timeout  time.Duration
	cron     *cron.Cron
	group    singleflight.Group[string, *big.Int]
	closed   atomic.Bool
	checks   atomic.Uint64
	performs atomic.Uint64
	quit     chan struct{}
}

// Stats are the counters of a keeper since it was created.
type Stats struct {
	Checks   uint64 `json:"checks"`
	Performs uint64 `json:"performs"`
}

func New(upkeeper Upkeeper, logger logging.Logger, o Options) (*Keeper, error) {
	if o.Schedule == "" {
		o.Schedule = DefaultSchedule
	}
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
	k := &Keeper{
		logger:   logger,
		metrics:  newMetrics(),
		upkeeper: upkeeper,
		timeout:  o.Timeout,
		cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		quit:     make(chan struct{}),
	}
	if _, err := k.cron.AddFunc(o.Schedule, k.tick); err != nil {
		return nil, fmt.Errorf("keeper schedule %q: %w", o.Schedule, err)
	}
	return k, nil
}

// Start runs the schedule in the background.
func (k *Keeper) Start() {
	k.cron.Start()
}

func (k *Keeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	go func() {
		select {
		case <-k.quit:
			cancel()
		case <-ctx.Done():
		}
	}()

	requestID, err := k.Upkeep(ctx)
	switch {
	case errors.Is(err, ErrClosed), errors.Is(err, context.Canceled):
	case err != nil:
		k.logger.Errorf("keeper: %v", err)
	case requestID != nil:
		k.logger.Infof("keeper: upkeep performed, randomness request %s", requestID)
	}
}

// Upkeep checks the upkeeper and performs an upkeep when one is needed. It
// returns the randomness request id, or nil when no upkeep was needed.
// Concurrent calls share a single round.
func (k *Keeper) Upkeep(ctx context.Context) (*big.Int, error) {
	if k.closed.Load() {
		return nil, ErrClosed
	}
	requestID, _, err := k.group.Do(ctx, upkeepKey, func(ctx context.Context) (*big.Int, error) {
		k.checks.Inc()
		k.metrics.Checks.Inc()
		needed, err := k.upkeeper.CheckUpkeep(ctx)
		if err != nil {
			k.metrics.Errors.Inc()
			return nil, fmt.Errorf("check upkeep: %w", err)
		}
		if !needed {
			k.logger.Tracef("keeper: upkeep not needed")
			return nil, nil
		}
		requestID, err := k.upkeeper.PerformUpkeep(ctx)
		if err != nil {
			k.metrics.Errors.Inc()
			return nil, fmt.Errorf("perform upkeep: %w", err)
		}
		k.performs.Inc()
		k.metrics.Performs.Inc()
		return requestID, nil
	})
	return requestID, err
}

func (k *Keeper) Stats() Stats {
	return Stats{
		Checks:   k.checks.Load(),
		Performs: k.performs.Load(),
	}
}

// Close stops the schedule and waits for a running round to finish.
func (k *Keeper) Close() error {
	if !k.closed.CAS(false, true) {
		return nil
	}
	close(k.quit)
	<-k.cron.Stop().Done()
	return nil
}
