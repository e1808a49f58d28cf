// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/jsonhttp/jsonhttptest"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/node"
	"github.com/vrflottery/raffle/pkg/util/testutil"
)

// yearly keeps the keeper out of the way of upkeeps requested by the test
const yearly = "0 0 0 1 1 *"

func newDevNode(t *testing.T, o *node.DevOptions) *node.DevNode {
	t.Helper()

	n, err := node.NewDevNode(context.Background(), logging.New(io.Discard, logrus.ErrorLevel), o)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDevNode(t *testing.T) {
	fs := afero.NewMemMapFs()
	n := newDevNode(t, &node.DevOptions{
		DebugAPIAddr:   "127.0.0.1:0",
		DeploymentsFs:  fs,
		KeeperSchedule: yearly,
		Clock:          testutil.FrozenClock(time.Unix(1700000000, 0)),
	})
	client := &http.Client{}
	t.Cleanup(func() {
		client.CloseIdleConnections()
		if err := n.Shutdown(); err != nil {
			t.Fatal(err)
		}
	})

	url := "http://" + n.DebugAPIAddr().String()
	ctx := context.Background()
	chain := n.Chain()
	accounts := chain.Accounts()
	l := n.Lottery()

	fee, err := l.EntranceFee(ctx)
	if err != nil {
		t.Fatal(err)
	}
	players := []common.Address{accounts[1].Address, accounts[2].Address}
	for _, p := range players {
		if _, err := l.Enter(ctx, p, fee); err != nil {
			t.Fatal(err)
		}
	}

	future, err := lottery.WatchWinner(ctx, chain, l.Address(), n.Deployment().Coordinator, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer future.Close()

	interval, err := l.Interval(ctx)
	if err != nil {
		t.Fatal(err)
	}
	chain.IncreaseTime(time.Duration(interval+1) * time.Second)
	chain.Mine()

	var perform struct {
		Performed bool   `json:"performed"`
		RequestID string `json:"requestId"`
	}
	jsonhttptest.Request(t, client, http.MethodPost, url+"/upkeep", http.StatusOK,
		jsonhttptest.WithUnmarshalResponse(&perform),
	)
	if !perform.Performed || perform.RequestID != "1" {
		t.Fatalf("got upkeep %+v, want performed request 1", perform)
	}

	// the oracle fulfills the request on its own
	awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	winner, err := future.Await(awaitCtx)
	if err != nil {
		t.Fatal(err)
	}
	if winner != players[0] && winner != players[1] {
		t.Fatalf("winner %s is not a player", winner)
	}

	var status struct {
		State           string         `json:"state"`
		RecentWinner    common.Address `json:"recentWinner"`
		NumberOfPlayers uint64         `json:"numberOfPlayers"`
		Balance         string         `json:"balance"`
	}
	jsonhttptest.Request(t, client, http.MethodGet, url+"/lottery", http.StatusOK,
		jsonhttptest.WithUnmarshalResponse(&status),
	)
	if status.State != lottery.StateOpen.String() || status.RecentWinner != winner || status.NumberOfPlayers != 0 || status.Balance != "0" {
		t.Fatalf("got lottery status %+v after the draw", status)
	}

	// records are written to the deployments file system
	network, _ := config.GetNetwork(31337)
	records := deploy.NewRecords(fs, "")
	d, err := records.Load(network.Name, deploy.LotteryName)
	if err != nil {
		t.Fatal(err)
	}
	if d.Address != l.Address() {
		t.Fatalf("got recorded lottery %s, want %s", d.Address, l.Address())
	}
}

func TestDevNodeKeeper(t *testing.T) {
	clock := time.Unix(1700000000, 0)
	n := newDevNode(t, &node.DevOptions{
		KeeperSchedule: "@every 1s",
		Clock:          testutil.FrozenClock(clock),
	})
	t.Cleanup(func() {
		if err := n.Shutdown(); err != nil {
			t.Fatal(err)
		}
	})
	if n.DebugAPIAddr() != nil {
		t.Fatalf("got debug api address %s with the api disabled", n.DebugAPIAddr())
	}

	ctx := context.Background()
	chain := n.Chain()
	l := n.Lottery()
	player := chain.Accounts()[3].Address

	fee, err := l.EntranceFee(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.Enter(ctx, player, fee); err != nil {
		t.Fatal(err)
	}
	future, err := lottery.WatchWinner(ctx, chain, l.Address(), n.Deployment().Coordinator, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer future.Close()

	interval, err := l.Interval(ctx)
	if err != nil {
		t.Fatal(err)
	}
	chain.IncreaseTime(time.Duration(interval+1) * time.Second)
	chain.Mine()

	awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	winner, err := future.Await(awaitCtx)
	if err != nil {
		t.Fatal(err)
	}
	if winner != player {
		t.Fatalf("got winner %s, want the only player %s", winner, player)
	}
	if n.Keeper().Stats().Performs == 0 {
		t.Fatal("keeper performed no upkeep")
	}
}

func TestDevNodeShutdown(t *testing.T) {
	n := newDevNode(t, &node.DevOptions{KeeperSchedule: yearly})

	if err := n.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := n.Shutdown(); !errors.Is(err, node.ErrShutdownInProgress) {
		t.Fatalf("got error %v, want %v", err, node.ErrShutdownInProgress)
	}
}

func TestDevNodeRejectsLiveNetwork(t *testing.T) {
	sepolia, ok := config.GetNetwork(11155111)
	if !ok {
		t.Fatal("no sepolia network")
	}
	_, err := node.NewDevNode(context.Background(), logging.New(io.Discard, logrus.ErrorLevel), &node.DevOptions{
		Network: sepolia,
	})
	if err == nil {
		t.Fatal("expected a live network to be rejected")
	}
}
