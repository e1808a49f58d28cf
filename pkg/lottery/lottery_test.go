// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lottery_test

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/devchain"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/util/testutil"
	"github.com/vrflottery/raffle/pkg/vrf"
)

type fixture struct {
	chain       *devchain.Chain
	accounts    []devchain.Account
	deployer    common.Address
	network     *config.Network
	lottery     *lottery.Client
	coordinator *vrf.Client
	fee         *big.Int
	interval    uint64
}

// newFixture deploys the mocks and the lottery on a fresh development chain
// with a frozen clock.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	chain := devchain.New(devchain.WithClock(testutil.FrozenClock(time.Unix(1700000000, 0))))
	accounts := chain.Accounts()
	n, ok := config.GetNetwork(devchain.DefaultChainID)
	if !ok {
		t.Fatal("no development network")
	}

	result, err := deploy.New(deploy.Options{
		Network: n,
		Backend: deploy.NewDevBackend(chain, accounts[0].Address),
		Records: deploy.NewRecords(afero.NewMemMapFs(), ""),
		Logger:  logging.New(io.Discard, logrus.ErrorLevel),
	}).Run(ctx, deploy.TagAll)
	if err != nil {
		t.Fatal(err)
	}

	l, err := lottery.NewClient(chain, result.Lottery)
	if err != nil {
		t.Fatal(err)
	}
	coordinator, err := vrf.NewClient(chain, result.Coordinator)
	if err != nil {
		t.Fatal(err)
	}
	fee, err := l.EntranceFee(ctx)
	if err != nil {
		t.Fatal(err)
	}
	interval, err := l.Interval(ctx)
	if err != nil {
		t.Fatal(err)
	}

	return &fixture{
		chain:       chain,
		accounts:    accounts,
		deployer:    accounts[0].Address,
		network:     n,
		lottery:     l,
		coordinator: coordinator,
		fee:         fee,
		interval:    interval,
	}
}

func (f *fixture) enter(t *testing.T, from common.Address) {
	t.Helper()

	if _, err := f.lottery.Enter(context.Background(), from, f.fee); err != nil {
		t.Fatal(err)
	}
}

// advance moves the chain time by the interval plus delta seconds and mines
// a block.
func (f *fixture) advance(delta int64) {
	f.chain.IncreaseTime(time.Duration(int64(f.interval)+delta) * time.Second)
	f.chain.Mine()
}

func (f *fixture) upkeepNeeded(t *testing.T) bool {
	t.Helper()

	needed, _, err := f.lottery.CheckUpkeep(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return needed
}

func TestConstructor(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	state, err := f.lottery.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state != lottery.StateOpen {
		t.Fatalf("got state %d, want 0", state)
	}
	if f.interval != f.network.Interval {
		t.Fatalf("got interval %d, want %d", f.interval, f.network.Interval)
	}
	if f.fee.Cmp(f.network.EntranceFee) != 0 {
		t.Fatalf("got entrance fee %s, want %s", f.fee, f.network.EntranceFee)
	}
}

func TestEnterLottery(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("reverts when not paid enough", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, err := f.lottery.Enter(ctx, f.deployer, nil)
		if !errors.Is(err, lottery.ErrNotEnoughFee) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrNotEnoughFee)
		}
		if !strings.Contains(err.Error(), "lottery__NotEnoughFee") {
			t.Fatalf("revert reason %q does not name lottery__NotEnoughFee", err)
		}
	})

	t.Run("reverts one wei short of the fee", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		short := new(big.Int).Sub(f.fee, big.NewInt(1))
		_, err := f.lottery.Enter(ctx, f.deployer, short)
		if !errors.Is(err, lottery.ErrNotEnoughFee) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrNotEnoughFee)
		}
		if _, err := f.lottery.Player(ctx, 0); !errors.Is(err, lottery.ErrPlayerIndexOutOfRange) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrPlayerIndexOutOfRange)
		}
	})

	t.Run("accepts exactly the fee", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		if _, err := f.lottery.Enter(ctx, f.deployer, new(big.Int).Set(f.fee)); err != nil {
			t.Fatal(err)
		}
		balance, err := f.chain.BalanceAt(ctx, f.lottery.Address(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if balance.Cmp(f.fee) != 0 {
			t.Fatalf("got balance %s, want %s", balance, f.fee)
		}
	})

	t.Run("records players when they enter", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)

		player, err := f.lottery.Player(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if player != f.deployer {
			t.Fatalf("got player %s, want %s", player, f.deployer)
		}
	})

	t.Run("emits event on entry", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		receipt, err := f.lottery.Enter(ctx, f.deployer, f.fee)
		if err != nil {
			t.Fatal(err)
		}
		if len(receipt.Logs) != 1 {
			t.Fatalf("got %d logs, want 1", len(receipt.Logs))
		}
		ev, err := lottery.ParseLotteryEnter(*receipt.Logs[0])
		if err != nil {
			t.Fatal(err)
		}
		if ev.Player != f.deployer {
			t.Fatalf("got player %s, want %s", ev.Player, f.deployer)
		}
	})

	t.Run("rejects players when the lottery is not open", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)
		if _, _, err := f.lottery.PerformUpkeep(ctx, f.deployer, nil); err != nil {
			t.Fatal(err)
		}

		_, err := f.lottery.Enter(ctx, f.deployer, f.fee)
		if !errors.Is(err, lottery.ErrNotOpen) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrNotOpen)
		}
	})
}

func TestCheckUpkeep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("false without players", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.advance(1)
		if f.upkeepNeeded(t) {
			t.Fatal("upkeep needed without players")
		}
	})

	t.Run("false when not open", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)
		if _, _, err := f.lottery.PerformUpkeep(ctx, f.deployer, []byte{}); err != nil {
			t.Fatal(err)
		}

		state, err := f.lottery.State(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if state != lottery.StateCalculating {
			t.Fatalf("got state %d, want 1", state)
		}
		if f.upkeepNeeded(t) {
			t.Fatal("upkeep needed while calculating")
		}
	})

	t.Run("false before the interval", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(-5)
		if f.upkeepNeeded(t) {
			t.Fatal("upkeep needed before the interval passed")
		}
	})

	t.Run("false without balance", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)
		f.chain.SetBalance(f.lottery.Address(), big.NewInt(0))
		if f.upkeepNeeded(t) {
			t.Fatal("upkeep needed with an empty balance")
		}
	})

	t.Run("interval boundary", func(t *testing.T) {
		t.Parallel()

		for _, tc := range []struct {
			name   string
			offset int64
			want   bool
		}{
			{name: "one second early", offset: -1, want: false},
			{name: "exactly the interval", offset: 0, want: true},
		} {
			f := newFixture(t)
			f.enter(t, f.deployer)
			last, err := f.lottery.LatestTimestamp(ctx)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.chain.SetNextBlockTimestamp(uint64(int64(last+f.interval) + tc.offset)); err != nil {
				t.Fatal(err)
			}
			if got := f.upkeepNeeded(t); got != tc.want {
				t.Errorf("%s: got upkeep needed %v, want %v", tc.name, got, tc.want)
			}
		}
	})

	t.Run("true after the interval with players", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)
		if !f.upkeepNeeded(t) {
			t.Fatal("upkeep not needed")
		}
	})

	t.Run("does not mine", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		before, err := f.chain.BlockNumber(ctx)
		if err != nil {
			t.Fatal(err)
		}
		f.upkeepNeeded(t)
		after, err := f.chain.BlockNumber(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if before != after {
			t.Fatalf("check upkeep mined blocks %d to %d", before, after)
		}
	})
}

func TestPerformUpkeep(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("runs when check upkeep is true", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)
		_, receipt, err := f.lottery.PerformUpkeep(ctx, f.deployer, nil)
		if err != nil {
			t.Fatal(err)
		}
		if receipt == nil {
			t.Fatal("no receipt")
		}
	})

	t.Run("reverts when check upkeep is false", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		_, _, err := f.lottery.PerformUpkeep(ctx, f.deployer, nil)
		if !errors.Is(err, lottery.ErrUpkeepNotNeeded) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrUpkeepNotNeeded)
		}
		var notNeeded *lottery.UpkeepNotNeededError
		if !errors.As(err, &notNeeded) {
			t.Fatalf("got error %T, want %T", err, notNeeded)
		}
		if notNeeded.Balance.Sign() != 0 || notNeeded.NumPlayers != 0 || notNeeded.State != lottery.StateOpen {
			t.Fatalf("unexpected revert arguments %s", notNeeded)
		}
	})

	t.Run("updates the state and emits a request id", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)
		_, receipt, err := f.lottery.PerformUpkeep(ctx, f.deployer, []byte{})
		if err != nil {
			t.Fatal(err)
		}

		if len(receipt.Logs) != 2 {
			t.Fatalf("got %d logs, want 2", len(receipt.Logs))
		}
		if receipt.Logs[0].Topics[0] != vrf.RandomWordsRequestedTopic {
			t.Fatal("first log is not the coordinator request")
		}
		ev, err := lottery.ParseRequestedLotteryWinner(*receipt.Logs[1])
		if err != nil {
			t.Fatal(err)
		}
		if ev.RequestId.Sign() <= 0 {
			t.Fatalf("got request id %s, want positive", ev.RequestId)
		}

		state, err := f.lottery.State(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if state != lottery.StateCalculating {
			t.Fatalf("got state %d, want 1", state)
		}
		pending, err := f.lottery.PendingRequest(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if pending.Cmp(ev.RequestId) != 0 {
			t.Fatalf("got pending request %s, want %s", pending, ev.RequestId)
		}
	})
}

func TestFulfillRandomWords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("only after perform upkeep", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)

		for _, id := range []int64{0, 1} {
			_, err := f.coordinator.FulfillRandomWords(ctx, f.deployer, big.NewInt(id), f.lottery.Address())
			if !errors.Is(err, vrf.ErrNonexistentRequest) {
				t.Fatalf("request %d: got error %v, want %v", id, err, vrf.ErrNonexistentRequest)
			}
			if !strings.Contains(err.Error(), "nonexistent request") {
				t.Fatalf("request %d: revert reason %q", id, err)
			}
		}
	})

	t.Run("picks a winner, resets and sends money", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t)
		f.enter(t, f.deployer)
		f.advance(1)

		const startingIndex, additionalEntrances = 2, 3
		entrants := []common.Address{f.deployer}
		for i := startingIndex; i < startingIndex+additionalEntrances; i++ {
			f.enter(t, f.accounts[i].Address)
			entrants = append(entrants, f.accounts[i].Address)
		}
		startingTimestamp, err := f.lottery.LatestTimestamp(ctx)
		if err != nil {
			t.Fatal(err)
		}

		requestID, receipt, err := f.lottery.PerformUpkeep(ctx, f.deployer, []byte{})
		if err != nil {
			t.Fatal(err)
		}

		startingBalances := make(map[common.Address]*big.Int)
		for _, a := range entrants {
			b, err := f.chain.BalanceAt(ctx, a, nil)
			if err != nil {
				t.Fatal(err)
			}
			startingBalances[a] = b
		}

		winner, err := lottery.WatchWinner(ctx, f.chain, f.lottery.Address(), f.coordinator.Address(), requestID, receipt.BlockNumber)
		if err != nil {
			t.Fatal(err)
		}
		defer winner.Close()

		if _, err := f.coordinator.FulfillRandomWords(ctx, f.deployer, requestID, f.lottery.Address()); err != nil {
			t.Fatal(err)
		}

		awaitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		picked, err := winner.Await(awaitCtx)
		if err != nil {
			t.Fatal(err)
		}

		word := vrf.MockRandomWords(requestID, lottery.NumWords)[0]
		want := entrants[new(big.Int).Mod(word, big.NewInt(int64(len(entrants)))).Int64()]
		if picked != want {
			t.Fatalf("got winner %s, want %s", picked, want)
		}

		recentWinner, err := f.lottery.RecentWinner(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if recentWinner != picked {
			t.Fatalf("got recent winner %s, want %s", recentWinner, picked)
		}
		state, err := f.lottery.State(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if state != lottery.StateOpen {
			t.Fatalf("got state %d, want 0", state)
		}
		if _, err := f.lottery.Player(ctx, 0); !errors.Is(err, lottery.ErrPlayerIndexOutOfRange) {
			t.Fatalf("got error %v, want %v", err, lottery.ErrPlayerIndexOutOfRange)
		}
		endingTimestamp, err := f.lottery.LatestTimestamp(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if endingTimestamp <= startingTimestamp {
			t.Fatalf("timestamp %d did not increase from %d", endingTimestamp, startingTimestamp)
		}

		prize := new(big.Int).Mul(f.fee, big.NewInt(additionalEntrances+1))
		for _, a := range entrants {
			got, err := f.chain.BalanceAt(ctx, a, nil)
			if err != nil {
				t.Fatal(err)
			}
			want := new(big.Int).Set(startingBalances[a])
			if a == picked {
				want.Add(want, prize)
			}
			if got.Cmp(want) != 0 {
				t.Fatalf("account %s: got balance %s, want %s", a, got, want)
			}
		}
		balance, err := f.chain.BalanceAt(ctx, f.lottery.Address(), nil)
		if err != nil {
			t.Fatal(err)
		}
		if balance.Sign() != 0 {
			t.Fatalf("lottery kept %s", balance)
		}
	})
}

// drawRound runs one full round: entry, upkeep and fulfillment.
func (f *fixture) drawRound(ctx context.Context) error {
	if _, err := f.lottery.Enter(ctx, f.deployer, f.fee); err != nil {
		return err
	}
	f.advance(1)
	requestID, _, err := f.lottery.PerformUpkeep(ctx, f.deployer, nil)
	if err != nil {
		return err
	}
	_, err = f.coordinator.FulfillRandomWords(ctx, f.deployer, requestID, f.lottery.Address())
	return err
}

func TestWinnerFutureReleasesChain(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	// every fulfillment is paid from the subscription
	subID, err := f.lottery.SubscriptionID(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.coordinator.FundSubscription(ctx, f.deployer, subID, testutil.Ether(1000)); err != nil {
		t.Fatal(err)
	}

	winner, err := lottery.WatchWinner(ctx, f.chain, f.lottery.Address(), f.coordinator.Address(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.drawRound(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case <-winner.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("winner not resolved")
	}

	// Resolved but never closed. Later rounds emit far more matching logs
	// than the watch buffers, and must still be mined.
	const rounds = 80
	errc := make(chan error, 1)
	go func() {
		for i := 0; i < rounds; i++ {
			if err := f.drawRound(ctx); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(60 * time.Second):
		t.Fatal("rounds blocked behind a resolved winner watch")
	}

	if err := winner.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestLegacyIdentifiersDoNotParse(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		id   string
		want lottery.Kind
		ok   bool
	}{
		{id: "lottery__NotEnoughFee", want: lottery.KindNotEnoughFee, ok: true},
		{id: "lottery__NotOpen", want: lottery.KindNotOpen, ok: true},
		{id: "lottery__UpkeepNotNeeded", want: lottery.KindUpkeepNotNeeded, ok: true},
		{id: "lottery_NotOpen"},
		{id: "lottery_UpkeepNotNeeded"},
	} {
		kind, ok := lottery.ParseKind(tc.id)
		if ok != tc.ok || kind != tc.want {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tc.id, kind, ok, tc.want, tc.ok)
		}
	}
}
