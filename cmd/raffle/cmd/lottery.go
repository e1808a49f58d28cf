// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/vrflottery/raffle/pkg/bigint"
	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/crypto"
	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/lottery"
	"github.com/vrflottery/raffle/pkg/lottery/lotterycontract"
	"github.com/vrflottery/raffle/pkg/node"
	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

const (
	optionNameDebugAPIURL = "debug-api-url"

	debugAPIRequestTimeout = 30 * time.Second
)

var errDevEnter = errors.New("entering on a development network is done by the dev node accounts, use a public network")

func (c *command) initLotteryCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "lottery",
		Short: "Inspect and drive a deployed lottery",
		Long: `Inspect and drive a deployed lottery.

On public networks the lottery is called through --rpc-url at --address, or at
the recorded deployment when no address is given. On development networks the
commands talk to the debug API of a running "raffle dev".`,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the state of the lottery",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			return c.withLottery(cmd, true, func(ctx context.Context, l lotteryBackend) error {
				st, err := l.Status(ctx)
				if err != nil {
					return err
				}
				printStatus(cmd, st)
				return nil
			})
		},
		PreRunE: c.bindFlags,
	}

	enterCmd := &cobra.Command{
		Use:   "enter",
		Short: "Enter the lottery paying the entrance fee",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			return c.withLottery(cmd, false, func(ctx context.Context, l lotteryBackend) error {
				value, err := c.entryValue(ctx, l)
				if err != nil {
					return err
				}
				txHash, err := l.Enter(ctx, value)
				if err != nil {
					return err
				}
				cmd.Printf("entered with %s ETH in transaction %s\n", ethunit.FormatEther(value), txHash)
				return nil
			})
		},
		PreRunE: c.bindFlags,
	}

	upkeepCmd := &cobra.Command{
		Use:   "upkeep",
		Short: "Request a winner when the interval has passed",
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			return c.withLottery(cmd, false, func(ctx context.Context, l lotteryBackend) error {
				requestID, err := l.PerformUpkeep(ctx)
				if errors.Is(err, lottery.ErrUpkeepNotNeeded) {
					cmd.Println("upkeep not needed")
					return nil
				}
				if err != nil {
					return err
				}
				cmd.Printf("requested winner, request id %s\n", requestID)
				return nil
			})
		},
		PreRunE: c.bindFlags,
	}

	for _, sub := range []*cobra.Command{statusCmd, enterCmd, upkeepCmd} {
		c.setNetworkFlags(sub)
		c.setChainFlags(sub)
		sub.Flags().String(optionNameAddress, "", "lottery address, the recorded deployment when empty")
		sub.Flags().String(optionNameDebugAPIURL, "http://localhost:1635", "debug API of the dev node on development networks")
	}
	enterCmd.Flags().String(optionNameValue, "", "amount of ETH sent, the entrance fee when empty")

	cmd.AddCommand(statusCmd, enterCmd, upkeepCmd)
	c.root.AddCommand(cmd)
	return nil
}

func (c *command) bindFlags(cmd *cobra.Command, args []string) error {
	return c.config.BindPFlags(cmd.Flags())
}

// lotteryBackend is the part of a lottery the commands use, served either by
// the contract on a live network or by the debug API of a dev node.
type lotteryBackend interface {
	Status(ctx context.Context) (lottery.Status, error)
	Enter(ctx context.Context, value *big.Int) (common.Hash, error)
	PerformUpkeep(ctx context.Context) (*big.Int, error)
}

func (c *command) withLottery(cmd *cobra.Command, readOnly bool, f func(ctx context.Context, l lotteryBackend) error) (err error) {
	logger, err := c.newLogger(cmd)
	if err != nil {
		return err
	}
	network, err := c.network()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if network.Development {
		return f(ctx, &debugAPILottery{
			url:    strings.TrimSuffix(c.config.GetString(optionNameDebugAPIURL), "/"),
			client: &http.Client{Timeout: debugAPIRequestTimeout},
		})
	}

	l, closer, err := c.contractLottery(ctx, cmd, logger, network, readOnly)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()
	return f(ctx, l)
}

func (c *command) entryValue(ctx context.Context, l lotteryBackend) (*big.Int, error) {
	if v := c.config.GetString(optionNameValue); v != "" {
		return ethunit.ParseEther(v)
	}
	st, err := l.Status(ctx)
	if err != nil {
		return nil, err
	}
	return st.EntranceFee, nil
}

// contractLottery connects to the lottery on a live network. Read only
// commands sign with a throwaway key since calls need no funds.
func (c *command) contractLottery(ctx context.Context, cmd *cobra.Command, logger logging.Logger, network *config.Network, readOnly bool) (*contractLottery, func() error, error) {
	endpoint := c.config.GetString(optionNameRPCURL)
	if endpoint == "" {
		return nil, nil, fmt.Errorf("network %s requires --%s", network.Name, optionNameRPCURL)
	}

	address, err := c.lotteryAddress(network)
	if err != nil {
		return nil, nil, err
	}

	var (
		signer  crypto.Signer
		dataDir string
	)
	if readOnly {
		key, err := crypto.GenerateSecp256k1Key()
		if err != nil {
			return nil, nil, err
		}
		signer = crypto.NewDefaultSigner(key)
	} else {
		signer, err = c.signer(cmd)
		if err != nil {
			return nil, nil, err
		}
		dataDir = filepath.Join(c.config.GetString(optionNameDataDir), network.Name)
	}

	stateStore, err := node.InitStateStore(logger, dataDir)
	if err != nil {
		return nil, nil, err
	}
	chain, err := node.InitChain(ctx, logger, stateStore, endpoint, signer, c.blockTime())
	if err != nil {
		stateStore.Close()
		return nil, nil, err
	}

	closer := func() error {
		var result error
		if err := chain.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		if err := stateStore.Close(); err != nil {
			result = multierror.Append(result, err)
		}
		return result
	}
	return &contractLottery{
		Service: lotterycontract.New(logger, chain.TransactionService, chain.Backend, address),
	}, closer, nil
}

func (c *command) lotteryAddress(network *config.Network) (common.Address, error) {
	if a := c.config.GetString(optionNameAddress); a != "" {
		if !common.IsHexAddress(a) {
			return common.Address{}, fmt.Errorf("invalid lottery address %q", a)
		}
		return common.HexToAddress(a), nil
	}
	records := deploy.NewRecords(c.fs, c.config.GetString(optionNameDeploymentsDir))
	dep, err := records.Load(network.Name, deploy.LotteryName)
	if err != nil {
		return common.Address{}, fmt.Errorf("lottery address: %w", err)
	}
	return dep.Address, nil
}

type contractLottery struct {
	*lotterycontract.Service
}

func (l *contractLottery) Enter(ctx context.Context, value *big.Int) (common.Hash, error) {
	receipt, err := l.Service.Enter(ctx, value)
	if err != nil {
		return common.Hash{}, err
	}
	return receipt.TxHash, nil
}

type debugAPILottery struct {
	url    string
	client *http.Client
}

type debugAPIStatus struct {
	Address              common.Address `json:"address"`
	State                lottery.State  `json:"state"`
	EntranceFee          *bigint.BigInt `json:"entranceFee"`
	Balance              *bigint.BigInt `json:"balance"`
	NumberOfPlayers      uint64         `json:"numberOfPlayers"`
	RecentWinner         common.Address `json:"recentWinner"`
	LatestTimestamp      uint64         `json:"latestTimestamp"`
	Interval             uint64         `json:"interval"`
	SubscriptionID       uint64         `json:"subscriptionId"`
	NumWords             uint32         `json:"numWords"`
	RequestConfirmations uint16         `json:"requestConfirmations"`
	UpkeepNeeded         bool           `json:"upkeepNeeded"`
}

type debugAPIUpkeep struct {
	Performed bool           `json:"performed"`
	RequestID *bigint.BigInt `json:"requestId"`
}

func (l *debugAPILottery) Status(ctx context.Context) (lottery.Status, error) {
	var s debugAPIStatus
	if err := l.do(ctx, http.MethodGet, "/lottery", &s); err != nil {
		return lottery.Status{}, err
	}
	st := lottery.Status{
		Address:              s.Address,
		State:                s.State,
		EntranceFee:          new(big.Int),
		Balance:              new(big.Int),
		NumberOfPlayers:      s.NumberOfPlayers,
		RecentWinner:         s.RecentWinner,
		LatestTimestamp:      s.LatestTimestamp,
		Interval:             s.Interval,
		SubscriptionID:       s.SubscriptionID,
		NumWords:             s.NumWords,
		RequestConfirmations: s.RequestConfirmations,
		UpkeepNeeded:         s.UpkeepNeeded,
	}
	if s.EntranceFee != nil {
		st.EntranceFee = &s.EntranceFee.Int
	}
	if s.Balance != nil {
		st.Balance = &s.Balance.Int
	}
	return st, nil
}

func (l *debugAPILottery) Enter(context.Context, *big.Int) (common.Hash, error) {
	return common.Hash{}, errDevEnter
}

func (l *debugAPILottery) PerformUpkeep(ctx context.Context) (*big.Int, error) {
	var u debugAPIUpkeep
	if err := l.do(ctx, http.MethodPost, "/upkeep", &u); err != nil {
		return nil, err
	}
	if !u.Performed || u.RequestID == nil {
		return nil, lottery.ErrUpkeepNotNeeded
	}
	return &u.RequestID.Int, nil
}

func (l *debugAPILottery) do(ctx context.Context, method, path string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, l.url+path, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("debug api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("debug api %s %s: %s", method, path, e.Message)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func printStatus(cmd *cobra.Command, st lottery.Status) {
	cmd.Printf("address: %s\n", st.Address)
	cmd.Printf("state: %s\n", st.State)
	cmd.Printf("entrance fee: %s ETH\n", ethunit.FormatEther(st.EntranceFee))
	cmd.Printf("balance: %s ETH\n", ethunit.FormatEther(st.Balance))
	cmd.Printf("players: %d\n", st.NumberOfPlayers)
	cmd.Printf("recent winner: %s\n", st.RecentWinner)
	cmd.Printf("latest timestamp: %s\n", time.Unix(int64(st.LatestTimestamp), 0).UTC().Format(time.RFC3339))
	cmd.Printf("interval: %s\n", time.Duration(st.Interval)*time.Second)
	cmd.Printf("subscription: %d\n", st.SubscriptionID)
	cmd.Printf("upkeep needed: %t\n", st.UpkeepNeeded)
}
