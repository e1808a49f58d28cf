// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/devchain"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/node"
	"github.com/vrflottery/raffle/pkg/verify"
)

const (
	defaultArtifact      = "artifacts/contracts/Lottery.sol/Lottery.json"
	defaultBlockTime     = 15 * time.Second
	defaultCompiler      = "v0.8.7+commit.e28d00a7"
	defaultOptimizerRuns = 200
)

func (c *command) initDeployCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the VRF coordinator mock and the lottery",
		Long: `Deploy runs the deployment scripts selected by --tags.

On development networks the coordinator mock is deployed, a subscription is
created and funded and the lottery is added as its consumer, all on an
in-process chain. On public networks the lottery is deployed from its compiled
artifact and verified on the block explorer when an API key is configured.`,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if len(args) > 0 {
				return cmd.Help()
			}

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

			records := deploy.NewRecords(c.fs, c.config.GetString(optionNameDeploymentsDir))
			tags := c.config.GetStringSlice(optionNameTags)

			var result *deploy.Result
			if network.Development {
				result, err = c.deployDev(ctx, logger, network, records, tags)
			} else {
				result, err = c.deployLive(ctx, cmd, logger, network, records, tags)
			}
			if err != nil {
				return err
			}

			if result.Coordinator != (common.Address{}) {
				cmd.Printf("%s: %s\n", deploy.CoordinatorName, result.Coordinator)
			}
			if result.Lottery != (common.Address{}) {
				cmd.Printf("subscription: %d\n", result.SubscriptionID)
				cmd.Printf("%s: %s\n", deploy.LotteryName, result.Lottery)
			}
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setNetworkFlags(cmd)
	c.setChainFlags(cmd)
	cmd.Flags().StringSlice(optionNameTags, []string{deploy.TagAll}, "deployment scripts to run: all, mocks or lottery")
	cmd.Flags().String(optionNameArtifact, defaultArtifact, "compiled lottery artifact deployed on public networks")
	cmd.Flags().String(optionNameEtherscanAPIKey, "", "block explorer API key, verification is skipped when empty")
	cmd.Flags().String(optionNameVerifySource, "", "standard json input of the lottery submitted for verification")
	cmd.Flags().String(optionNameVerifyContract, "contracts/Lottery.sol:Lottery", "fully qualified name of the verified contract")
	cmd.Flags().String(optionNameVerifyCompiler, defaultCompiler, "solc version the artifact was compiled with")
	cmd.Flags().Int(optionNameVerifyOptimizeRuns, defaultOptimizerRuns, "optimizer runs, 0 disables the optimizer")

	c.root.AddCommand(cmd)
	return nil
}

// deployDev deploys on an in-process development chain. The chain lives as
// long as the command, so only the records outlive it.
func (c *command) deployDev(ctx context.Context, logger logging.Logger, network *config.Network, records *deploy.Records, tags []string) (*deploy.Result, error) {
	chain := devchain.New(
		devchain.WithChainID(network.ChainID),
		devchain.WithLogger(logger),
	)
	deployer := chain.Accounts()[0].Address

	return deploy.New(deploy.Options{
		Network: network,
		Backend: deploy.NewDevBackend(chain, deployer),
		Records: records,
		Logger:  logger,
	}).Run(ctx, tags...)
}

func (c *command) deployLive(ctx context.Context, cmd *cobra.Command, logger logging.Logger, network *config.Network, records *deploy.Records, tags []string) (result *deploy.Result, err error) {
	endpoint := c.config.GetString(optionNameRPCURL)
	if endpoint == "" {
		return nil, fmt.Errorf("network %s requires --%s", network.Name, optionNameRPCURL)
	}

	artifact, err := deploy.LoadArtifact(c.fs, c.config.GetString(optionNameArtifact))
	if err != nil {
		return nil, err
	}

	signer, err := c.signer(cmd)
	if err != nil {
		return nil, err
	}

	stateStore, err := node.InitStateStore(logger, filepath.Join(c.config.GetString(optionNameDataDir), network.Name))
	if err != nil {
		return nil, err
	}
	defer stateStore.Close()

	chain, err := node.InitChain(ctx, logger, stateStore, endpoint, signer, c.blockTime())
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := chain.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if chain.ChainID != network.ChainID {
		return nil, fmt.Errorf("rpc endpoint serves chain %d, network %s is chain %d", chain.ChainID, network.Name, network.ChainID)
	}

	backend, err := deploy.NewLiveBackend(chain.TransactionService, artifact, network.Confirmations())
	if err != nil {
		return nil, err
	}

	verifier, err := c.verifier(logger, network)
	if err != nil {
		return nil, err
	}

	o := deploy.Options{
		Network: network,
		Backend: backend,
		Records: records,
		Logger:  logger,
	}
	if verifier != nil {
		o.Verifier = verifier
	}
	return deploy.New(o).Run(ctx, tags...)
}

// verifier returns nil when no explorer API key or explorer is configured.
func (c *command) verifier(logger logging.Logger, network *config.Network) (*verify.Client, error) {
	apiKey := c.config.GetString(optionNameEtherscanAPIKey)
	if apiKey == "" || network.ExplorerAPIURL == "" {
		logger.Info("explorer api key or url not set, skipping verification")
		return nil, nil
	}

	path := c.config.GetString(optionNameVerifySource)
	if path == "" {
		return nil, errors.New("verification requires the contract source, set --" + optionNameVerifySource)
	}
	source, err := afero.ReadFile(c.fs, path)
	if err != nil {
		return nil, fmt.Errorf("verify source: %w", err)
	}

	runs := c.config.GetInt(optionNameVerifyOptimizeRuns)
	return verify.New(verify.Options{
		APIURL: network.ExplorerAPIURL,
		APIKey: apiKey,
		Source: verify.Source{
			ContractName:    c.config.GetString(optionNameVerifyContract),
			SourceCode:      string(source),
			CodeFormat:      "solidity-standard-json-input",
			CompilerVersion: c.config.GetString(optionNameVerifyCompiler),
			Optimization:    runs > 0,
			Runs:            runs,
		},
		Logger: logger,
	})
}

func (c *command) blockTime() time.Duration {
	if d := c.config.GetDuration(optionNameBlockTime); d > 0 {
		return d
	}
	return defaultBlockTime
}
