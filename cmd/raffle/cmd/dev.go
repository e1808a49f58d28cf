// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/vrflottery/raffle"
	"github.com/vrflottery/raffle/pkg/crypto"
	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/keeper"
	"github.com/vrflottery/raffle/pkg/node"
	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

func (c *command) initDevCmd() (err error) {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Run a development chain with the lottery, an oracle and a keeper",
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

			// Wait for termination or interrupt signals.
			// We want to clean up things at the end.
			interruptChannel := make(chan os.Signal, 1)
			signal.Notify(interruptChannel, c.shutdownSigs...)
			defer signal.Stop(interruptChannel)

			logger.Infof("version: %v", raffle.Version)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			n, err := node.NewDevNode(ctx, logger, &node.DevOptions{
				Network:            network,
				DebugAPIAddr:       c.config.GetString(optionNameDebugAPIAddr),
				CORSAllowedOrigins: c.config.GetStringSlice(optionCORSAllowedOrigins),
				DeploymentsFs:      c.fs,
				DeploymentsDir:     c.config.GetString(optionNameDeploymentsDir),
				Accounts:           c.config.GetInt(optionNameAccounts),
				KeeperSchedule:     c.config.GetString(optionNameKeeperSchedule),
				FulfillmentDelay:   c.config.GetDuration(optionNameFulfillmentDelay),
			})
			if err != nil {
				return err
			}

			result := n.Deployment()
			cmd.Printf("%s: %s\n", deploy.CoordinatorName, result.Coordinator)
			cmd.Printf("subscription: %d\n", result.SubscriptionID)
			cmd.Printf("%s: %s\n", deploy.LotteryName, result.Lottery)
			cmd.Printf("entrance fee: %s ETH\n", ethunit.FormatEther(result.Params.EntranceFee))
			for i, a := range n.Chain().Accounts() {
				cmd.Printf("account #%d: %s (%x)\n", i, a.Address, crypto.EncodeSecp256k1PrivateKey(a.Key))
			}
			if addr := n.DebugAPIAddr(); addr != nil {
				cmd.Printf("debug api: http://%s\n", addr)
			}

			// Block until it is interrupted.
			sig := <-interruptChannel
			logger.Debugf("received signal: %v", sig)
			logger.Info("shutting down")

			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := n.Shutdown(); err != nil {
					logger.Errorf("shutdown: %v", err)
				}
			}()

			// If shutdown function is blocking too long,
			// allow process termination by receiving another signal.
			select {
			case sig := <-interruptChannel:
				logger.Debugf("received signal: %v", sig)
			case <-done:
			}
			return nil
		},
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return c.config.BindPFlags(cmd.Flags())
		},
	}

	c.setNetworkFlags(cmd)
	cmd.Flags().String(optionNameDebugAPIAddr, ":1635", "debug API listen address, empty disables the API")
	cmd.Flags().StringSlice(optionCORSAllowedOrigins, []string{}, "origins with CORS headers enabled")
	cmd.Flags().Int(optionNameAccounts, 10, "number of funded development accounts")
	cmd.Flags().String(optionNameKeeperSchedule, keeper.DefaultSchedule, "cron schedule of the keeper upkeep checks")
	cmd.Flags().Duration(optionNameFulfillmentDelay, 0, "delay before the oracle fulfills a randomness request")

	c.root.AddCommand(cmd)
	return nil
}
