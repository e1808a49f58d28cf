// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/logging"
)

const (
	optionNameDataDir            = "data-dir"
	optionNameNetwork            = "network"
	optionNameNetworksFile       = "networks-file"
	optionNameRPCURL             = "rpc-url"
	optionNamePrivateKey         = "private-key"
	optionNameBlockTime          = "block-time"
	optionNameDeploymentsDir     = "deployments-dir"
	optionNameArtifact           = "artifact"
	optionNameTags               = "tags"
	optionNameEtherscanAPIKey    = "etherscan-api-key"
	optionNameVerifySource       = "verify-source"
	optionNameVerifyContract     = "verify-contract"
	optionNameVerifyCompiler     = "verify-compiler"
	optionNameVerifyOptimizeRuns = "verify-optimize-runs"
	optionNameDebugAPIAddr       = "debug-api-addr"
	optionCORSAllowedOrigins     = "cors-allowed-origins"
	optionNameKeeperSchedule     = "keeper-schedule"
	optionNameFulfillmentDelay   = "fulfillment-delay"
	optionNameAccounts           = "accounts"
	optionNameAddress            = "address"
	optionNameValue              = "value"
	optionNameVerbosity          = "verbosity"
)

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root         *cobra.Command
	config       *viper.Viper
	keyReader    passwordReader
	fs           afero.Fs
	cfgFile      string
	envFile      string
	homeDir      string
	shutdownSigs []os.Signal
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "raffle",
			Short:         "Provably fair lottery driven by VRF randomness and keepers",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
		envFile: ".env",
	}

	for _, o := range opts {
		o(c)
	}
	if c.keyReader == nil {
		c.keyReader = new(stdInPasswordReader)
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if len(c.shutdownSigs) == 0 {
		c.shutdownSigs = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	// Find home directory.
	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initGlobalFlags()

	if err := c.initDeployCmd(); err != nil {
		return nil, err
	}
	if err := c.initDevCmd(); err != nil {
		return nil, err
	}
	if err := c.initLotteryCmd(); err != nil {
		return nil, err
	}

	c.initTxCmd()
	c.initNetworksCmd()
	c.initVersionCmd()
	c.initConfigurateOptionsCmd()

	return c, nil
}

func (c *command) Execute() (err error) {
	return c.root.Execute()
}

// Execute parses command line arguments and runs appropriate functions.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", c.cfgFile, "config file (default is $HOME/.raffle.yaml)")
	globalFlags.StringVar(&c.envFile, "env-file", c.envFile, "dotenv file loaded into the environment when present")
}

func (c *command) initConfig() (err error) {
	// Values already in the environment take precedence over the dotenv file.
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("env file %s: %w", c.envFile, err)
		}
	}

	config := viper.New()
	configName := ".raffle"
	if c.cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(c.cfgFile)
	} else {
		// Search config in home directory with name ".raffle" (without extension).
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(configName)
	}

	// Environment
	config.SetEnvPrefix("raffle")
	config.AutomaticEnv() // read in environment variables that match
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Names used by hardhat projects.
	if err := config.BindEnv(optionNamePrivateKey, "RAFFLE_PRIVATE_KEY", "PRIVATE_KEY"); err != nil {
		return err
	}
	if err := config.BindEnv(optionNameRPCURL, "RAFFLE_RPC_URL", "RPC_URL"); err != nil {
		return err
	}
	if err := config.BindEnv(optionNameEtherscanAPIKey, "RAFFLE_ETHERSCAN_API_KEY", "ETHERSCAN_API_KEY"); err != nil {
		return err
	}

	if c.homeDir != "" && c.cfgFile == "" {
		c.cfgFile = filepath.Join(c.homeDir, configName+".yaml")
	}

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}
	c.config = config
	return nil
}

func (c *command) setHomeDir() (err error) {
	if c.homeDir != "" {
		return
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

// setNetworkFlags registers the flags selecting and configuring a network.
func (c *command) setNetworkFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameNetwork, "hardhat", "network name or chain id")
	cmd.Flags().String(optionNameNetworksFile, "", "YAML file with additional networks")
	cmd.Flags().String(optionNameDeploymentsDir, deploy.DefaultDir, "directory the deployment records are kept in")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
}

// setChainFlags registers the flags connecting to a live network.
func (c *command) setChainFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameRPCURL, "", "JSON-RPC endpoint of a live network")
	cmd.Flags().String(optionNamePrivateKey, "", "hex encoded private key of the sending account, prompted for when empty")
	cmd.Flags().Duration(optionNameBlockTime, defaultBlockTime, "chain block time used to poll for transactions")
	cmd.Flags().String(optionNameDataDir, filepath.Join(c.homeDir, ".raffle"), "data directory for pending transaction state")
}

// registry returns the built-in networks merged with the networks file.
func (c *command) registry() (*config.Registry, error) {
	registry := config.NewRegistry()
	path := c.config.GetString(optionNameNetworksFile)
	if path == "" {
		return registry, nil
	}
	f, err := c.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("networks file: %w", err)
	}
	defer f.Close()
	if err := registry.Load(f); err != nil {
		return nil, fmt.Errorf("networks file %s: %w", path, err)
	}
	return registry, nil
}

// network resolves the network selected by the flags.
func (c *command) network() (*config.Network, error) {
	registry, err := c.registry()
	if err != nil {
		return nil, err
	}
	return registry.Resolve(c.config.GetString(optionNameNetwork))
}

func (c *command) newLogger(cmd *cobra.Command) (logging.Logger, error) {
	return newLogger(cmd, c.config.GetString(optionNameVerbosity))
}

func newLogger(cmd *cobra.Command, verbosity string) (logging.Logger, error) {
	level, silent, err := logging.ParseVerbosity(verbosity)
	if err != nil {
		return nil, err
	}
	var w io.Writer = cmd.ErrOrStderr()
	if silent {
		w = io.Discard
	}
	return logging.New(w, level), nil
}
