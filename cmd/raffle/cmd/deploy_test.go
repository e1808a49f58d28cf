// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/vrflottery/raffle/cmd/raffle/cmd"
	"github.com/vrflottery/raffle/pkg/config"
	"github.com/vrflottery/raffle/pkg/deploy"
)

func TestDeployCmd(t *testing.T) {
	t.Run("development", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		var outputBuf bytes.Buffer
		if err := newCommand(t,
			cmd.WithArgs("deploy", "--network", "hardhat", "--deployments-dir", "out", "--verbosity", "0"),
			cmd.WithOutput(&outputBuf),
			cmd.WithFs(fs),
		).Execute(); err != nil {
			t.Fatal(err)
		}

		records := deploy.NewRecords(fs, "out")
		lot, err := records.Load("hardhat", deploy.LotteryName)
		if err != nil {
			t.Fatal(err)
		}
		coordinator, err := records.Load("hardhat", deploy.CoordinatorName)
		if err != nil {
			t.Fatal(err)
		}
		chainID, err := records.ChainID("hardhat")
		if err != nil {
			t.Fatal(err)
		}
		if chainID != 31337 {
			t.Errorf("got chain id %d, want 31337", chainID)
		}

		out := outputBuf.String()
		for _, want := range []string{
			deploy.CoordinatorName + ": " + coordinator.Address.Hex(),
			deploy.LotteryName + ": " + lot.Address.Hex(),
			"subscription: 1",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output %q does not contain %q", out, want)
			}
		}
	})

	t.Run("mocks only", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		var outputBuf bytes.Buffer
		if err := newCommand(t,
			cmd.WithArgs("deploy", "--tags", deploy.TagMocks, "--verbosity", "0"),
			cmd.WithOutput(&outputBuf),
			cmd.WithFs(fs),
		).Execute(); err != nil {
			t.Fatal(err)
		}

		records := deploy.NewRecords(fs, deploy.DefaultDir)
		names, err := records.List("hardhat")
		if err != nil {
			t.Fatal(err)
		}
		if len(names) != 1 || names[0] != deploy.CoordinatorName {
			t.Errorf("got deployments %v, want only %s", names, deploy.CoordinatorName)
		}
		if strings.Contains(outputBuf.String(), deploy.LotteryName+":") {
			t.Errorf("unexpected lottery in output %q", outputBuf.String())
		}
	})

	t.Run("unknown tag", func(t *testing.T) {
		err := newCommand(t,
			cmd.WithArgs("deploy", "--tags", "staking", "--verbosity", "0"),
			cmd.WithFs(afero.NewMemMapFs()),
		).Execute()
		if !errors.Is(err, deploy.ErrUnknownTag) {
			t.Fatalf("got error %v, want %v", err, deploy.ErrUnknownTag)
		}
	})

	t.Run("unknown network", func(t *testing.T) {
		err := newCommand(t,
			cmd.WithArgs("deploy", "--network", "mainnet", "--verbosity", "0"),
			cmd.WithFs(afero.NewMemMapFs()),
		).Execute()
		if !errors.Is(err, config.ErrUnknownNetwork) {
			t.Fatalf("got error %v, want %v", err, config.ErrUnknownNetwork)
		}
	})

	t.Run("public network without subscription", func(t *testing.T) {
		err := newCommand(t,
			cmd.WithArgs("deploy", "--network", "sepolia", "--verbosity", "0"),
			cmd.WithFs(afero.NewMemMapFs()),
		).Execute()
		if !errors.Is(err, config.ErrInvalidNetwork) {
			t.Fatalf("got error %v, want %v", err, config.ErrInvalidNetwork)
		}
	})

	t.Run("public network without rpc url", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		if err := afero.WriteFile(fs, "networks.yaml", []byte("networks:\n  sepolia:\n    subscriptionId: 1234\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("RPC_URL", "")
		t.Setenv("RAFFLE_RPC_URL", "")

		err := newCommand(t,
			cmd.WithArgs("deploy", "--network", "sepolia", "--networks-file", "networks.yaml", "--verbosity", "0"),
			cmd.WithFs(fs),
		).Execute()
		if err == nil || !strings.Contains(err.Error(), "requires --rpc-url") {
			t.Fatalf("got error %v, want missing rpc url", err)
		}
	})
}
