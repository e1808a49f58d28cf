// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy_test

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/afero"

	"github.com/vrflottery/raffle/pkg/deploy"
	"github.com/vrflottery/raffle/pkg/lottery"
)

func hardhatArtifact(bytecode string) string {
	return fmt.Sprintf(`{"_format":"hh-sol-artifact-1","contractName":"Lottery","sourceName":"contracts/Lottery.sol","abi":%s,"bytecode":%q}`, lottery.LotteryABI, bytecode)
}

func foundryArtifact(bytecode string) string {
	return fmt.Sprintf(`{"abi":%s,"bytecode":{"object":%q,"linkReferences":{}}}`, lottery.LotteryABI, bytecode)
}

func TestLoadArtifact(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name     string
		path     string
		content  string
		wantName string
		wantErr  error
	}{
		{name: "hardhat", path: "artifacts/Lottery.json", content: hardhatArtifact("0x6080604052"), wantName: "Lottery"},
		{name: "foundry", path: "out/Lottery.sol/Lottery.json", content: foundryArtifact("0x6080604052"), wantName: "Lottery"},
		{name: "foundry unprefixed", path: "out/Raffle.json", content: foundryArtifact("6080604052"), wantName: "Raffle"},
		{name: "empty bytecode", path: "artifacts/Empty.json", content: hardhatArtifact("0x"), wantErr: deploy.ErrEmptyBytecode},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, tc.path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			a, err := deploy.LoadArtifact(fs, tc.path)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("got error %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if a.ContractName != tc.wantName {
				t.Fatalf("got name %q, want %q", a.ContractName, tc.wantName)
			}
			if !bytes.Equal(a.Bytecode, []byte{0x60, 0x80, 0x60, 0x40, 0x52}) {
				t.Fatalf("got bytecode %x", a.Bytecode)
			}
			if _, ok := a.ABI.Methods["enterLottery"]; !ok {
				t.Fatal("abi has no enterLottery")
			}
			if err := deploy.ValidateConstructor(a.ABI); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestLoadArtifactMissing(t *testing.T) {
	t.Parallel()

	_, err := deploy.LoadArtifact(afero.NewMemMapFs(), "artifacts/Missing.json")
	if err == nil {
		t.Fatal("expected error")
	}
}
