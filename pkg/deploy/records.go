// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/afero"
)

// DefaultDir is the directory deployments are recorded in, relative to the
// working directory.
const DefaultDir = "deployments"

const chainIDFile = ".chainId"

var ErrNoDeployment = errors.New("no deployment")

// Deployment is the record of a deployed contract in the hardhat-deploy
// layout.
type Deployment struct {
	Address         common.Address  `json:"address"`
	ABI             json.RawMessage `json:"abi"`
	TransactionHash common.Hash     `json:"transactionHash"`
	Receipt         *ReceiptRecord  `json:"receipt,omitempty"`
	Args            []string        `json:"args"`
	NumDeployments  int             `json:"numDeployments"`
}

type ReceiptRecord struct {
	From            common.Address `json:"from"`
	ContractAddress common.Address `json:"contractAddress"`
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     uint64         `json:"blockNumber"`
	BlockHash       common.Hash    `json:"blockHash"`
	GasUsed         uint64         `json:"gasUsed"`
	Status          uint64         `json:"status"`
}

func newReceiptRecord(from common.Address, r *types.Receipt) *ReceiptRecord {
	rec := &ReceiptRecord{
		From:            from,
		ContractAddress: r.ContractAddress,
		TransactionHash: r.TxHash,
		BlockHash:       r.BlockHash,
		GasUsed:         r.GasUsed,
		Status:          r.Status,
	}
	if r.BlockNumber != nil {
		rec.BlockNumber = r.BlockNumber.Uint64()
	}
	return rec
}

// Records stores deployments as deployments/<network>/<Name>.json.
type Records struct {
	fs  afero.Fs
	dir string
}

func NewRecords(fs afero.Fs, dir string) *Records {
	if dir == "" {
		dir = DefaultDir
	}
	return &Records{fs: fs, dir: dir}
}

// Save records the deployment of the named contract, counting
// redeployments.
func (r *Records) Save(network string, chainID int64, name string, d *Deployment) error {
	dir := filepath.Join(r.dir, network)
	if err := r.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("deployments dir: %w", err)
	}
	if err := afero.WriteFile(r.fs, filepath.Join(dir, chainIDFile), []byte(strconv.FormatInt(chainID, 10)), 0o644); err != nil {
		return fmt.Errorf("write chain id: %w", err)
	}

	d.NumDeployments = 1
	if prev, err := r.Load(network, name); err == nil {
		d.NumDeployments = prev.NumDeployments + 1
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if err := afero.WriteFile(r.fs, r.path(network, name), data, 0o644); err != nil {
		return fmt.Errorf("write deployment %s: %w", name, err)
	}
	return nil
}

// Load returns the recorded deployment of the named contract.
func (r *Records) Load(network, name string) (*Deployment, error) {
	data, err := afero.ReadFile(r.fs, r.path(network, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w of %s on %s", ErrNoDeployment, name, network)
		}
		return nil, err
	}
	var d Deployment
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode deployment %s: %w", name, err)
	}
	return &d, nil
}

// List returns the names of the contracts recorded for the network.
func (r *Records) List(network string) ([]string, error) {
	infos, err := afero.ReadDir(r.fs, filepath.Join(r.dir, network))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, fi := range infos {
		if fi.IsDir() || !strings.HasSuffix(fi.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(fi.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// ChainID returns the chain id the network deployments were made on.
func (r *Records) ChainID(network string) (int64, error) {
	data, err := afero.ReadFile(r.fs, filepath.Join(r.dir, network, chainIDFile))
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
}

func (r *Records) path(network, name string) string {
	return filepath.Join(r.dir, network, name+".json")
}
