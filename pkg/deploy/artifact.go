// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deploy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/afero"
)

var ErrEmptyBytecode = errors.New("artifact has no creation bytecode")

// Artifact is a compiled contract: its interface and creation bytecode.
type Artifact struct {
	ContractName string
	ABI          abi.ABI
	RawABI       json.RawMessage
	Bytecode     []byte
}

// artifactFile covers both the hardhat layout, where bytecode is a hex
// string, and the foundry layout, where it is an object with the hex string
// under "object".
type artifactFile struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	Bytecode     json.RawMessage `json:"bytecode"`
}

// LoadArtifact reads a hardhat or foundry artifact file.
func LoadArtifact(fs afero.Fs, path string) (*Artifact, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	a, err := ParseArtifact(data)
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", path, err)
	}
	if a.ContractName == "" {
		a.ContractName = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return a, nil
}

func ParseArtifact(data []byte) (*Artifact, error) {
	var f artifactFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if len(f.ABI) == 0 {
		return nil, errors.New("artifact has no abi")
	}
	parsed, err := abi.JSON(bytes.NewReader(f.ABI))
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	var code string
	if err := json.Unmarshal(f.Bytecode, &code); err != nil {
		var object struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(f.Bytecode, &object); err != nil {
			return nil, fmt.Errorf("parse bytecode: %w", err)
		}
		code = object.Object
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	if code == "0x" {
		return nil, ErrEmptyBytecode
	}
	bytecode, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("decode bytecode: %w", err)
	}

	return &Artifact{
		ContractName: f.ContractName,
		ABI:          parsed,
		RawABI:       f.ABI,
		Bytecode:     bytecode,
	}, nil
}
