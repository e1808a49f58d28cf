// Copyright 2021 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package node

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/statestore/leveldb"
	"github.com/vrflottery/raffle/pkg/storage"
)

const chainIDKey = "chain-id"

// InitStateStore will initialize the stateStore with the given path to the
// data directory. When given an empty directory path, the function will instead
// initialize an in-memory state store that will not be persisted.
func InitStateStore(logger logging.Logger, dataDir string) (storage.StateStorer, error) {
	if dataDir == "" {
		logger.Warning("using in-mem state store, no transaction state will be persisted")
		return leveldb.NewInMemoryStateStore(logger)
	}
	return leveldb.NewStateStore(filepath.Join(dataDir, "statestore"), logger)
}

// CheckChainID records the chain id on first use and rejects a state store
// that holds the transactions of another chain.
func CheckChainID(stateStore storage.StateStorer, chainID int64) error {
	var stored int64
	err := stateStore.Get(chainIDKey, &stored)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return stateStore.Put(chainIDKey, chainID)
	}

	if stored != chainID {
		return fmt.Errorf("chain id changed. was %d before but now is %d", stored, chainID)
	}

	return nil
}
