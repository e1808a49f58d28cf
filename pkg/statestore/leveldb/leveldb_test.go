// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package leveldb_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/statestore/leveldb"
	"github.com/vrflottery/raffle/pkg/statestore/test"
	"github.com/vrflottery/raffle/pkg/storage"
)

func TestPersistentStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) (storage.StateStorer, func()) {
		t.Helper()

		store, err := leveldb.NewStateStore(t.TempDir(), logging.New(io.Discard, logrus.ErrorLevel))
		if err != nil {
			t.Fatal(err)
		}

		return store, func() {}
	})
}

func TestInMemoryStateStore(t *testing.T) {
	test.Run(t, func(t *testing.T) (storage.StateStorer, func()) {
		t.Helper()

		store, err := leveldb.NewInMemoryStateStore(logging.New(io.Discard, logrus.ErrorLevel))
		if err != nil {
			t.Fatal(err)
		}

		return store, func() {}
	})
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	logger := logging.New(io.Discard, logrus.ErrorLevel)

	store, err := leveldb.NewStateStore(dir, logger)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("nonce_0x01", uint64(3)); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = leveldb.NewStateStore(dir, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	var nonce uint64
	if err := store.Get("nonce_0x01", &nonce); err != nil {
		t.Fatal(err)
	}
	if nonce != 3 {
		t.Fatalf("got nonce %d, want 3", nonce)
	}
}
