// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package test holds the behavior suite shared by every
// storage.StateStorer implementation.
package test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vrflottery/raffle/pkg/storage"
)

const (
	keyAddress = "deployment_hardhat_Lottery" // stores the serialized type
	keyArgs    = "deployment_hardhat_args"    // stores a json array
)

type Address struct {
	value           string
	marshalCalled   bool
	unmarshalCalled bool
}

func (a *Address) MarshalBinary() (data []byte, err error) {
	a.marshalCalled = true
	return []byte(a.value), nil
}

func (a *Address) UnmarshalBinary(data []byte) (err error) {
	a.value = string(data)
	a.unmarshalCalled = true
	return nil
}

// Run executes the suite against stores created by f. The returned
// cleanup function is called after the store has been closed.
func Run(t *testing.T, f func(t *testing.T) (storage.StateStorer, func())) {
	t.Helper()

	t.Run("put get", func(t *testing.T) { testPutGet(t, f) })
	t.Run("not found", func(t *testing.T) { testNotFound(t, f) })
	t.Run("delete", func(t *testing.T) { testDelete(t, f) })
	t.Run("iterate", func(t *testing.T) { testIterator(t, f) })
}

func testPutGet(t *testing.T, f func(t *testing.T) (storage.StateStorer, func())) {
	store, cleanup := f(t)
	defer cleanup()
	defer store.Close()

	address := &Address{value: "0x5FbDB2315678afecb367f032d93F642f64180aa3"}
	args := []string{"0x01", "0x02", "0x03"}

	if err := store.Put(keyAddress, address); err != nil {
		t.Fatal(err)
	}
	if !address.marshalCalled {
		t.Fatal("binaryMarshaller not called on serialized type")
	}
	if err := store.Put(keyArgs, args); err != nil {
		t.Fatal(err)
	}

	got := &Address{}
	if err := store.Get(keyAddress, got); err != nil {
		t.Fatal(err)
	}
	if !got.unmarshalCalled {
		t.Fatal("unmarshaler not called")
	}
	if got.value != address.value {
		t.Fatalf("expected persisted to be %s but got %s", address.value, got.value)
	}

	var gotArgs []string
	if err := store.Get(keyArgs, &gotArgs); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(args, gotArgs); diff != "" {
		t.Fatalf("args mismatch (-want +got):\n%s", diff)
	}
}

func testNotFound(t *testing.T, f func(t *testing.T) (storage.StateStorer, func())) {
	store, cleanup := f(t)
	defer cleanup()
	defer store.Close()

	var v string
	if err := store.Get("missing", &v); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}

func testDelete(t *testing.T, f func(t *testing.T) (storage.StateStorer, func())) {
	store, cleanup := f(t)
	defer cleanup()
	defer store.Close()

	if err := store.Put("nonce", uint64(7)); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete("nonce"); err != nil {
		t.Fatal(err)
	}
	var v uint64
	if err := store.Get("nonce", &v); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}

func testIterator(t *testing.T, f func(t *testing.T) (storage.StateStorer, func())) {
	store, cleanup := f(t)
	defer cleanup()
	defer store.Close()

	storePrefix := "transaction_"
	for k, v := range map[string]string{
		storePrefix + "0x01": "value1",
		"nonce_0x01":         "value2",
		storePrefix + "0x03": "value3",
	} {
		if err := store.Put(k, v); err != nil {
			t.Fatal(err)
		}
	}

	entries := make(map[string]string)
	err := store.Iterate(storePrefix, func(key []byte, value []byte) (stop bool, err error) {
		var entry string
		if err := json.Unmarshal(value, &entry); err != nil {
			return true, err
		}
		entries[string(key)] = entry
		return false, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"transaction_0x01": "value1", "transaction_0x03": "value3"}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	var visited int
	err = store.Iterate(storePrefix, func(_, _ []byte) (bool, error) {
		visited++
		return true, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if visited != 1 {
		t.Fatalf("iteration did not stop, visited %d", visited)
	}
}
