// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ethunit_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

func TestParseEther(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   string
		want string
		err  bool
	}{
		{in: "0.01", want: "10000000000000000"},
		{in: "0.25", want: "250000000000000000"},
		{in: "2", want: "2000000000000000000"},
		{in: "0", want: "0"},
		{in: "0.000000000000000001", want: "1"},
		{in: "0.0000000000000000001", err: true},
		{in: "-1", err: true},
		{in: "one", err: true},
	} {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			got, err := ethunit.ParseEther(tc.in)
			if tc.err {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tc.want {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
		})
	}
}

func TestParseEtherNegative(t *testing.T) {
	t.Parallel()

	_, err := ethunit.ParseEther("-0.5")
	if !errors.Is(err, ethunit.ErrNegativeAmount) {
		t.Fatalf("got %v, want %v", err, ethunit.ErrNegativeAmount)
	}
}

func TestFormatEther(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{
		"10000000000000000":   "0.01",
		"40000000000000000":   "0.04",
		"1000000000000000000": "1",
		"1":                   "0.000000000000000001",
	} {
		v, _ := new(big.Int).SetString(in, 10)
		if got := ethunit.FormatEther(v); got != want {
			t.Errorf("format %s: got %s, want %s", in, got, want)
		}
	}
	if got := ethunit.FormatEther(nil); got != "0" {
		t.Errorf("format nil: got %s", got)
	}
}
