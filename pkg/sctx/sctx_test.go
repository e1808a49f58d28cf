// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sctx_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/vrflottery/raffle/pkg/sctx"
)

func TestGasLimit(t *testing.T) {
	ctx := context.Background()
	if got := sctx.GetGasLimit(ctx); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
	if got := sctx.GetGasLimitWithDefault(ctx, 500000); got != 500000 {
		t.Fatalf("got %d, want 500000", got)
	}
	ctx = sctx.SetGasLimit(ctx, 21000)
	if got := sctx.GetGasLimitWithDefault(ctx, 500000); got != 21000 {
		t.Fatalf("got %d, want 21000", got)
	}
}

func TestGasPrice(t *testing.T) {
	ctx := context.Background()
	if got := sctx.GetGasPrice(ctx); got != nil {
		t.Fatalf("got %s, want nil", got)
	}
	ctx = sctx.SetGasPrice(ctx, big.NewInt(1e9))
	if got := sctx.GetGasPrice(ctx); got.Cmp(big.NewInt(1e9)) != 0 {
		t.Fatalf("got %s, want 1e9", got)
	}
}
