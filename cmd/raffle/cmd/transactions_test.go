// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vrflottery/raffle/cmd/raffle/cmd"
	"github.com/vrflottery/raffle/pkg/storage"
	"github.com/vrflottery/raffle/pkg/transaction"
	transactionmock "github.com/vrflottery/raffle/pkg/transaction/mock"
	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

func outputCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	return c, &buf
}

func TestListPendingTransactions(t *testing.T) {
	t.Parallel()

	lottery := common.HexToAddress("0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512")
	enterHash := common.HexToHash("0x01")
	deployHash := common.HexToHash("0x02")
	stored := map[common.Hash]*transaction.StoredTransaction{
		enterHash: {
			To:          &lottery,
			Value:       ethunit.MustParseEther("0.01"),
			GasLimit:    90000,
			GasPrice:    big.NewInt(1000000000),
			Nonce:       4,
			Created:     1700000000,
			Description: "enter lottery",
		},
		deployHash: {
			GasLimit: 3000000,
			GasPrice: big.NewInt(1000000000),
			Nonce:    3,
			Created:  1700000000,
		},
	}

	svc := transactionmock.New(
		transactionmock.WithPendingTransactionsFunc(func() ([]common.Hash, error) {
			return []common.Hash{enterHash, deployHash}, nil
		}),
		transactionmock.WithStoredTransactionFunc(func(txHash common.Hash) (*transaction.StoredTransaction, error) {
			s, ok := stored[txHash]
			if !ok {
				return nil, storage.ErrNotFound
			}
			return s, nil
		}),
	)

	c, out := outputCommand()
	if err := cmd.ListPendingTransactions(c, svc); err != nil {
		t.Fatal(err)
	}

	got := out.String()
	deployAt := strings.Index(got, deployHash.Hex()+" nonce 3")
	enterAt := strings.Index(got, enterHash.Hex()+" nonce 4")
	if deployAt < 0 || enterAt < 0 || deployAt > enterAt {
		t.Fatalf("transactions not listed in nonce order:\n%s", got)
	}
	for _, want := range []string{
		"to: contract creation",
		"to: " + lottery.Hex(),
		"value: 0.01 ETH",
		"gas: 90000 at 1000000000 wei",
		"created: 2023-11-14T22:13:20Z",
		"description: enter lottery",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q does not contain %q", got, want)
		}
	}
}

func TestListPendingTransactionsEmpty(t *testing.T) {
	t.Parallel()

	svc := transactionmock.New(
		transactionmock.WithPendingTransactionsFunc(func() ([]common.Hash, error) {
			return nil, nil
		}),
	)

	c, out := outputCommand()
	if err := cmd.ListPendingTransactions(c, svc); err != nil {
		t.Fatal(err)
	}
	if got, want := out.String(), "no pending transactions\n"; got != want {
		t.Fatalf("got output %q, want %q", got, want)
	}
}

func TestListPendingTransactionsMissingRecord(t *testing.T) {
	t.Parallel()

	svc := transactionmock.New(
		transactionmock.WithPendingTransactionsFunc(func() ([]common.Hash, error) {
			return []common.Hash{common.HexToHash("0x01")}, nil
		}),
		transactionmock.WithStoredTransactionFunc(func(common.Hash) (*transaction.StoredTransaction, error) {
			return nil, storage.ErrNotFound
		}),
	)

	c, _ := outputCommand()
	if err := cmd.ListPendingTransactions(c, svc); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("got error %v, want %v", err, storage.ErrNotFound)
	}
}

func TestResendTransaction(t *testing.T) {
	t.Parallel()

	txHash := common.HexToHash("0xabcd")

	for _, tc := range []struct {
		name       string
		resendErr  error
		wantOutput string
		wantErr    bool
	}{
		{name: "resent", wantOutput: "resent transaction " + txHash.Hex() + "\n"},
		{name: "already imported", resendErr: transaction.ErrAlreadyImported, wantOutput: "transaction " + txHash.Hex() + " is already known to the node\n"},
		{name: "hash changed", resendErr: errors.New("transaction hash changed"), wantErr: true},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var resent common.Hash
			svc := transactionmock.New(
				transactionmock.WithResendTransactionFunc(func(_ context.Context, h common.Hash) error {
					resent = h
					return tc.resendErr
				}),
			)

			c, out := outputCommand()
			err := cmd.ResendTransaction(context.Background(), c, svc, txHash)
			if tc.wantErr {
				if !errors.Is(err, tc.resendErr) {
					t.Fatalf("got error %v, want %v", err, tc.resendErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if resent != txHash {
				t.Fatalf("resent %s, want %s", resent, txHash)
			}
			if got := out.String(); got != tc.wantOutput {
				t.Fatalf("got output %q, want %q", got, tc.wantOutput)
			}
		})
	}
}

func TestWaitTransaction(t *testing.T) {
	t.Parallel()

	txHash := common.HexToHash("0xabcd")

	t.Run("mined", func(t *testing.T) {
		t.Parallel()

		receiptC := make(chan types.Receipt, 1)
		receiptC <- types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(12)}
		svc := transactionmock.New(
			transactionmock.WithWatchSentTransactionFunc(func(common.Hash) (<-chan types.Receipt, <-chan error, error) {
				return receiptC, make(chan error), nil
			}),
		)

		c, out := outputCommand()
		if err := cmd.WaitTransaction(context.Background(), c, svc, txHash); err != nil {
			t.Fatal(err)
		}
		if got, want := out.String(), "transaction "+txHash.Hex()+" mined in block 12: success\n"; got != want {
			t.Fatalf("got output %q, want %q", got, want)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		t.Parallel()

		svc := transactionmock.New(
			transactionmock.WithWatchSentTransactionFunc(func(common.Hash) (<-chan types.Receipt, <-chan error, error) {
				errC := make(chan error, 1)
				errC <- transaction.ErrTransactionCancelled
				return make(chan types.Receipt), errC, nil
			}),
		)

		c, _ := outputCommand()
		err := cmd.WaitTransaction(context.Background(), c, svc, txHash)
		if !errors.Is(err, transaction.ErrTransactionCancelled) {
			t.Fatalf("got error %v, want %v", err, transaction.ErrTransactionCancelled)
		}
	})

	t.Run("context done", func(t *testing.T) {
		t.Parallel()

		svc := transactionmock.New(
			transactionmock.WithWatchSentTransactionFunc(func(common.Hash) (<-chan types.Receipt, <-chan error, error) {
				return make(chan types.Receipt), make(chan error), nil
			}),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		c, _ := outputCommand()
		if err := cmd.WaitTransaction(ctx, c, svc, txHash); !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("got error %v, want %v", err, context.DeadlineExceeded)
		}
	})
}

func TestParseTxHash(t *testing.T) {
	t.Parallel()

	valid := "0x" + strings.Repeat("ab", 32)
	h, err := cmd.ParseTxHash(valid)
	if err != nil {
		t.Fatal(err)
	}
	if h != common.HexToHash(valid) {
		t.Fatalf("got hash %s, want %s", h, valid)
	}
	for _, s := range []string{"", "0x01", strings.Repeat("ab", 32), "0x" + strings.Repeat("zz", 32)} {
		if _, err := cmd.ParseTxHash(s); err == nil {
			t.Errorf("%q: parsed", s)
		}
	}
}

func TestTxCmd(t *testing.T) {
	t.Run("development network", func(t *testing.T) {
		err := newCommand(t,
			cmd.WithArgs("tx", "pending", "--verbosity", "0"),
			cmd.WithFs(afero.NewMemMapFs()),
		).Execute()
		if err == nil || !strings.Contains(err.Error(), "development networks keep no transaction state") {
			t.Fatalf("got error %v, want development network error", err)
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
			cmd.WithArgs("tx", "resend", "0x"+strings.Repeat("ab", 32), "--network", "sepolia", "--networks-file", "networks.yaml", "--verbosity", "0"),
			cmd.WithFs(fs),
		).Execute()
		if err == nil || !strings.Contains(err.Error(), "requires --rpc-url") {
			t.Fatalf("got error %v, want missing rpc url", err)
		}
	})

	t.Run("invalid hash", func(t *testing.T) {
		err := newCommand(t,
			cmd.WithArgs("tx", "wait", "0x01", "--verbosity", "0"),
			cmd.WithFs(afero.NewMemMapFs()),
		).Execute()
		if err == nil || !strings.Contains(err.Error(), "invalid transaction hash") {
			t.Fatalf("got error %v, want invalid hash", err)
		}
	})
}
