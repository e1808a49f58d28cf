// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package transaction_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/vrflottery/raffle/pkg/crypto"
	signermock "github.com/vrflottery/raffle/pkg/crypto/mock"
	"github.com/vrflottery/raffle/pkg/logging"
	"github.com/vrflottery/raffle/pkg/sctx"
	storemock "github.com/vrflottery/raffle/pkg/statestore/mock"
	"github.com/vrflottery/raffle/pkg/transaction"
	"github.com/vrflottery/raffle/pkg/transaction/backendmock"
	"github.com/vrflottery/raffle/pkg/transaction/monitormock"
)

func nonceKey(sender common.Address) string {
	return fmt.Sprintf("transaction_nonce_%x", sender)
}

func signerMockForTransaction(t *testing.T, signedTx *types.Transaction, sender common.Address, signerChainID *big.Int) crypto.Signer {
	t.Helper()

	return signermock.New(
		signermock.WithSignTxFunc(func(transaction *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
			if signedTx.To() == nil {
				if transaction.To() != nil {
					t.Fatalf("signing transaction with recipient. wanted nil, got %x", transaction.To())
				}
			} else {
				if transaction.To() == nil || *transaction.To() != *signedTx.To() {
					t.Fatalf("signing transaction with wrong recipient. wanted %x, got %x", signedTx.To(), transaction.To())
				}
			}
			if !bytes.Equal(transaction.Data(), signedTx.Data()) {
				t.Fatalf("signing transaction with wrong data. wanted %x, got %x", signedTx.Data(), transaction.Data())
			}
			if transaction.Value().Cmp(signedTx.Value()) != 0 {
				t.Fatalf("signing transaction with wrong value. wanted %d, got %d", signedTx.Value(), transaction.Value())
			}
			if chainID.Cmp(signerChainID) != 0 {
				t.Fatalf("signing transaction with wrong chainID. wanted %d, got %d", signerChainID, chainID)
			}
			if transaction.Gas() != signedTx.Gas() {
				t.Fatalf("signing transaction with wrong gas. wanted %d, got %d", signedTx.Gas(), transaction.Gas())
			}
			if transaction.GasPrice().Cmp(signedTx.GasPrice()) != 0 {
				t.Fatalf("signing transaction with wrong gasprice. wanted %d, got %d", signedTx.GasPrice(), transaction.GasPrice())
			}
			if transaction.Nonce() != signedTx.Nonce() {
				t.Fatalf("signing transaction with wrong nonce. wanted %d, got %d", signedTx.Nonce(), transaction.Nonce())
			}
			return signedTx, nil
		}),
		signermock.WithEthereumAddressFunc(func() (common.Address, error) {
			return sender, nil
		}),
	)
}

// pendingMonitor never confirms anything.
func pendingMonitor() transaction.Monitor {
	return monitormock.New(
		monitormock.WithWatchTransactionFunc(func(txHash common.Hash, nonce uint64) (<-chan types.Receipt, <-chan error, error) {
			return nil, nil, nil
		}),
	)
}

func TestTransactionSend(t *testing.T) {
	t.Parallel()

	logger := logging.New(io.Discard, logrus.PanicLevel)
	sender := common.HexToAddress("0xddff")
	recipient := common.HexToAddress("0xabcd")
	txData := common.Hex2Bytes("abcdee")
	value := big.NewInt(1)
	suggestedGasPrice := big.NewInt(2)
	estimatedGasLimit := uint64(3)
	nonce := uint64(2)
	chainID := big.NewInt(5)

	t.Run("send", func(t *testing.T) {
		t.Parallel()

		signedTx := types.NewTransaction(nonce, recipient, value, estimatedGasLimit+estimatedGasLimit/5, suggestedGasPrice, txData)
		request := &transaction.TxRequest{
			To:          &recipient,
			Data:        txData,
			Value:       value,
			Description: "enter lottery",
		}
		store := storemock.NewStateStore()
		if err := store.Put(nonceKey(sender), nonce); err != nil {
			t.Fatal(err)
		}

		transactionService, err := transaction.NewService(logger,
			backendmock.New(
				backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
					if tx != signedTx {
						t.Fatal("not sending signed transaction")
					}
					return nil
				}),
				backendmock.WithEstimateGasFunc(func(ctx context.Context, call ethereum.CallMsg) (gas uint64, err error) {
					if !bytes.Equal(call.To.Bytes(), recipient.Bytes()) {
						t.Fatalf("estimating with wrong recipient. wanted %x, got %x", recipient, call.To)
					}
					if !bytes.Equal(call.Data, txData) {
						t.Fatal("estimating with wrong data")
					}
					if call.Value.Cmp(value) != 0 {
						t.Fatalf("estimating with wrong value. wanted %d, got %d", value, call.Value)
					}
					return estimatedGasLimit, nil
				}),
				backendmock.WithSuggestGasPriceFunc(func(ctx context.Context) (*big.Int, error) {
					return suggestedGasPrice, nil
				}),
				backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
					return nonce - 1, nil
				}),
			),
			signerMockForTransaction(t, signedTx, sender, chainID),
			store,
			chainID,
			pendingMonitor(),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer transactionService.Close()

		txHash, err := transactionService.Send(context.Background(), request)
		if err != nil {
			t.Fatal(err)
		}

		if txHash != signedTx.Hash() {
			t.Fatal("returning wrong transaction hash")
		}

		var storedNonce uint64
		if err := store.Get(nonceKey(sender), &storedNonce); err != nil {
			t.Fatal(err)
		}
		if storedNonce != nonce+1 {
			t.Fatalf("nonce not stored correctly: want %d, got %d", nonce+1, storedNonce)
		}

		storedTransaction, err := transactionService.StoredTransaction(txHash)
		if err != nil {
			t.Fatal(err)
		}
		if storedTransaction.To == nil || *storedTransaction.To != recipient {
			t.Fatalf("got wrong recipient in stored transaction. wanted %x, got %x", recipient, storedTransaction.To)
		}
		if !bytes.Equal(storedTransaction.Data, request.Data) {
			t.Fatalf("got wrong data in stored transaction. wanted %x, got %x", request.Data, storedTransaction.Data)
		}
		if storedTransaction.Description != request.Description {
			t.Fatalf("got wrong description in stored transaction. wanted %q, got %q", request.Description, storedTransaction.Description)
		}
		if storedTransaction.Nonce != nonce {
			t.Fatalf("got wrong nonce in stored transaction. wanted %d, got %d", nonce, storedTransaction.Nonce)
		}

		pending, err := transactionService.PendingTransactions()
		if err != nil {
			t.Fatal(err)
		}
		if len(pending) != 1 || pending[0] != txHash {
			t.Fatalf("got pending transactions %v, want [%x]", pending, txHash)
		}
	})

	t.Run("send_no_nonce", func(t *testing.T) {
		t.Parallel()

		signedTx := types.NewTransaction(nonce, recipient, value, estimatedGasLimit+estimatedGasLimit/5, suggestedGasPrice, txData)
		store := storemock.NewStateStore()

		transactionService, err := transaction.NewService(logger,
			backendmock.New(
				backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
					return nil
				}),
				backendmock.WithEstimateGasFunc(func(ctx context.Context, call ethereum.CallMsg) (gas uint64, err error) {
					return estimatedGasLimit, nil
				}),
				backendmock.WithSuggestGasPriceFunc(func(ctx context.Context) (*big.Int, error) {
					return suggestedGasPrice, nil
				}),
				backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
					return nonce, nil
				}),
			),
			signerMockForTransaction(t, signedTx, sender, chainID),
			store,
			chainID,
			pendingMonitor(),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer transactionService.Close()

		if _, err := transactionService.Send(context.Background(), &transaction.TxRequest{
			To:    &recipient,
			Data:  txData,
			Value: value,
		}); err != nil {
			t.Fatal(err)
		}

		var storedNonce uint64
		if err := store.Get(nonceKey(sender), &storedNonce); err != nil {
			t.Fatal(err)
		}
		if storedNonce != nonce+1 {
			t.Fatalf("nonce not stored correctly: want %d, got %d", nonce+1, storedNonce)
		}
	})

	t.Run("send_context_gas", func(t *testing.T) {
		t.Parallel()

		gasLimit := uint64(500000)
		gasPrice := big.NewInt(30_000_000_000)
		signedTx := types.NewTransaction(nonce, recipient, value, gasLimit, gasPrice, txData)

		transactionService, err := transaction.NewService(logger,
			backendmock.New(
				backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
					return nil
				}),
				backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
					return nonce, nil
				}),
			),
			signerMockForTransaction(t, signedTx, sender, chainID),
			storemock.NewStateStore(),
			chainID,
			pendingMonitor(),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer transactionService.Close()

		ctx := sctx.SetGasPrice(sctx.SetGasLimit(context.Background(), gasLimit), gasPrice)
		txHash, err := transactionService.Send(ctx, &transaction.TxRequest{
			To:    &recipient,
			Data:  txData,
			Value: value,
		})
		if err != nil {
			t.Fatal(err)
		}
		if txHash != signedTx.Hash() {
			t.Fatal("returning wrong transaction hash")
		}
	})

	t.Run("contract_creation", func(t *testing.T) {
		t.Parallel()

		signedTx := types.NewContractCreation(nonce, new(big.Int), estimatedGasLimit+estimatedGasLimit/5, suggestedGasPrice, txData)

		transactionService, err := transaction.NewService(logger,
			backendmock.New(
				backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
					return nil
				}),
				backendmock.WithEstimateGasFunc(func(ctx context.Context, call ethereum.CallMsg) (gas uint64, err error) {
					if call.To != nil {
						t.Fatalf("estimating creation with recipient %x", call.To)
					}
					return estimatedGasLimit, nil
				}),
				backendmock.WithSuggestGasPriceFunc(func(ctx context.Context) (*big.Int, error) {
					return suggestedGasPrice, nil
				}),
				backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
					return nonce, nil
				}),
			),
			signerMockForTransaction(t, signedTx, sender, chainID),
			storemock.NewStateStore(),
			chainID,
			pendingMonitor(),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer transactionService.Close()

		txHash, err := transactionService.Send(context.Background(), &transaction.TxRequest{
			Data: txData,
		})
		if err != nil {
			t.Fatal(err)
		}
		stored, err := transactionService.StoredTransaction(txHash)
		if err != nil {
			t.Fatal(err)
		}
		if stored.To != nil {
			t.Fatalf("got recipient %x for contract creation", stored.To)
		}
	})

	t.Run("send_error", func(t *testing.T) {
		t.Parallel()

		errSend := errors.New("insufficient funds")
		signedTx := types.NewTransaction(nonce, recipient, value, estimatedGasLimit+estimatedGasLimit/5, suggestedGasPrice, txData)
		store := storemock.NewStateStore()

		transactionService, err := transaction.NewService(logger,
			backendmock.New(
				backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
					return errSend
				}),
				backendmock.WithEstimateGasFunc(func(ctx context.Context, call ethereum.CallMsg) (gas uint64, err error) {
					return estimatedGasLimit, nil
				}),
				backendmock.WithSuggestGasPriceFunc(func(ctx context.Context) (*big.Int, error) {
					return suggestedGasPrice, nil
				}),
				backendmock.WithPendingNonceAtFunc(func(ctx context.Context, account common.Address) (uint64, error) {
					return nonce, nil
				}),
			),
			signerMockForTransaction(t, signedTx, sender, chainID),
			store,
			chainID,
			pendingMonitor(),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer transactionService.Close()

		_, err = transactionService.Send(context.Background(), &transaction.TxRequest{
			To:    &recipient,
			Data:  txData,
			Value: value,
		})
		if !errors.Is(err, errSend) {
			t.Fatalf("got error %v, want %v", err, errSend)
		}

		var storedNonce uint64
		if err := store.Get(nonceKey(sender), &storedNonce); err == nil {
			t.Fatalf("nonce %d stored for failed transaction", storedNonce)
		}
	})
}

func TestTransactionWaitForReceipt(t *testing.T) {
	t.Parallel()

	logger := logging.New(io.Discard, logrus.PanicLevel)
	sender := common.HexToAddress("0xddff")
	txHash := common.HexToHash("0xabcdee")
	chainID := big.NewInt(5)
	nonce := uint64(10)

	for _, tc := range []struct {
		name    string
		status  uint64
		wantErr error
	}{
		{name: "success", status: types.ReceiptStatusSuccessful},
		{name: "reverted", status: types.ReceiptStatusFailed, wantErr: transaction.ErrTransactionReverted},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			store := storemock.NewStateStore()
			if err := store.Put(transaction.StoredTransactionKey(txHash), transaction.StoredTransaction{Nonce: nonce}); err != nil {
				t.Fatal(err)
			}

			transactionService, err := transaction.NewService(logger,
				backendmock.New(),
				signermock.New(signermock.WithEthereumAddressFunc(func() (common.Address, error) {
					return sender, nil
				})),
				store,
				chainID,
				monitormock.New(
					monitormock.WithWatchTransactionFunc(func(h common.Hash, n uint64) (<-chan types.Receipt, <-chan error, error) {
						if h != txHash {
							t.Fatalf("watching wrong transaction. wanted %x, got %x", txHash, h)
						}
						if n != nonce {
							t.Fatalf("watching wrong nonce. wanted %d, got %d", nonce, n)
						}
						receiptC := make(chan types.Receipt, 1)
						receiptC <- types.Receipt{TxHash: txHash, Status: tc.status, BlockNumber: big.NewInt(3)}
						return receiptC, nil, nil
					}),
				),
			)
			if err != nil {
				t.Fatal(err)
			}
			defer transactionService.Close()

			receipt, err := transactionService.WaitForReceipt(context.Background(), txHash)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if receipt == nil || receipt.TxHash != txHash {
				t.Fatalf("got receipt %v", receipt)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()

		transactionService, err := transaction.NewService(logger,
			backendmock.New(),
			signermock.New(),
			storemock.NewStateStore(),
			chainID,
			pendingMonitor(),
		)
		if err != nil {
			t.Fatal(err)
		}
		defer transactionService.Close()

		if _, err := transactionService.WaitForReceipt(context.Background(), txHash); !errors.Is(err, transaction.ErrUnknownTransaction) {
			t.Fatalf("got error %v, want %v", err, transaction.ErrUnknownTransaction)
		}
	})
}

func TestTransactionWaitForConfirmations(t *testing.T) {
	t.Parallel()

	logger := logging.New(io.Discard, logrus.PanicLevel)
	var waited []uint64

	transactionService, err := transaction.NewService(logger,
		backendmock.New(),
		signermock.New(),
		storemock.NewStateStore(),
		big.NewInt(5),
		monitormock.New(
			monitormock.WithWaitBlockFunc(func(ctx context.Context, block *big.Int) (*types.Header, error) {
				waited = append(waited, block.Uint64())
				return &types.Header{Number: block}, nil
			}),
		),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer transactionService.Close()

	receipt := &types.Receipt{BlockNumber: big.NewInt(100)}
	if err := transactionService.WaitForConfirmations(context.Background(), receipt, 1); err != nil {
		t.Fatal(err)
	}
	if err := transactionService.WaitForConfirmations(context.Background(), receipt, 6); err != nil {
		t.Fatal(err)
	}
	if len(waited) != 1 || waited[0] != 105 {
		t.Fatalf("got waited blocks %v, want [105]", waited)
	}
}

func TestTransactionResend(t *testing.T) {
	t.Parallel()

	logger := logging.New(io.Discard, logrus.PanicLevel)
	recipient := common.HexToAddress("0xbbbddd")
	chainID := big.NewInt(5)
	nonce := uint64(10)
	data := common.Hex2Bytes("aabbcc")

	store := storemock.NewStateStore()
	signedTx := types.NewTransaction(nonce, recipient, big.NewInt(0), 21000, big.NewInt(1), data)

	if err := store.Put(transaction.StoredTransactionKey(signedTx.Hash()), transaction.StoredTransaction{
		To:       signedTx.To(),
		Nonce:    signedTx.Nonce(),
		GasPrice: signedTx.GasPrice(),
		GasLimit: signedTx.Gas(),
		Data:     signedTx.Data(),
		Value:    signedTx.Value(),
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(transaction.PendingTransactionKey(signedTx.Hash()), struct{}{}); err != nil {
		t.Fatal(err)
	}

	var resent bool
	transactionService, err := transaction.NewService(logger,
		backendmock.New(
			backendmock.WithSendTransactionFunc(func(ctx context.Context, tx *types.Transaction) error {
				if tx != signedTx {
					t.Fatal("not sending signed transaction")
				}
				resent = true
				return nil
			}),
		),
		signerMockForTransaction(t, signedTx, recipient, chainID),
		store,
		chainID,
		pendingMonitor(),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer transactionService.Close()

	if err := transactionService.ResendTransaction(context.Background(), signedTx.Hash()); err != nil {
		t.Fatal(err)
	}
	if !resent {
		t.Fatal("transaction not resent")
	}
}

type revertError struct {
	data interface{}
}

func (e revertError) Error() string          { return "execution reverted" }
func (e revertError) ErrorData() interface{} { return e.data }

var _ rpc.DataError = revertError{}

func TestRevertData(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		err  error
		want []byte
		ok   bool
	}{
		{name: "plain error", err: errors.New("boom")},
		{name: "no data", err: revertError{data: nil}},
		{name: "short data", err: revertError{data: "0x1234"}},
		{name: "selector", err: revertError{data: "0x1425571c"}, want: common.Hex2Bytes("1425571c"), ok: true},
		{name: "wrapped", err: fmt.Errorf("call: %w", revertError{data: "0x1425571c00"}), want: common.Hex2Bytes("1425571c00"), ok: true},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := transaction.RevertData(tc.err)
			if ok != tc.ok {
				t.Fatalf("got ok %v, want %v", ok, tc.ok)
			}
			if !bytes.Equal(got, tc.want) {
				t.Fatalf("got data %x, want %x", got, tc.want)
			}
		})
	}
}

func TestIsSynced(t *testing.T) {
	t.Parallel()

	maxDelay := 10 * time.Second
	now := time.Now().UTC()
	for _, tc := range []struct {
		name      string
		blockTime time.Time
		want      bool
	}{
		{name: "synced", blockTime: now, want: true},
		{name: "behind", blockTime: now.Add(-time.Minute)},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			synced, err := transaction.IsSynced(context.Background(), backendmock.New(
				backendmock.WithBlockNumberFunc(func(context.Context) (uint64, error) {
					return 12, nil
				}),
				backendmock.WithHeaderbyNumberFunc(func(ctx context.Context, number *big.Int) (*types.Header, error) {
					if number.Uint64() != 12 {
						t.Fatalf("got header request for block %s, want 12", number)
					}
					return &types.Header{Time: uint64(tc.blockTime.Unix())}, nil
				}),
			), maxDelay)
			if err != nil {
				t.Fatal(err)
			}
			if synced != tc.want {
				t.Fatalf("got synced %v, want %v", synced, tc.want)
			}
		})
	}
}
