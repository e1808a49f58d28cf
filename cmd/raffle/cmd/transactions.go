// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/vrflottery/raffle/pkg/node"
	"github.com/vrflottery/raffle/pkg/transaction"
	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

var errDevTransactions = errors.New("development networks keep no transaction state, use a public network")

func (c *command) initTxCmd() {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Inspect and resend transactions sent from the signer account",
		Long: `Inspect and resend transactions sent from the signer account.

Transactions sent by "raffle deploy" and "raffle lottery" on public networks
are kept in the data directory until they are mined. A transaction that
dropped out of the pool of the node can be resent unchanged.`,
	}

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List the transactions that are not mined yet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withTransactionService(cmd, func(ctx context.Context, svc transaction.Service) error {
				return listPendingTransactions(cmd, svc)
			})
		},
		PreRunE: c.bindFlags,
	}

	resendCmd := &cobra.Command{
		Use:   "resend <hash>",
		Short: "Resend a pending transaction with its original nonce and gas price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txHash, err := parseTxHash(args[0])
			if err != nil {
				return err
			}
			return c.withTransactionService(cmd, func(ctx context.Context, svc transaction.Service) error {
				return resendTransaction(ctx, cmd, svc, txHash)
			})
		},
		PreRunE: c.bindFlags,
	}

	waitCmd := &cobra.Command{
		Use:   "wait <hash>",
		Short: "Wait until a sent transaction is mined",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			txHash, err := parseTxHash(args[0])
			if err != nil {
				return err
			}
			return c.withTransactionService(cmd, func(ctx context.Context, svc transaction.Service) error {
				return waitTransaction(ctx, cmd, svc, txHash)
			})
		},
		PreRunE: c.bindFlags,
	}

	for _, sub := range []*cobra.Command{pendingCmd, resendCmd, waitCmd} {
		c.setNetworkFlags(sub)
		c.setChainFlags(sub)
	}

	cmd.AddCommand(pendingCmd, resendCmd, waitCmd)
	c.root.AddCommand(cmd)
}

func parseTxHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid transaction hash %q", s)
	}
	return common.BytesToHash(b), nil
}

// withTransactionService runs f with the transaction service of the signer
// account on a live network.
func (c *command) withTransactionService(cmd *cobra.Command, f func(ctx context.Context, svc transaction.Service) error) (err error) {
	logger, err := c.newLogger(cmd)
	if err != nil {
		return err
	}
	network, err := c.network()
	if err != nil {
		return err
	}
	if network.Development {
		return errDevTransactions
	}
	endpoint := c.config.GetString(optionNameRPCURL)
	if endpoint == "" {
		return fmt.Errorf("network %s requires --%s", network.Name, optionNameRPCURL)
	}

	signer, err := c.signer(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	stateStore, err := node.InitStateStore(logger, filepath.Join(c.config.GetString(optionNameDataDir), network.Name))
	if err != nil {
		return err
	}
	chain, err := node.InitChain(ctx, logger, stateStore, endpoint, signer, c.blockTime())
	if err != nil {
		stateStore.Close()
		return err
	}
	defer func() {
		if cerr := chain.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
		if cerr := stateStore.Close(); cerr != nil {
			err = multierror.Append(err, cerr).ErrorOrNil()
		}
	}()

	return f(ctx, chain.TransactionService)
}

type pendingTransaction struct {
	hash   common.Hash
	stored *transaction.StoredTransaction
}

// listPendingTransactions prints the pending transactions ordered by nonce.
func listPendingTransactions(cmd *cobra.Command, svc transaction.Service) error {
	hashes, err := svc.PendingTransactions()
	if err != nil {
		return fmt.Errorf("pending transactions: %w", err)
	}
	if len(hashes) == 0 {
		cmd.Println("no pending transactions")
		return nil
	}

	pending := make([]pendingTransaction, 0, len(hashes))
	for _, h := range hashes {
		stored, err := svc.StoredTransaction(h)
		if err != nil {
			return fmt.Errorf("transaction %s: %w", h, err)
		}
		pending = append(pending, pendingTransaction{hash: h, stored: stored})
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].stored.Nonce < pending[j].stored.Nonce
	})

	for _, p := range pending {
		to := "contract creation"
		if p.stored.To != nil {
			to = p.stored.To.Hex()
		}
		cmd.Printf("%s nonce %d\n", p.hash, p.stored.Nonce)
		cmd.Printf("  to: %s\n", to)
		cmd.Printf("  value: %s ETH\n", ethunit.FormatEther(p.stored.Value))
		cmd.Printf("  gas: %d at %s wei\n", p.stored.GasLimit, p.stored.GasPrice)
		cmd.Printf("  created: %s\n", time.Unix(p.stored.Created, 0).UTC().Format(time.RFC3339))
		if p.stored.Description != "" {
			cmd.Printf("  description: %s\n", p.stored.Description)
		}
	}
	return nil
}

func resendTransaction(ctx context.Context, cmd *cobra.Command, svc transaction.Service, txHash common.Hash) error {
	err := svc.ResendTransaction(ctx, txHash)
	if errors.Is(err, transaction.ErrAlreadyImported) {
		cmd.Printf("transaction %s is already known to the node\n", txHash)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resend transaction %s: %w", txHash, err)
	}
	cmd.Printf("resent transaction %s\n", txHash)
	return nil
}

func waitTransaction(ctx context.Context, cmd *cobra.Command, svc transaction.Service, txHash common.Hash) error {
	receiptC, errC, err := svc.WatchSentTransaction(txHash)
	if err != nil {
		return fmt.Errorf("watch transaction %s: %w", txHash, err)
	}
	select {
	case receipt := <-receiptC:
		status := "success"
		if receipt.Status != 1 {
			status = "reverted"
		}
		cmd.Printf("transaction %s mined in block %s: %s\n", txHash, receipt.BlockNumber, status)
		return nil
	case err := <-errC:
		return fmt.Errorf("transaction %s: %w", txHash, err)
	case <-ctx.Done():
		return ctx.Err()
	}
}
