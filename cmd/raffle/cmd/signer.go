// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vrflottery/raffle/pkg/crypto"
)

var errEmptyPrivateKey = errors.New("private key is empty")

// signer returns the signer of the account sending transactions on a live
// network. The key is read from the flag or the environment and prompted for
// when neither is set.
func (c *command) signer(cmd *cobra.Command) (crypto.Signer, error) {
	hexKey := c.config.GetString(optionNamePrivateKey)
	if hexKey == "" {
		var err error
		hexKey, err = terminalPromptPassword(cmd, c.keyReader, "Private key")
		if err != nil {
			return nil, err
		}
	}
	if hexKey == "" {
		return nil, errEmptyPrivateKey
	}
	key, err := crypto.ParsePrivateKey(hexKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return crypto.NewDefaultSigner(key), nil
}
