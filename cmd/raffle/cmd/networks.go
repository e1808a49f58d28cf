// Copyright 2024 The Raffle Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vrflottery/raffle/pkg/util/ethunit"
)

func (c *command) initNetworksCmd() {
	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List the known networks",
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := c.registry()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCHAIN ID\tKIND\tENTRANCE FEE\tINTERVAL\tSTATUS")
			for _, name := range registry.Names() {
				n, err := registry.Lookup(name)
				if err != nil {
					return err
				}
				kind := "public"
				if n.Development {
					kind = "development"
				}
				status := "ok"
				if err := n.Validate(); err != nil {
					status = strings.Join(strings.Fields(err.Error()), " ")
				}
				fee := "-"
				if n.EntranceFee != nil {
					fee = ethunit.FormatEther(n.EntranceFee) + " ETH"
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%ds\t%s\n", n.Name, n.ChainID, kind, fee, n.Interval, status)
			}
			return w.Flush()
		},
		PreRunE: c.bindFlags,
	}
	cmd.Flags().String(optionNameNetworksFile, "", "YAML file with additional networks")

	c.root.AddCommand(cmd)
}
