// Copyright 2020 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

func (c *command) initConfigurateOptionsCmd() {
	c.root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print configuration options",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := c.config.AllSettings()
			// Never print secrets read from the environment.
			for _, k := range []string{optionNamePrivateKey, optionNameEtherscanAPIKey} {
				if _, ok := settings[k]; ok {
					settings[k] = "<redacted>"
				}
			}
			b, err := yaml.Marshal(settings)
			if err != nil {
				return err
			}
			cmd.Print(string(b))
			return nil
		},
	})
}
