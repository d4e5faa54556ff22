// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/git1k2/keybow2040-cat/pkg/config"
	"github.com/git1k2/keybow2040-cat/pkg/logging"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Print the settings in effect after reading the config file and applying
flags, in config file format.

The config file location defaults to the user config directory and can be
changed with --config or the KEYBOW_CAT_CFG environment variable.`,
	RunE: runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the current settings",
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	data, err := toml.Marshal(&settings)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Printf("# %s\n%s", cfgPath, data)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()

	exists, err := afero.Exists(fs, cfgPath)
	if err != nil {
		return err
	}
	if exists && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	}

	vals := settings
	if vals.LogFile == logging.DefaultFile(config.LogFile) {
		vals.LogFile = ""
	}
	if err := config.Save(fs, cfgPath, vals); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", cfgPath)
	return nil
}
