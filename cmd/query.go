// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/spf13/cobra"
)

var (
	queryTimeout int
	queryStats   bool
)

var queryCmd = &cobra.Command{
	Use:   "query [code...]",
	Short: "Read command values from the radio",
	Long: `Identify the radio, refresh the given commands (all known commands by
default) in one batch and print their values.

Examples:
  # Everything the key map uses
  keybow2040-cat query --port /dev/ttyUSB0

  # Just the keyer speed and power
  keybow2040-cat query KS PC --port /dev/ttyUSB0

Exit codes:
  0 - Values read
  1 - Radio did not identify, or no value could be read
  2 - Connection error`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().IntVar(&queryTimeout, "timeout", 5, "Timeout in seconds for identification")
	queryCmd.Flags().BoolVar(&queryStats, "stats", false, "Print link statistics")
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	reg := cat.FTdx10()
	codes := reg.Queryable()
	if len(args) > 0 {
		codes = make([]string, 0, len(args))
		for _, arg := range args {
			code := strings.ToUpper(arg)
			c, ok := reg.Lookup(code)
			if !ok || !c.Queryable() {
				return fmt.Errorf("%s is not a queryable command (known: %s)", arg, strings.Join(reg.Queryable(), ", "))
			}
			codes = append(codes, code)
		}
	}

	sess, conn, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("keybow2040-cat - Query\n")
	fmt.Printf("Connection: %s\n\n", conn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(queryTimeout)*time.Second)
	defer cancel()
	if _, err := sess.Handshake(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "TIMEOUT: radio did not identify in %ds\n", queryTimeout)
		conn.Close()
		os.Exit(1)
	}

	if err := sess.Refresh(codes...); err != nil {
		fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		conn.Close()
		os.Exit(2)
	}

	found := 0
	for _, code := range codes {
		c, _ := reg.Lookup(code)
		value, ok := sess.Value(code)
		if !ok {
			fmt.Printf("  %-4s %-14s (no reply)\n", code, c.Description())
			continue
		}
		found++
		fmt.Printf("  %-4s %-14s %s\n", code, c.Description(), cat.FormatValue(c, value))
	}

	if queryStats {
		stats := sess.Stats()
		fmt.Printf("\n%s", stats.String())
	}

	if found == 0 {
		conn.Close()
		os.Exit(1)
	}
	return nil
}
