// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	identifyTimeout int
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Test the radio link by waiting for the FTdx10 identification",
	Long: `Send "ID;" until the radio answers "ID0761;" or the timeout expires.

This is the same handshake the controller performs at startup, bounded by a
timeout so it can be used from scripts.

Exit codes:
  0 - Radio identified before timeout
  1 - Timeout reached without an identification
  2 - Connection error`,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	identifyCmd.Flags().IntVar(&identifyTimeout, "timeout", 10, "Timeout in seconds to wait for the radio")
}

func runIdentify(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	sess, conn, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("keybow2040-cat - Identify\n")
	fmt.Printf("Connection: %s\n", conn)
	fmt.Printf("Timeout: %d seconds\n", identifyTimeout)
	fmt.Printf("Waiting for radio...\n\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(identifyTimeout)*time.Second)
	defer cancel()

	start := time.Now()
	attempts, err := sess.Handshake(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "TIMEOUT: No identification within %d seconds (%d attempts)\n", identifyTimeout, attempts)
		conn.Close()
		os.Exit(1)
	}

	fmt.Printf("SUCCESS: Yaesu FTdx10 identified\n")
	fmt.Printf("  Attempts: %d\n", attempts)
	fmt.Printf("  Elapsed: %v\n", time.Since(start).Round(time.Millisecond))
	return nil
}
