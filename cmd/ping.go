// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval int
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Measure CAT round-trip time with identification queries",
	Long: `Send "ID;" queries to the radio and report the round-trip time of each.

This command tests bidirectional communication with the radio, directly or
through a WebSocket serial bridge. A round trip includes the read timeout the
link waits for the radio to go quiet.

Exit codes:
  0 - All pings answered
  1 - One or more pings unanswered
  2 - Connection error`,
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
	pingCmd.Flags().IntVar(&pingCount, "count", 3, "Number of pings to send")
	pingCmd.Flags().IntVar(&pingInterval, "interval", 100, "Delay between pings in milliseconds")
}

func runPing(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	sess, conn, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("keybow2040-cat - CAT Ping\n")
	fmt.Printf("Connection: %s\n", conn)
	fmt.Printf("Count: %d pings\n\n", pingCount)

	successCount := 0
	for i := 1; i <= pingCount; i++ {
		fmt.Printf("Ping %d/%d: ", i, pingCount)

		start := time.Now()
		reply, err := sess.Send(cat.Query(cat.IdentityCode))
		rtt := time.Since(start)

		switch {
		case err != nil:
			fmt.Printf("FAILED: %v\n", err)
			conn.Close()
			os.Exit(2)
		case bytes.Contains(reply, []byte(cat.IdentityReply)):
			fmt.Printf("%s rtt=%v\n", cat.IdentityReply, rtt.Round(time.Millisecond))
			successCount++
		case len(reply) == 0:
			fmt.Printf("TIMEOUT (no response)\n")
		default:
			fmt.Printf("UNEXPECTED %q\n", reply)
		}

		if i < pingCount {
			time.Sleep(time.Duration(pingInterval) * time.Millisecond)
		}
	}

	failCount := pingCount - successCount
	fmt.Printf("\n--- Ping statistics ---\n")
	fmt.Printf("%d pings sent, %d responses received, %.0f%% loss\n",
		pingCount, successCount, float64(failCount)/float64(pingCount)*100)

	if failCount > 0 {
		conn.Close()
		os.Exit(1)
	}
	return nil
}
