// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/git1k2/keybow2040-cat/pkg/cat"
	"github.com/git1k2/keybow2040-cat/pkg/link"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Display CAT frames in human-readable format",
	Long: `Continuously decode and display CAT frames as they arrive on the link.

Nothing is sent to the radio. Frames for commands the controller knows are
decoded (switches as ON/OFF, ranges as numbers); anything else is shown raw.
Useful with Auto Information enabled on the radio, or on a bridge shared with
another CAT client.

Supports both serial and WebSocket connections. Press Ctrl+C to exit and print
statistics.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if err := initLogging(); err != nil {
		return err
	}

	conn, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("keybow2040-cat - CAT Monitor\n")
	fmt.Printf("Connection: %s\n", conn)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := cat.FTdx10()
	decoder := cat.NewDecoder()
	stats := cat.NewStatistics()

	for ctx.Err() == nil {
		data, err := conn.Read()
		if err != nil {
			// A closed bridge does not come back
			if errors.Is(err, link.ErrConnectionClosed) {
				fmt.Printf("Connection closed\n")
				break
			}
			log.Error().Err(err).Msg("read error")
			return err
		}
		stats.RecordRead(len(data))

		frames, errs := decoder.Split(data)
		for _, err := range errs {
			fmt.Printf("[ERROR] %v\n", err)
		}
		for _, f := range frames {
			_, known := reg.Identify(f.Bytes())
			stats.RecordReply(known)
			fmt.Print(cat.FormatFrame(f, reg))
		}
	}

	fmt.Printf("\n%s", stats)
	return nil
}
