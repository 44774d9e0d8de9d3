//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"time"

	"github.com/markkurossi/psi/p2p"
	"github.com/markkurossi/psi/psi"
	"github.com/spf13/cobra"
)

var (
	peerAddr string
	retries  int
)

var receiverCmd = &cobra.Command{
	Use:   "receiver",
	Short: "Run the PSI receiver (evaluator)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReceiver()
	},
}

func init() {
	receiverCmd.Flags().StringVarP(&peerAddr, "addr", "a", "localhost:8080",
		"sender address")
	receiverCmd.Flags().IntVar(&retries, "retries", 10,
		"connection retries, -1 retries forever")
}

func runReceiver() error {
	p, err := params()
	if err != nil {
		return err
	}
	records, err := readRecords(input)
	if err != nil {
		return err
	}
	cfg := config()

	dialer := &p2p.Dialer{
		Retries: retries,
		Delay:   time.Second,
		Logger:  cfg.Logger,
	}
	conn, err := dialer.Dial(peerAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	e, err := psi.NewEvaluator(conn, cfg, p)
	if err != nil {
		return err
	}
	result, err := e.IntersectWithPayloads(records.Keys, records.Payloads)
	if err != nil {
		return err
	}
	printHeader("Intersection")
	printResult(result)
	if verbose {
		e.Timing().Print(conn.Stats)
	}
	return nil
}
