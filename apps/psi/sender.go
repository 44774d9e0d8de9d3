//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"fmt"

	"github.com/markkurossi/psi/p2p"
	"github.com/markkurossi/psi/psi"
	"github.com/spf13/cobra"
)

var listenAddr string

var senderCmd = &cobra.Command{
	Use:   "sender",
	Short: "Run the PSI sender (garbler)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSender()
	},
}

func init() {
	senderCmd.Flags().StringVarP(&listenAddr, "addr", "a", ":8080",
		"listen address")
}

func runSender() error {
	p, err := params()
	if err != nil {
		return err
	}
	records, err := readRecords(input)
	if err != nil {
		return err
	}
	cfg := config()

	ln, err := p2p.Listen(listenAddr)
	if err != nil {
		return err
	}
	defer ln.Close()
	printInfo(fmt.Sprintf("listening for receiver at %s", ln.Addr()))

	conn, err := ln.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	g, err := psi.NewGarbler(conn, cfg, p)
	if err != nil {
		return err
	}
	result, err := g.IntersectWithPayloads(records.Keys, records.Payloads)
	if err != nil {
		return err
	}
	printHeader("Intersection")
	printResult(result)
	if verbose {
		g.Timing().Print(conn.Stats)
	}
	return nil
}
