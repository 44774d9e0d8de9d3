//
// main.go
//
// Copyright (c) 2026 Markku Rossi
//
// All rights reserved.
//

package main

import (
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/oram"
	"github.com/markkurossi/psi/p2p"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "oram <index> <value>...",
	Short: "Linear ORAM lookup in a garbled circuit",
	Long: `Runs the garbler and the evaluator in one process. The garbler holds
the RAM values and the evaluator queries the value at index.

Example: oram 5 1 2 3 7 7 25`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.ParseUint(args[0], 0, 64)
		if err != nil {
			return fmt.Errorf("invalid index: %s", args[0])
		}
		var ram []*big.Int
		for _, arg := range args[1:] {
			v, ok := new(big.Int).SetString(arg, 0)
			if !ok {
				return fmt.Errorf("invalid RAM value: %s", arg)
			}
			ram = append(ram, v)
		}
		return run(index, ram)
	},
}

func init() {
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"enable protocol debug logs")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(index uint64, ram []*big.Int) error {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
	cfg := &env.Config{
		Logger: &logger,
	}

	gc, ec := p2p.Pipe()
	done := make(chan error)
	go func() {
		err := oram.Garble(gc, cfg, ram)
		gc.Close()
		done <- err
	}()

	result, err := oram.Evaluate(ec, cfg, index)
	ec.Close()
	gerr := <-done
	if err != nil {
		return err
	}
	if gerr != nil {
		return gerr
	}

	expected := ram[index]
	fmt.Printf("RAM(%v, at index: %d) = %s\n", ram, index, result)
	if result.Cmp(expected) != 0 {
		return fmt.Errorf("result %s does not match %s", result, expected)
	}
	fmt.Printf("%s  result matches plaintext lookup\n", color.GreenString("✔"))
	return nil
}
