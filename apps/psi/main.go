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
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/markkurossi/psi/env"
	"github.com/markkurossi/psi/psi"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	input   string
	fpProb  float64
	reveal  string
)

var rootCmd = &cobra.Command{
	Use:   "psi",
	Short: "Circuit private set intersection with payloads",
	Long: `Computes the private intersection of two keyed record sets. The
sender listens for the receiver's connection. Both parties must use
the same protocol parameters.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"print timing report")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false,
		"enable protocol debug logs")
	rootCmd.PersistentFlags().StringVarP(&input, "input", "i", "",
		"input CSV file with key,payload records")
	rootCmd.PersistentFlags().Float64Var(&fpProb, "fp", 0,
		"false-positive probability, e.g. 1e-6 (required)")
	rootCmd.PersistentFlags().StringVar(&reveal, "reveal", "both",
		"who learns the result: both or evaluator")
	rootCmd.MarkPersistentFlagRequired("input")
	rootCmd.MarkPersistentFlagRequired("fp")

	rootCmd.AddCommand(senderCmd, receiverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func config() *env.Config {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()

	return &env.Config{
		Logger: &logger,
	}
}

func params() (psi.Params, error) {
	p := psi.Params{
		FalsePositiveProb: fpProb,
	}
	switch strings.ToLower(reveal) {
	case "both":
		p.Reveal = psi.RevealBoth
	case "evaluator":
		p.Reveal = psi.RevealEvaluator
	default:
		return p, fmt.Errorf("invalid reveal policy: %s", reveal)
	}
	return p, nil
}

func printHeader(msg string) {
	cyan := color.New(color.FgCyan).SprintFunc()
	fmt.Printf("%s\n%s\n", msg, cyan(strings.Repeat("=", len(msg))))
}

func printSuccess(msg string) {
	fmt.Printf("%s  %s\n", color.GreenString("✔"), msg)
}

func printInfo(msg string) {
	fmt.Printf("%s  %s\n", color.BlueString("ℹ"), msg)
}

func printResult(result *psi.Intersection) {
	if result.Existence == nil {
		printInfo("result revealed only to the receiver")
		return
	}
	printSuccess(fmt.Sprintf("intersection cardinality: %d",
		result.Cardinality()))

	for bin, e := range result.Existence {
		if !e {
			continue
		}
		line := fmt.Sprintf("0x%x", []byte(result.PrimaryKeys[bin]))
		if len(result.SenderPayloads) > 0 {
			line += fmt.Sprintf(",%d,%d", result.SenderPayloads[bin],
				result.ReceiverPayloads[bin])
		}
		fmt.Println(line)
	}
}
