package main

import (
	"fmt"
	"os"

	"copilotbench/internal/config"
	"copilotbench/internal/regression"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// run flags
	batteryPath string
	resultsPath string
)

// rootCmd starts the interactive bench
var rootCmd = &cobra.Command{
	Use:   "bench",
	Short: "copilotbench - chat with, evaluate and regression-test a RAG copilot",
	Long: `copilotbench drives a retrieval-augmented customer support copilot.

Chat with the answer pipeline, inspect the customer data and citations it
retrieved, score answers with the evaluation flow, and capture turns as
regression test cases that can be replayed later.

Run without arguments to start the interactive chat interface.`,
	SilenceUsage: true,
	RunE:         runChat,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question and print the answer with its context",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the test cases of the corpus",
	RunE:  runList,
}

var replayCmd = &cobra.Command{
	Use:   "replay [number]",
	Short: "Replay a test case and evaluate the answer",
	Long: `Restores the chat history of a stored test case, asks its question
for its customer and prints the evaluation report.

Without a number the last test case is replayed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay every test case of the corpus and score the answers",
	Long: `Replays the test cases selected by the battery file, each on a fresh
session, and evaluates every answer. Without a battery file the whole
corpus is run in order.

Battery file:
  version: 1
  tests: [1, 4, 7]   # optional, default all
  timeout_sec: 120   # optional, per test case
  fail_fast: false

Exits non-zero when any test case fails.`,
	RunE: runBattery,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the bench configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE:  runConfigInit,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	runCmd.Flags().StringVar(&batteryPath, "battery", regression.DefaultBatteryPath, "Battery file")
	runCmd.Flags().StringVarP(&resultsPath, "out", "o", "", "Write the results as YAML to this file")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
