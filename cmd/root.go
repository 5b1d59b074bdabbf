package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "token-convert",
	Short: "A CLI for converting tokens from your own wallet",
	Long: `token-convert quotes and executes token conversions from a configured wallet.

Conversions run either through a DEX aggregator on the wallet's EVM chain, or
through 1Click deposit addresses (route "intents"). The CLI handles quoting,
token approvals, gas estimation and transaction submission.

Examples:
  token-convert convert 1 ETH to USDC
  token-convert quote 250 USDC to DAI
  token-convert list-tokens --symbol USD
  token-convert status <deposit-address>
  token-convert history`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
