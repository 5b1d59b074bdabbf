package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"token-convert/config"
	"token-convert/pkg/history"
	"token-convert/pkg/types"
)

var (
	historyLimit  int
	historyStatus string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show conversions sent from this machine",
	Long: `Show conversions sent from this machine, newest first.

Examples:
  token-convert history
  token-convert history --limit 5
  token-convert history --status failed --json`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of conversions to show (0 for all)")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status (submitted, completed, failed)")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	store, err := history.NewStorage(cfg.HistoryPath)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	conversions := filterConversions(store.List(), historyStatus, historyLimit)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(conversions, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayHistory(conversions, store.Count(), store.GetFilePath())
}

// filterConversions keeps conversions with status (any when empty), at most limit of them
func filterConversions(conversions []*types.Conversion, status string, limit int) []*types.Conversion {
	filtered := make([]*types.Conversion, 0, len(conversions))
	for _, c := range conversions {
		if status != "" && !strings.EqualFold(string(c.Status), status) {
			continue
		}
		filtered = append(filtered, c)
		if limit > 0 && len(filtered) == limit {
			break
		}
	}
	return filtered
}

func displayHistory(conversions []*types.Conversion, total int, path string) {
	if len(conversions) == 0 {
		fmt.Println("\nNo conversions found.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 120))
	color.Green("                                              CONVERSION HISTORY")
	fmt.Println(strings.Repeat("=", 120))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nTIMESTAMP\tROUTE\tFROM\tTO\tSTATUS\tTX HASH\tDEPOSIT")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, c := range conversions {
		deposit := c.DepositAddress
		if deposit == "" {
			deposit = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s %s\t%s\t%s\t%s\n",
			c.Timestamp.Local().Format("2006-01-02 15:04:05"),
			c.Route,
			c.SourceAmount, c.SourceToken,
			c.DestAmount, c.DestToken,
			colorConversionStatus(c.Status),
			shorten(c.TxHash),
			shorten(deposit))
	}

	w.Flush()
	fmt.Println("\n" + strings.Repeat("=", 120))
	fmt.Printf("\nShowing %d of %d conversions\n", len(conversions), total)
	fmt.Printf("History file: %s\n\n", color.HiBlackString(path))
}

func colorConversionStatus(status types.ConversionStatus) string {
	switch status {
	case types.ConversionCompleted:
		return color.GreenString(string(status))
	case types.ConversionFailed:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}

// shorten keeps the head and tail of long hashes and addresses
func shorten(s string) string {
	if len(s) <= 20 {
		return s
	}
	return s[:10] + "..." + s[len(s)-6:]
}
