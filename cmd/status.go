package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"token-convert/config"
	"token-convert/pkg/client"
	"token-convert/pkg/history"
	"token-convert/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <deposit-address>",
	Short: "Check the status of a deposit-route conversion",
	Long: `Check the execution status of a conversion sent through a 1Click deposit address.

When the conversion is in the local history its status is updated once 1Click
reports a final outcome.

Examples:
  token-convert status 0x1234...abcd
  token-convert status 0x1234...abcd --watch
  token-convert status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	depositAddress := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if err := validateInterval(watchInterval); err != nil {
		printError(err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Create client
	apiClient := client.NewOneClickClient(cfg.JWTToken, cfg.BaseURL)

	// History is optional here; a status check works without it
	store, err := history.NewStorage(cfg.HistoryPath)
	if err != nil {
		color.Yellow("Warning: %v", err)
		store = nil
	}

	tracker := &statusTracker{client: apiClient, history: store, depositAddress: depositAddress}
	if watchStatus {
		tracker.watch(jsonOutput)
	} else {
		tracker.check(jsonOutput)
	}
}

func validateInterval(seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("interval must be a positive number of seconds, got %d", seconds)
	}
	return nil
}

// statusTracker polls 1Click for one deposit address and mirrors final outcomes into history
type statusTracker struct {
	client         *client.OneClickClient
	history        *history.Storage
	depositAddress string
}

func (t *statusTracker) check(jsonOutput bool) {
	depositAddress := t.depositAddress

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking conversion status..."
		s.Start()
	}

	status, err := t.client.GetSwapStatus(context.Background(), depositAddress)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}
	t.record(status.GetStatus())

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(status, depositAddress)
	}
}

func (t *statusTracker) watch(jsonOutput bool) {
	depositAddress := t.depositAddress

	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching conversion status (Deposit Address: %s)\n", color.CyanString(depositAddress))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	if t.checkAndDisplay() {
		return
	}

	// Then check periodically until the conversion settles
	for range ticker.C {
		if t.checkAndDisplay() {
			return
		}
	}
}

// checkAndDisplay reports whether the conversion reached a final status
func (t *statusTracker) checkAndDisplay() bool {
	status, err := t.client.GetSwapStatus(context.Background(), t.depositAddress)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(status, t.depositAddress)
	return t.record(status.GetStatus())
}

// record stores a final status in history and reports whether status is final
func (t *statusTracker) record(status string) bool {
	final, ok := conversionStatus(status)
	if !ok {
		return false
	}
	if t.history == nil {
		return true
	}

	conversion, err := t.history.FindByDeposit(t.depositAddress)
	if err != nil || conversion.Status == final {
		return true
	}
	if err := t.history.UpdateStatus(conversion.ID, final); err != nil {
		color.Yellow("Warning: failed to update history: %v", err)
	}
	return true
}

// conversionStatus maps a final 1Click status to a history status
func conversionStatus(status string) (types.ConversionStatus, bool) {
	switch strings.ToUpper(status) {
	case "SUCCESS", "COMPLETED":
		return types.ConversionCompleted, true
	case "FAILED", "REFUNDED":
		return types.ConversionFailed, true
	default:
		return "", false
	}
}

func displayStatus(status *oneclick.GetExecutionStatusResponse, depositAddress string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                     CONVERSION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Deposit Address: %s\n", color.CyanString(depositAddress))
	fmt.Printf("  Status:          %s\n", getColoredStatus(status.GetStatus()))
	fmt.Printf("  Last Updated:    %s\n", status.GetUpdatedAt().Format("2006-01-02 15:04:05"))

	// Display swap details if available
	swapDetails := status.GetSwapDetails()

	// Display origin chain transactions (deposits)
	originTxs := swapDetails.GetOriginChainTxHashes()
	if len(originTxs) > 0 {
		for _, tx := range originTxs {
			hash := tx.GetHash()
			if hash != "" {
				fmt.Printf("  Deposit Tx:      %s\n", color.HiBlackString(hash))
			}
		}
	}

	// Display destination chain transactions (withdrawals)
	destTxs := swapDetails.GetDestinationChainTxHashes()
	if len(destTxs) > 0 {
		for _, tx := range destTxs {
			hash := tx.GetHash()
			if hash != "" {
				fmt.Printf("  Withdrawal Tx:   %s\n", color.HiBlackString(hash))
			}
		}
	}

	// Display amounts if available
	if swapDetails.HasAmountInFormatted() {
		fmt.Printf("  Amount In:       %s\n", swapDetails.GetAmountInFormatted())
	}
	if swapDetails.HasAmountOutFormatted() {
		fmt.Printf("  Amount Out:      %s\n", swapDetails.GetAmountOutFormatted())
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "SUCCESS", "COMPLETED":
		return color.GreenString(status)
	case "PENDING_DEPOSIT", "PENDING", "PROCESSING":
		return color.YellowString(status)
	case "FAILED", "REFUNDED":
		return color.RedString(status)
	case "INCOMPLETE_DEPOSIT":
		return color.MagentaString(status)
	default:
		return status
	}
}
