package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"token-convert/config"
	"token-convert/pkg/convert"
	"token-convert/pkg/parser"
	"token-convert/pkg/types"
)

var (
	noConfirm bool
	slippage  string
)

var convertCmd = &cobra.Command{
	Use:     "convert <amount> <source-token> to <dest-token>",
	Aliases: []string{"swap"},
	Short:   "Convert tokens held by the configured wallet",
	Long: `Convert tokens held by the configured wallet.

Tokens may be given by symbol or by contract address. When the route needs a
token approval it is sent first, then the convert transaction is prepared
again with fresh gas figures.

Examples:
  token-convert convert 1 ETH to USDC
  token-convert convert 250.5 USDC for DAI --slippage 1
  token-convert convert 0.1 0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48 -> ETH --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runConvert,
}

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <dest-token>",
	Short: "Preview a conversion without sending anything",
	Long: `Preview a conversion: destination amount, price impact, maximum slippage,
provider fee and gas cost. Nothing is signed or sent.

Examples:
  token-convert quote 1 ETH to USDC
  token-convert quote 1000 USDC to ETH --json`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(quoteCmd)

	convertCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompts")
	for _, c := range []*cobra.Command{convertCmd, quoteCmd} {
		c.Flags().StringVar(&slippage, "slippage", "", "Accepted slippage in percent (default from config)")
	}
}

func runConvert(cmd *cobra.Command, args []string) {
	if err := convertTokens(cmd, args); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func runQuote(cmd *cobra.Command, args []string) {
	if err := quoteTokens(cmd, args); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// convertTokens previews, confirms and sends a conversion.
// The session is closed before any error reaches runConvert.
func convertTokens(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, req, err := prepareConversion(ctx, args, verbose, jsonOutput)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctrl := sess.controller
	state := ctrl.State()
	if !jsonOutput {
		displayPreview(state, sess.cfg)
	}

	if err := ctrl.OpenPreview(); err != nil {
		return err
	}

	if !noConfirm && !jsonOutput {
		if !confirm(fmt.Sprintf("Convert %s %s to ~%s %s?", req.Amount, state.SourceToken.Symbol, state.ToTokenAmount, state.ToToken.Symbol)) {
			fmt.Println("\nConversion cancelled.")
			return nil
		}
	}

	if state.ApprovalTransaction != nil {
		if !jsonOutput {
			color.Yellow("\n%s needs an approval before it can be converted.", state.SourceToken.Symbol)
		}

		hash, err := ctrl.SendApprovalTransaction(ctx)
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Printf("  Approval Tx:     %s\n", color.HiBlackString(hash))
		}
		if !ctrl.CanConvert() {
			return blockingError(ctrl.State())
		}
	}

	state = ctrl.State()
	depositAddress := state.ConvertDeposit

	hash, err := ctrl.SendConvertTransaction(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		output := map[string]interface{}{
			"tx_hash":         hash,
			"route":           sess.cfg.Route,
			"source_token":    state.SourceToken.Symbol,
			"source_amount":   state.SourceTokenAmount,
			"dest_token":      state.ToToken.Symbol,
			"dest_amount":     state.ToTokenAmount,
			"deposit_address": depositAddress,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	fmt.Printf("  Convert Tx:      %s\n", color.HiBlackString(hash))
	if depositAddress != "" {
		fmt.Println("\nTrack the conversion with:")
		color.Cyan("  token-convert status %s\n", depositAddress)
	}
	fmt.Println()
	return nil
}

func quoteTokens(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, _, err := prepareConversion(ctx, args, verbose, jsonOutput)
	if err != nil {
		return err
	}
	defer sess.Close()

	state := sess.controller.State()
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(quoteSummary(state), "", "  ")
		fmt.Println(string(jsonData))
		return nil
	}

	displayPreview(state, sess.cfg)
	return nil
}

// prepareConversion parses args, initializes a session and fetches a quote for the request
func prepareConversion(ctx context.Context, args []string, verbose, jsonOutput bool) (*session, *types.ConvertRequest, error) {
	req, err := parser.ParseConvertCommand(strings.Join(args, " "))
	if err != nil {
		return nil, nil, err
	}
	if err := parser.ValidateConvertRequest(req); err != nil {
		return nil, nil, err
	}

	sess, err := newSession(verbose, jsonOutput)
	if err != nil {
		return nil, nil, err
	}
	if !jsonOutput {
		sess.watchLoading()
	}

	ctrl := sess.controller
	if err := ctrl.Initialize(ctx); err != nil {
		sess.Close()
		return nil, nil, err
	}

	source, err := ctrl.FindToken(req.SourceToken)
	if err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("source token error: %w", err)
	}
	dest, err := ctrl.FindToken(req.DestToken)
	if err != nil {
		sess.Close()
		return nil, nil, fmt.Errorf("destination token error: %w", err)
	}

	ctrl.SetSourceToken(source)
	ctrl.SetToToken(dest)
	if slippage != "" {
		if err := ctrl.SetSlippage(slippage); err != nil {
			sess.Close()
			return nil, nil, err
		}
	}
	if err := ctrl.SetSourceTokenAmount(req.Amount); err != nil {
		sess.Close()
		return nil, nil, err
	}

	// The selected tokens may not be among the popular ones loaded at start
	if err := ctrl.FetchBalances(ctx); err != nil && verbose {
		fmt.Printf("\nDebug: Failed to fetch balances: %v\n", err)
	}

	if err := ctrl.FetchQuote(ctx); err != nil {
		sess.Close()
		return nil, nil, err
	}

	return sess, req, nil
}

// blockingError explains why no transaction can be sent
func blockingError(state convert.State) error {
	switch {
	case state.InputError != "":
		return errors.New(state.InputError)
	case state.TransactionError != "":
		return errors.New(state.TransactionError)
	default:
		return convert.ErrNoTransaction
	}
}

func quoteSummary(state convert.State) map[string]interface{} {
	summary := map[string]interface{}{
		"source_token":     state.SourceToken.Symbol,
		"source_amount":    state.SourceTokenAmount,
		"dest_token":       state.ToToken.Symbol,
		"dest_amount":      state.ToTokenAmount,
		"price_impact":     state.PriceImpact.StringFixed(2),
		"max_slippage":     state.MaxSlippage.String(),
		"provider_fee":     state.ProviderFee.String(),
		"gas_cost_usd":     state.GasPriceInUSD.StringFixed(2),
		"needs_approval":   state.ApprovalTransaction != nil,
		"input_error":      state.InputError,
		"network_balance":  state.NetworkBalance.String(),
		"network_currency": state.NetworkTokenSymbol,
	}
	if state.ConvertDeposit != "" {
		summary["deposit_address"] = state.ConvertDeposit
	}
	return summary
}

func displayPreview(state convert.State, cfg *config.Config) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                   CONVERT PREVIEW")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Route:             %s\n", cfg.Route)
	fmt.Printf("  From:              %s %s", state.SourceTokenAmount, color.YellowString(state.SourceToken.Symbol))
	if amount, err := convert.ParseAmount(state.SourceTokenAmount); err == nil && state.SourceTokenPriceInUSD.IsPositive() {
		fmt.Printf(" (~$%s)", state.SourceTokenPriceInUSD.Mul(amount).StringFixed(2))
	}
	fmt.Println()
	fmt.Printf("  To:                ~%s %s\n", state.ToTokenAmount, color.YellowString(state.ToToken.Symbol))
	fmt.Printf("  Price Impact:      %s%%\n", state.PriceImpact.StringFixed(2))
	fmt.Printf("  Max Slippage:      %s %s (%s%%)\n", state.MaxSlippage.String(), state.ToToken.Symbol, state.Slippage.String())
	fmt.Printf("  Provider Fee:      %s %s\n", state.ProviderFee.String(), state.SourceToken.Symbol)

	if state.GasFee != nil {
		gasCost := convert.FromSmallestUnit(state.GasFee, cfg.Network.NativeDecimals)
		fmt.Printf("  Network Fee:       %s %s (~$%s)\n", gasCost.String(), state.NetworkTokenSymbol, state.GasPriceInUSD.StringFixed(2))
	}
	if state.ConvertDeposit != "" {
		fmt.Printf("  Deposit Address:   %s\n", color.CyanString(state.ConvertDeposit))
	}
	if state.ApprovalTransaction != nil {
		fmt.Printf("  Approval:          %s\n", color.YellowString("required"))
	}
	if state.InputError != "" {
		fmt.Printf("  Warning:           %s\n", color.RedString(state.InputError))
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
}
