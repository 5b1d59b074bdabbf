package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"token-convert/config"
	"token-convert/pkg/client"
	"token-convert/pkg/types"
)

var (
	filterChain  string
	filterSymbol string
	allChains    bool
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List the tokens the configured route can convert",
	Long: `List the tokens the configured route can convert, with their USD price.

By default the tokens of the configured network are listed. Use --all to list
every token 1Click supports, grouped by blockchain.

Examples:
  token-convert list-tokens
  token-convert list-tokens --symbol USD
  token-convert list-tokens --all --chain sol`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by blockchain (with --all)")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	tokensCmd.Flags().BoolVar(&allChains, "all", false, "List 1Click tokens on every blockchain")
}

// listedToken is a token with its USD price, zero when unknown
type listedToken struct {
	types.Token
	PriceUSD decimal.Decimal `json:"price_usd"`
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Get tokens with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}

	tokens, err := fetchListedTokens(cmd.Context(), cfg)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filters
	filtered := make([]listedToken, 0, len(tokens))
	for _, token := range tokens {
		if filterChain != "" && !strings.EqualFold(token.Chain, filterChain) {
			continue
		}
		if filterSymbol != "" && !strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(filterSymbol)) {
			continue
		}
		filtered = append(filtered, token)
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(filtered)
	}
}

// fetchListedTokens loads the route's tokens and prices them with 1Click
func fetchListedTokens(ctx context.Context, cfg *config.Config) ([]listedToken, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	oneClick := client.NewOneClickClient(cfg.JWTToken, cfg.BaseURL)

	if allChains {
		responses, err := oneClick.GetSupportedTokens(ctx)
		if err != nil {
			return nil, err
		}

		tokens := make([]listedToken, 0, len(responses))
		for _, r := range responses {
			tokens = append(tokens, listedToken{
				Token:    client.TokenFromResponse(r),
				PriceUSD: decimal.NewFromFloat(float64(r.GetPrice())),
			})
		}
		return tokens, nil
	}

	var (
		routeTokens []types.Token
		err         error
	)
	if cfg.Route == config.RouteIntents {
		routeTokens, err = oneClick.Tokens(ctx, cfg.Network.Chain)
	} else {
		routeTokens, err = client.NewAggregatorClient(cfg.Aggregator, cfg.Network.ChainID, cfg.Network.Chain).Tokens(ctx)
	}
	if err != nil {
		return nil, err
	}

	prices, err := oneClick.Prices(ctx, cfg.Network.Chain)
	if err != nil {
		// Prices are informative only
		prices = map[string]decimal.Decimal{}
	}

	tokens := make([]listedToken, 0, len(routeTokens))
	for _, t := range routeTokens {
		tokens = append(tokens, listedToken{Token: t, PriceUSD: prices[t.Key()]})
	}
	return tokens, nil
}

func displayTokens(tokens []listedToken) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	// Group tokens by blockchain
	tokensByChain := make(map[string][]listedToken)
	for _, token := range tokens {
		tokensByChain[token.Chain] = append(tokensByChain[token.Chain], token)
	}

	// Sort chains alphabetically
	chains := make([]string, 0, len(tokensByChain))
	for chain := range tokensByChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	// Display tokens grouped by chain
	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		chainTokens := tokensByChain[chain]
		sort.Slice(chainTokens, func(i, j int) bool { return chainTokens[i].Symbol < chainTokens[j].Symbol })

		for _, token := range chainTokens {
			address := token.Address
			if token.IsNative() {
				address = "native"
			}

			// Truncate address if too long
			if len(address) > 40 {
				address = address[:37] + "..."
			}

			price := "-"
			if token.PriceUSD.IsPositive() {
				price = "$" + token.PriceUSD.StringFixed(4)
			}

			fmt.Printf("  %-10s  %2d decimals  %14s  %s\n",
				color.YellowString(token.Symbol),
				token.Decimals,
				price,
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d blockchains\n\n", len(tokens), len(chains))
}
