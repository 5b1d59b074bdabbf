package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"token-convert/config"
	"token-convert/pkg/client"
	"token-convert/pkg/convert"
	"token-convert/pkg/history"
	"token-convert/pkg/logging"
	"token-convert/pkg/wallet"
)

// consoleNotifier prints controller messages to the terminal
type consoleNotifier struct {
	quiet bool
}

func (n consoleNotifier) ShowSuccess(message string) {
	if !n.quiet {
		color.Green("\n✓ %s", message)
	}
}

func (n consoleNotifier) ShowError(message string) {
	if !n.quiet {
		color.Red("\n✗ %s", message)
	}
}

// consoleRouter remembers the view the controller asked for
type consoleRouter struct {
	view    string
	verbose bool
}

func (r *consoleRouter) Replace(view string) {
	r.view = view
	if r.verbose {
		fmt.Printf("Debug: view -> %s\n", view)
	}
}

// session bundles a controller with everything it was wired to
type session struct {
	cfg        *config.Config
	controller *convert.Controller
	oneClick   *client.OneClickClient
	wallet     wallet.Wallet
	history    *history.Storage
	router     *consoleRouter
	logger     *zap.Logger
	unwatch    func()
}

// newSession loads configuration and wires the controller for the configured route
func newSession(verbose, quiet bool) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	w, err := wallet.Open(*cfg)
	if err != nil {
		return nil, err
	}

	store, err := history.NewStorage(cfg.HistoryPath)
	if err != nil {
		w.Close()
		return nil, err
	}

	oneClick := client.NewOneClickClient(cfg.JWTToken, cfg.BaseURL)

	var provider convert.Provider
	switch cfg.Route {
	case config.RouteIntents:
		provider = client.NewDepositRoute(oneClick, cfg.Network.Chain, cfg.Network.Family)
	default:
		provider = client.NewAggregatorClient(cfg.Aggregator, cfg.Network.ChainID, cfg.Network.Chain)
	}

	router := &consoleRouter{view: convert.ViewConvert, verbose: verbose}
	controller := convert.NewController(convert.Deps{
		Provider: provider,
		Prices:   oneClick,
		Wallet:   w,
		Notifier: consoleNotifier{quiet: quiet},
		Router:   router,
		History:  store,
		Logger:   logger,
	}, convert.Options{
		Chain:           cfg.Network.Chain,
		NativeSymbol:    cfg.Network.NativeSymbol,
		NativeDecimals:  cfg.Network.NativeDecimals,
		Slippage:        decimal.NewFromFloat(cfg.Convert.Slippage),
		ProviderFeeRate: decimal.NewFromFloat(cfg.Convert.ProviderFee),
		PopularSymbols:  cfg.Convert.PopularSymbols,
	})

	logger.Info("Session started",
		zap.String("route", cfg.Route),
		zap.String("chain", cfg.Network.Chain),
		zap.String("wallet", w.Address()))

	return &session{
		cfg:        cfg,
		controller: controller,
		oneClick:   oneClick,
		wallet:     w,
		history:    store,
		router:     router,
		logger:     logger,
	}, nil
}

// watchLoading drives a spinner from the store's loading flags
func (s *session) watchLoading() {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)

	s.unwatch = s.controller.Store().Subscribe(func(state convert.State) {
		suffix := loadingMessage(state)
		if suffix == "" {
			if sp.Active() {
				sp.Stop()
			}
			return
		}

		sp.Suffix = " " + suffix
		if !sp.Active() {
			sp.Start()
		}
	})
}

// Close releases the wallet connection and flushes logs
func (s *session) Close() {
	if s.unwatch != nil {
		s.unwatch()
	}
	s.wallet.Close()
	_ = s.logger.Sync()
}

func loadingMessage(state convert.State) string {
	switch {
	case state.LoadingTransaction:
		return "Sending convert transaction..."
	case state.LoadingApprovalTransaction:
		return "Sending approval transaction..."
	case state.LoadingBuildTransaction:
		return "Preparing transaction..."
	case state.LoadingQuote:
		return "Fetching quote..."
	case state.LoadingPrices:
		return "Fetching prices..."
	default:
		return ""
	}
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
