package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"token-convert/pkg/parser"
	"token-convert/pkg/types"
)

// Options configures a Controller
type Options struct {
	Chain           string
	NativeSymbol    string
	NativeDecimals  int32
	Slippage        decimal.Decimal
	ProviderFeeRate decimal.Decimal
	PopularSymbols  []string
}

// Deps are the collaborators a Controller drives
type Deps struct {
	Provider Provider
	Prices   PriceSource
	Wallet   Wallet
	Notifier Notifier
	Router   Router
	History  History // Optional
	Logger   *zap.Logger
}

// Controller owns the convert state and the actions that change it
type Controller struct {
	store    *Store
	opts     Options
	provider Provider
	prices   PriceSource
	wallet   Wallet
	notifier Notifier
	router   Router
	history  History
	log      *zap.Logger
}

// NewController creates a controller with a fresh store
func NewController(deps Deps, opts Options) *Controller {
	if opts.NativeDecimals == 0 {
		opts.NativeDecimals = 18
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		store:    NewStore(newState(opts)),
		opts:     opts,
		provider: deps.Provider,
		prices:   deps.Prices,
		wallet:   deps.Wallet,
		notifier: deps.Notifier,
		router:   deps.Router,
		history:  deps.History,
		log:      logger.With(zap.String("route", deps.Provider.Name()), zap.String("chain", opts.Chain)),
	}
}

// Store exposes the observable state
func (c *Controller) Store() *Store {
	return c.store
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	return c.store.Get()
}

// Initialize loads tokens, prices, balances and the current gas price
func (c *Controller) Initialize(ctx context.Context) error {
	if err := c.FetchTokens(ctx); err != nil {
		return err
	}
	if err := c.FetchPrices(ctx); err != nil {
		return err
	}

	// Balances and gas only refine the view; a failure leaves them at zero
	if err := c.FetchBalances(ctx); err != nil {
		c.log.Warn("Failed to fetch balances", zap.Error(err))
	}
	if err := c.FetchInitialGasPrice(ctx); err != nil {
		c.log.Warn("Failed to fetch gas price", zap.Error(err))
	}

	c.store.Update(func(s *State) {
		s.Initialized = true
	})
	return nil
}

// FetchTokens loads the token list from the provider
func (c *Controller) FetchTokens(ctx context.Context) error {
	tokens, err := c.provider.Tokens(ctx)
	if err != nil {
		c.store.Update(func(s *State) {
			s.FetchError = true
		})
		return fmt.Errorf("failed to fetch tokens: %w", err)
	}

	popular := popularTokens(tokens, c.opts.PopularSymbols)

	c.store.Update(func(s *State) {
		s.Tokens = tokens
		s.PopularTokens = popular
	})

	c.log.Debug("Tokens loaded", zap.Int("count", len(tokens)), zap.Int("popular", len(popular)))
	return nil
}

// FetchPrices refreshes the USD price map, the network price and the selected token prices
func (c *Controller) FetchPrices(ctx context.Context) error {
	c.store.Update(func(s *State) {
		s.LoadingPrices = true
	})

	prices, err := c.prices.Prices(ctx, c.opts.Chain)
	if err != nil {
		c.store.Update(func(s *State) {
			s.LoadingPrices = false
			s.FetchError = true
		})
		return fmt.Errorf("failed to fetch prices: %w", err)
	}

	normalized := make(map[string]decimal.Decimal, len(prices))
	for addr, price := range prices {
		normalized[strings.ToLower(addr)] = price
	}

	c.store.Update(func(s *State) {
		s.LoadingPrices = false
		s.FetchError = false
		s.TokensPriceMap = normalized
		s.NetworkPrice = normalized[nativeKey]
		s.NetworkBalanceInUSD = s.NetworkBalance.Mul(s.NetworkPrice)
		if s.SourceToken != nil {
			s.SourceTokenPriceInUSD = priceOf(normalized, *s.SourceToken)
		}
		if s.ToToken != nil {
			s.ToTokenPriceInUSD = priceOf(normalized, *s.ToToken)
		}
		c.applyGas(s)
	})

	c.log.Debug("Prices loaded", zap.Int("count", len(normalized)))
	return nil
}

// FetchBalances loads the native balance and the balances of popular and selected tokens
func (c *Controller) FetchBalances(ctx context.Context) error {
	native, err := c.wallet.NativeBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch native balance: %w", err)
	}

	snapshot := c.store.Get()
	networkBalance := FromSmallestUnit(native, c.opts.NativeDecimals)

	candidates := make([]types.Token, 0, len(snapshot.PopularTokens)+2)
	candidates = append(candidates, snapshot.PopularTokens...)
	if snapshot.SourceToken != nil {
		candidates = append(candidates, *snapshot.SourceToken)
	}
	if snapshot.ToToken != nil {
		candidates = append(candidates, *snapshot.ToToken)
	}

	seen := make(map[string]bool)
	balances := make([]TokenBalance, 0, len(candidates))
	for _, token := range candidates {
		if seen[token.Key()] {
			continue
		}
		seen[token.Key()] = true

		var amount decimal.Decimal
		if token.IsNative() {
			amount = networkBalance
		} else {
			raw, err := c.wallet.TokenBalance(ctx, token)
			if err != nil {
				c.log.Warn("Failed to fetch token balance", zap.String("token", token.Symbol), zap.Error(err))
				continue
			}
			amount = FromSmallestUnit(raw, token.Decimals)
		}

		if amount.IsZero() {
			continue
		}
		balances = append(balances, TokenBalance{
			Token:      token,
			Balance:    amount,
			ValueInUSD: amount.Mul(priceOf(snapshot.TokensPriceMap, token)),
		})
	}

	c.store.Update(func(s *State) {
		s.NetworkBalance = networkBalance
		s.NetworkBalanceInUSD = networkBalance.Mul(s.NetworkPrice)
		s.MyTokensWithBalance = balances
		c.applyGas(s)
	})
	return nil
}

// FetchInitialGasPrice stores the wallet's current gas price
func (c *Controller) FetchInitialGasPrice(ctx context.Context) error {
	gasPrice, err := c.wallet.GasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gas price: %w", err)
	}

	c.store.Update(func(s *State) {
		s.GasPrice = gasPrice
	})
	return nil
}

// FindToken looks a token up by symbol or address in the loaded list
func (c *Controller) FindToken(query string) (*types.Token, error) {
	query = strings.TrimSpace(query)
	symbol := parser.NormalizeTokenSymbol(query)
	snapshot := c.store.Get()

	if strings.EqualFold(symbol, c.opts.NativeSymbol) {
		for _, token := range snapshot.Tokens {
			if token.IsNative() {
				return &token, nil
			}
		}
	}

	for _, token := range snapshot.Tokens {
		if strings.EqualFold(token.Address, query) || strings.EqualFold(token.Symbol, query) {
			return &token, nil
		}
	}
	for _, token := range snapshot.Tokens {
		if strings.EqualFold(token.Symbol, symbol) {
			return &token, nil
		}
	}

	return nil, fmt.Errorf("token '%s' not found on %s", query, c.opts.Chain)
}

// SetSourceToken selects the token to convert from; nil clears it
func (c *Controller) SetSourceToken(token *types.Token) {
	c.store.Update(func(s *State) {
		s.clearQuote()
		if token == nil {
			s.SourceToken = nil
			s.SourceTokenAmount = ""
			s.SourceTokenPriceInUSD = decimal.Zero
			return
		}

		t := *token
		s.SourceToken = &t
		s.SourceTokenPriceInUSD = priceOf(s.TokensPriceMap, t)
	})
}

// SetToToken selects the token to convert to; nil clears it
func (c *Controller) SetToToken(token *types.Token) {
	c.store.Update(func(s *State) {
		s.clearQuote()
		if token == nil {
			s.ToToken = nil
			s.ToTokenAmount = ""
			s.ToTokenPriceInUSD = decimal.Zero
			return
		}

		t := *token
		s.ToToken = &t
		s.ToTokenPriceInUSD = priceOf(s.TokensPriceMap, t)
	})
}

// SetSourceTokenAmount stores the amount typed by the user and, until a quote
// arrives, estimates the destination amount from USD prices
func (c *Controller) SetSourceTokenAmount(amount string) error {
	return c.setAmount(amount, func(s *State, v string) {
		s.SourceTokenAmount = v

		parsed, _ := ParseAmount(v)
		estimate := ToTokenAmount(s.SourceToken, s.ToToken, s.SourceTokenPriceInUSD, s.ToTokenPriceInUSD, parsed)
		if estimate == "0" {
			estimate = ""
		}
		s.ToTokenAmount = estimate
	})
}

// SetToTokenAmount stores the destination amount
func (c *Controller) SetToTokenAmount(amount string) error {
	return c.setAmount(amount, func(s *State, v string) {
		s.ToTokenAmount = v
	})
}

func (c *Controller) setAmount(amount string, set func(*State, string)) error {
	amount = strings.TrimSpace(amount)
	if _, err := ParseAmount(amount); err != nil {
		c.store.Update(func(s *State) {
			s.InputError = InputErrInvalidAmount
		})
		return err
	}

	c.store.Update(func(s *State) {
		s.clearQuote()
		s.InputError = ""
		set(s, amount)
	})
	return nil
}

// SetSlippage sets the accepted slippage in percent
func (c *Controller) SetSlippage(percent string) error {
	value, err := decimal.NewFromString(strings.TrimSpace(percent))
	if err != nil || value.IsNegative() || value.GreaterThan(decimal.NewFromInt(50)) {
		return fmt.Errorf("slippage must be a percentage between 0 and 50, got %q", percent)
	}

	c.store.Update(func(s *State) {
		s.Slippage = value
		if amount, err := ParseAmount(s.ToTokenAmount); err == nil {
			s.MaxSlippage = MaxSlippage(value, amount)
		}
	})
	return nil
}

// SwitchTokens swaps source and destination and re-quotes the previous output amount
func (c *Controller) SwitchTokens(ctx context.Context) error {
	c.store.Update(func(s *State) {
		s.clearQuote()
		s.SourceToken, s.ToToken = s.ToToken, s.SourceToken
		s.SourceTokenPriceInUSD, s.ToTokenPriceInUSD = s.ToTokenPriceInUSD, s.SourceTokenPriceInUSD
		s.SourceTokenAmount = s.ToTokenAmount
		s.ToTokenAmount = ""
		s.InputError = ""
	})

	snapshot := c.store.Get()
	amount, _ := ParseAmount(snapshot.SourceTokenAmount)
	if snapshot.SourceToken == nil || snapshot.ToToken == nil || !amount.IsPositive() {
		return nil
	}

	return c.FetchQuote(ctx)
}

// FetchQuote asks the provider for the destination amount, derives price impact,
// max slippage and provider fee, and prepares the next transaction
func (c *Controller) FetchQuote(ctx context.Context) error {
	snapshot := c.store.Get()
	source, dest, amount, err := selection(&snapshot)
	if err != nil {
		if errors.Is(err, ErrInvalidAmount) {
			c.store.Update(func(s *State) {
				s.InputError = InputErrInvalidAmount
			})
		}
		return err
	}

	c.store.Update(func(s *State) {
		s.clearQuote()
		s.LoadingQuote = true
		s.FetchError = false
	})

	quote, err := c.provider.Quote(ctx, QuoteParams{
		Source:   source,
		Dest:     dest,
		Amount:   ToSmallestUnit(amount, source.Decimals),
		From:     c.wallet.Address(),
		Slippage: snapshot.Slippage,
	})
	if err != nil {
		c.store.Update(func(s *State) {
			s.LoadingQuote = false
			s.FetchError = true
			s.ToTokenAmount = ""
		})
		c.log.Error("Quote failed", zap.String("source", source.Symbol), zap.String("dest", dest.Symbol), zap.Error(err))
		c.notifier.ShowError("Failed to fetch quote")
		return fmt.Errorf("failed to fetch quote: %w", err)
	}

	toAmount := FromSmallestUnit(quote.ToAmount, dest.Decimals)
	insufficient := false

	c.store.Update(func(s *State) {
		s.LoadingQuote = false
		s.ToTokenAmount = toAmount.String()
		c.applyQuote(s, amount, toAmount)

		balance := balanceOf(s, source)
		insufficient = IsInsufficientSourceToken(amount, balance)
		if insufficient {
			s.InputError = InputErrInsufficientBalance
		} else {
			s.InputError = ""
		}
	})

	c.log.Info("Quote fetched",
		zap.String("source", source.Symbol),
		zap.String("amount", amount.String()),
		zap.String("dest", dest.Symbol),
		zap.String("to_amount", toAmount.String()))

	if insufficient {
		return nil
	}

	return c.BuildTransaction(ctx)
}

// BuildTransaction prepares the approval transaction when one is required,
// otherwise the convert transaction
func (c *Controller) BuildTransaction(ctx context.Context) error {
	snapshot := c.store.Get()
	source, _, amount, err := selection(&snapshot)
	if err != nil {
		return err
	}

	c.store.Update(func(s *State) {
		s.LoadingBuildTransaction = true
	})
	defer c.store.Update(func(s *State) {
		s.LoadingBuildTransaction = false
	})

	needsApproval, err := c.provider.NeedsApproval(ctx, ApprovalParams{
		Token:  source,
		Owner:  c.wallet.Address(),
		Amount: ToSmallestUnit(amount, source.Decimals),
	})
	if err != nil {
		c.store.Update(func(s *State) {
			s.FetchError = true
		})
		return fmt.Errorf("failed to check allowance: %w", err)
	}

	if needsApproval {
		return c.CreateApprovalTransaction(ctx)
	}
	return c.CreateConvertTransaction(ctx)
}

// CreateApprovalTransaction builds the token approval and estimates its gas
func (c *Controller) CreateApprovalTransaction(ctx context.Context) error {
	snapshot := c.store.Get()
	source, _, amount, err := selection(&snapshot)
	if err != nil {
		return err
	}

	tx, err := c.provider.ApprovalTransaction(ctx, ApprovalParams{
		Token:  source,
		Owner:  c.wallet.Address(),
		Amount: ToSmallestUnit(amount, source.Decimals),
	})
	if err != nil {
		c.store.Update(func(s *State) {
			s.FetchError = true
		})
		return fmt.Errorf("failed to create approval transaction: %w", err)
	}

	tx.From = c.wallet.Address()
	if err := c.fillGas(ctx, tx, true); err != nil {
		return err
	}

	c.store.Update(func(s *State) {
		s.ApprovalTransaction = tx
		s.ConvertTransaction = nil
		s.ConvertDeposit = ""
		c.applyGas(s)
	})

	c.log.Info("Approval transaction ready",
		zap.String("token", source.Symbol),
		zap.String("to", tx.To),
		zap.Uint64("gas", tx.Gas))
	return nil
}

// CreateConvertTransaction builds the convert transaction and estimates its gas
// when the provider did not
func (c *Controller) CreateConvertTransaction(ctx context.Context) error {
	snapshot := c.store.Get()
	source, dest, amount, err := selection(&snapshot)
	if err != nil {
		return err
	}

	result, err := c.provider.ConvertTransaction(ctx, QuoteParams{
		Source:   source,
		Dest:     dest,
		Amount:   ToSmallestUnit(amount, source.Decimals),
		From:     c.wallet.Address(),
		Slippage: snapshot.Slippage,
	})
	if err != nil {
		c.store.Update(func(s *State) {
			s.FetchError = true
		})
		return fmt.Errorf("failed to create convert transaction: %w", err)
	}

	tx := result.Tx
	tx.From = c.wallet.Address()
	if err := c.fillGas(ctx, tx, tx.Gas == 0); err != nil {
		return err
	}

	c.store.Update(func(s *State) {
		s.ConvertTransaction = tx
		s.ConvertDeposit = result.DepositAddress
		s.ApprovalTransaction = nil
		if result.ToAmount != nil {
			toAmount := FromSmallestUnit(result.ToAmount, dest.Decimals)
			s.ToTokenAmount = toAmount.String()
			c.applyQuote(s, amount, toAmount)
		}
		c.applyGas(s)
	})

	c.log.Info("Convert transaction ready",
		zap.String("to", tx.To),
		zap.String("deposit", result.DepositAddress),
		zap.Uint64("gas", tx.Gas))
	return nil
}

// SendApprovalTransaction submits the pending approval, then prepares the convert transaction
func (c *Controller) SendApprovalTransaction(ctx context.Context) (string, error) {
	snapshot := c.store.Get()
	if snapshot.ApprovalTransaction == nil {
		return "", ErrNoTransaction
	}

	c.store.Update(func(s *State) {
		s.LoadingApprovalTransaction = true
		s.TransactionError = ""
	})

	hash, err := c.wallet.SendTransaction(ctx, snapshot.ApprovalTransaction)
	if err == nil {
		err = c.waitMined(ctx, hash)
	}
	if err != nil {
		c.failTransaction(err, func(s *State) {
			s.LoadingApprovalTransaction = false
		})
		return hash, fmt.Errorf("approval transaction failed: %w", err)
	}

	c.log.Info("Approval transaction sent", zap.String("hash", hash))

	c.store.Update(func(s *State) {
		s.ApprovalTransaction = nil
		s.LoadingApprovalTransaction = false
	})

	if err := c.CreateConvertTransaction(ctx); err != nil {
		return hash, err
	}
	return hash, nil
}

// SendConvertTransaction submits the pending convert transaction
func (c *Controller) SendConvertTransaction(ctx context.Context) (string, error) {
	snapshot := c.store.Get()
	if snapshot.ConvertTransaction == nil {
		return "", ErrNoTransaction
	}

	c.store.Update(func(s *State) {
		s.LoadingTransaction = true
		s.TransactionError = ""
	})

	hash, err := c.wallet.SendTransaction(ctx, snapshot.ConvertTransaction)
	if err != nil {
		c.failTransaction(err, func(s *State) {
			s.LoadingTransaction = false
		})
		return "", fmt.Errorf("convert transaction failed: %w", err)
	}

	c.log.Info("Convert transaction sent", zap.String("hash", hash))

	if submitter, ok := c.provider.(DepositSubmitter); ok && snapshot.ConvertDeposit != "" {
		if err := submitter.SubmitDeposit(ctx, snapshot.ConvertDeposit, hash); err != nil {
			c.log.Warn("Failed to submit deposit hash", zap.String("deposit", snapshot.ConvertDeposit), zap.Error(err))
		}
	}

	if c.history != nil {
		record := &types.Conversion{
			Route:          c.provider.Name(),
			Chain:          c.opts.Chain,
			From:           c.wallet.Address(),
			SourceToken:    snapshot.SourceToken.Symbol,
			SourceAmount:   snapshot.SourceTokenAmount,
			DestToken:      snapshot.ToToken.Symbol,
			DestAmount:     snapshot.ToTokenAmount,
			TxHash:         hash,
			DepositAddress: snapshot.ConvertDeposit,
			Status:         types.ConversionSubmitted,
		}
		if err := c.history.Add(record); err != nil {
			c.log.Warn("Failed to record conversion", zap.Error(err))
		}
	}

	c.notifier.ShowSuccess(fmt.Sprintf("Successfully converted %s %s to %s %s",
		snapshot.SourceTokenAmount, snapshot.SourceToken.Symbol,
		snapshot.ToTokenAmount, snapshot.ToToken.Symbol))
	c.router.Replace(ViewAccount)

	c.store.Update(func(s *State) {
		s.LoadingTransaction = false
	})
	c.ResetValues()

	if err := c.FetchBalances(ctx); err != nil {
		c.log.Warn("Failed to refresh balances", zap.Error(err))
	}

	return hash, nil
}

// OpenPreview routes to the preview view when the conversion can proceed
func (c *Controller) OpenPreview() error {
	if !c.CanConvert() {
		snapshot := c.store.Get()
		if snapshot.InputError != "" {
			return errors.New(snapshot.InputError)
		}
		return ErrNoTransaction
	}

	c.router.Replace(ViewConvertPreview)
	return nil
}

// ResetState restores every field to its default
func (c *Controller) ResetState() {
	c.store.Reset(newState(c.opts))
}

// ResetValues clears the selection and everything derived from it,
// keeping token lists, prices and network data
func (c *Controller) ResetValues() {
	c.store.Update(func(s *State) {
		s.clearQuote()
		s.SourceToken = nil
		s.SourceTokenAmount = ""
		s.SourceTokenPriceInUSD = decimal.Zero
		s.ToToken = nil
		s.ToTokenAmount = ""
		s.ToTokenPriceInUSD = decimal.Zero
		s.InputError = ""
		s.FetchError = false
		s.Slippage = c.opts.Slippage
	})
}

// HasInsufficientToken reports whether the source balance cannot cover the amount
func (c *Controller) HasInsufficientToken() bool {
	snapshot := c.store.Get()
	if snapshot.SourceToken == nil {
		return false
	}

	amount, err := ParseAmount(snapshot.SourceTokenAmount)
	if err != nil {
		return false
	}
	return IsInsufficientSourceToken(amount, balanceOf(&snapshot, *snapshot.SourceToken))
}

// HasInsufficientGas reports whether the native balance cannot pay for the pending transaction
func (c *Controller) HasInsufficientGas() bool {
	snapshot := c.store.Get()
	return c.insufficientGas(&snapshot)
}

// CanConvert reports whether a transaction is ready and nothing blocks it
func (c *Controller) CanConvert() bool {
	snapshot := c.store.Get()
	if snapshot.IsLoading() || snapshot.InputError != "" || snapshot.FetchError {
		return false
	}
	return snapshot.ApprovalTransaction != nil || snapshot.ConvertTransaction != nil
}

// fillGas completes the gas fields of tx from the wallet
func (c *Controller) fillGas(ctx context.Context, tx *types.TransactionRequest, estimate bool) error {
	if tx.GasPrice == nil {
		gasPrice, err := c.wallet.GasPrice(ctx)
		if err != nil {
			return fmt.Errorf("failed to get gas price: %w", err)
		}
		tx.GasPrice = gasPrice
	}

	if estimate {
		gas, err := c.wallet.EstimateGas(ctx, tx)
		if err != nil {
			c.store.Update(func(s *State) {
				s.FetchError = true
			})
			return fmt.Errorf("failed to estimate gas: %w", err)
		}
		tx.Gas = gas
	}

	return nil
}

// applyGas derives the gas fee fields from the pending transaction (must be called inside Update)
func (c *Controller) applyGas(s *State) {
	tx := s.ApprovalTransaction
	if tx == nil {
		tx = s.ConvertTransaction
	}
	if tx == nil {
		return
	}

	s.GasPrice = tx.GasPrice
	s.GasFee = GasFee(tx.Gas, tx.GasPrice)
	s.GasPriceInUSD = GasCostInUSD(s.NetworkPrice, tx.Gas, tx.GasPrice, c.opts.NativeDecimals)

	if s.InputError == "" && c.insufficientGas(s) {
		s.InputError = InputErrInsufficientGas
	} else if s.InputError == InputErrInsufficientGas && !c.insufficientGas(s) {
		s.InputError = ""
	}
}

// applyQuote derives price impact, max slippage and provider fee (must be called inside Update)
func (c *Controller) applyQuote(s *State, amount, toAmount decimal.Decimal) {
	s.PriceImpact = PriceImpact(amount, s.SourceTokenPriceInUSD, toAmount, s.ToTokenPriceInUSD)
	s.MaxSlippage = MaxSlippage(s.Slippage, toAmount)
	s.ProviderFee = ProviderFee(amount, c.opts.ProviderFeeRate)
}

func (c *Controller) insufficientGas(s *State) bool {
	if s.GasFee == nil {
		return false
	}

	// Without a network price compare in native units instead of USD
	if s.NetworkPrice.IsZero() {
		cost := FromSmallestUnit(s.GasFee, c.opts.NativeDecimals)
		return s.NetworkBalance.LessThan(cost)
	}
	return IsInsufficientNetworkTokenForGas(s.NetworkBalanceInUSD, s.GasPriceInUSD)
}

// failTransaction stores a display message for err and forwards it to the notifier
func (c *Controller) failTransaction(err error, reset func(*State)) {
	message := errorMessage(err)
	c.log.Error("Transaction failed", zap.Error(err))

	c.store.Update(func(s *State) {
		reset(s)
		s.TransactionError = message
	})
	c.notifier.ShowError(message)
}

func (c *Controller) waitMined(ctx context.Context, hash string) error {
	waiter, ok := c.wallet.(TransactionWaiter)
	if !ok {
		return nil
	}
	return waiter.WaitMined(ctx, hash)
}

var nativeKey = strings.ToLower(types.NativeTokenAddress)

// priceOf returns the USD price of token, zero when unknown
func priceOf(prices map[string]decimal.Decimal, token types.Token) decimal.Decimal {
	if token.IsNative() {
		return prices[nativeKey]
	}
	return prices[token.Key()]
}

// balanceOf returns the wallet balance of token from the last balance fetch
func balanceOf(s *State, token types.Token) decimal.Decimal {
	if token.IsNative() {
		return s.NetworkBalance
	}
	for _, b := range s.MyTokensWithBalance {
		if b.Token.Key() == token.Key() {
			return b.Balance
		}
	}
	return decimal.Zero
}

// selection validates the current tokens and amount
func selection(s *State) (types.Token, types.Token, decimal.Decimal, error) {
	if s.SourceToken == nil || s.ToToken == nil {
		return types.Token{}, types.Token{}, decimal.Zero, ErrNoTokens
	}

	amount, err := ParseAmount(s.SourceTokenAmount)
	if err != nil {
		return types.Token{}, types.Token{}, decimal.Zero, err
	}
	if !amount.IsPositive() {
		return types.Token{}, types.Token{}, decimal.Zero, fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	if ToSmallestUnit(amount, s.SourceToken.Decimals).Sign() <= 0 {
		return types.Token{}, types.Token{}, decimal.Zero, fmt.Errorf("%w: amount is below the precision of %s", ErrInvalidAmount, s.SourceToken.Symbol)
	}

	return *s.SourceToken, *s.ToToken, amount, nil
}

// popularTokens picks the tokens whose symbol is listed, in list order
func popularTokens(tokens []types.Token, symbols []string) []types.Token {
	popular := make([]types.Token, 0, len(symbols))
	for _, symbol := range symbols {
		for _, token := range tokens {
			if strings.EqualFold(token.Symbol, symbol) {
				popular = append(popular, token)
				break
			}
		}
	}
	return popular
}

// errorMessage shortens err to the first line for display
func errorMessage(err error) string {
	message := strings.TrimSpace(strings.SplitN(err.Error(), "\n", 2)[0])
	if message == "" {
		return "Transaction error"
	}
	return message
}
