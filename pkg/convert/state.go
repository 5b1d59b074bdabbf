package convert

import (
	"math/big"

	"github.com/shopspring/decimal"

	"token-convert/pkg/types"
)

// Input errors surfaced to the user next to the amount field
const (
	InputErrInvalidAmount       = "Invalid amount"
	InputErrInsufficientBalance = "Insufficient balance"
	InputErrInsufficientGas     = "Insufficient gas"
)

// TokenBalance is a token held by the connected wallet
type TokenBalance struct {
	Token      types.Token     `json:"token"`
	Balance    decimal.Decimal `json:"balance"`
	ValueInUSD decimal.Decimal `json:"value_in_usd"`
}

// State is the observable record behind the convert screens.
// Amounts are numeric strings; unknown prices are zero.
type State struct {
	Initialized                bool `json:"initialized"`
	LoadingPrices              bool `json:"loading_prices"`
	LoadingQuote               bool `json:"loading_quote"`
	LoadingApprovalTransaction bool `json:"loading_approval_transaction"`
	LoadingBuildTransaction    bool `json:"loading_build_transaction"`
	LoadingTransaction         bool `json:"loading_transaction"`
	FetchError                 bool `json:"fetch_error"`

	ApprovalTransaction *types.TransactionRequest `json:"approval_transaction,omitempty"`
	ConvertTransaction  *types.TransactionRequest `json:"convert_transaction,omitempty"`
	// ConvertDeposit is the deposit address behind ConvertTransaction, if the route uses one
	ConvertDeposit   string `json:"convert_deposit,omitempty"`
	TransactionError string `json:"transaction_error,omitempty"`
	InputError       string `json:"input_error,omitempty"`

	SourceToken           *types.Token    `json:"source_token,omitempty"`
	SourceTokenAmount     string          `json:"source_token_amount"`
	SourceTokenPriceInUSD decimal.Decimal `json:"source_token_price_in_usd"`
	ToToken               *types.Token    `json:"to_token,omitempty"`
	ToTokenAmount         string          `json:"to_token_amount"`
	ToTokenPriceInUSD     decimal.Decimal `json:"to_token_price_in_usd"`

	NetworkPrice        decimal.Decimal `json:"network_price"`
	NetworkBalance      decimal.Decimal `json:"network_balance"`
	NetworkBalanceInUSD decimal.Decimal `json:"network_balance_in_usd"`
	NetworkTokenSymbol  string          `json:"network_token_symbol"`

	Slippage decimal.Decimal `json:"slippage"`

	Tokens              []types.Token              `json:"tokens,omitempty"`
	PopularTokens       []types.Token              `json:"popular_tokens,omitempty"`
	MyTokensWithBalance []TokenBalance             `json:"my_tokens_with_balance,omitempty"`
	TokensPriceMap      map[string]decimal.Decimal `json:"tokens_price_map,omitempty"`

	GasPrice      *big.Int        `json:"gas_price,omitempty"`
	GasFee        *big.Int        `json:"gas_fee,omitempty"`
	GasPriceInUSD decimal.Decimal `json:"gas_price_in_usd"`
	PriceImpact   decimal.Decimal `json:"price_impact"`
	MaxSlippage   decimal.Decimal `json:"max_slippage"`
	ProviderFee   decimal.Decimal `json:"provider_fee"`
}

// IsLoading reports whether any network round trip is in flight
func (s State) IsLoading() bool {
	return s.LoadingPrices || s.LoadingQuote || s.LoadingApprovalTransaction ||
		s.LoadingBuildTransaction || s.LoadingTransaction
}

// Clone returns a deep copy so snapshots never alias the store
func (s *State) Clone() State {
	c := *s

	c.ApprovalTransaction = s.ApprovalTransaction.Clone()
	c.ConvertTransaction = s.ConvertTransaction.Clone()
	if s.SourceToken != nil {
		t := *s.SourceToken
		c.SourceToken = &t
	}
	if s.ToToken != nil {
		t := *s.ToToken
		c.ToToken = &t
	}
	if s.Tokens != nil {
		c.Tokens = append([]types.Token(nil), s.Tokens...)
	}
	if s.PopularTokens != nil {
		c.PopularTokens = append([]types.Token(nil), s.PopularTokens...)
	}
	if s.MyTokensWithBalance != nil {
		c.MyTokensWithBalance = append([]TokenBalance(nil), s.MyTokensWithBalance...)
	}
	if s.TokensPriceMap != nil {
		c.TokensPriceMap = make(map[string]decimal.Decimal, len(s.TokensPriceMap))
		for k, v := range s.TokensPriceMap {
			c.TokensPriceMap[k] = v
		}
	}
	if s.GasPrice != nil {
		c.GasPrice = new(big.Int).Set(s.GasPrice)
	}
	if s.GasFee != nil {
		c.GasFee = new(big.Int).Set(s.GasFee)
	}

	return c
}

// clearQuote drops everything derived from the current selection and amount
func (s *State) clearQuote() {
	s.ApprovalTransaction = nil
	s.ConvertTransaction = nil
	s.ConvertDeposit = ""
	s.TransactionError = ""
	s.GasFee = nil
	s.GasPriceInUSD = decimal.Zero
	s.PriceImpact = decimal.Zero
	s.MaxSlippage = decimal.Zero
	s.ProviderFee = decimal.Zero
}

// newState returns the defaults the store starts from and resets to
func newState(opts Options) State {
	return State{
		NetworkTokenSymbol: opts.NativeSymbol,
		Slippage:           opts.Slippage,
		TokensPriceMap:     map[string]decimal.Decimal{},
	}
}
