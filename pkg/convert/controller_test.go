package convert

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-convert/pkg/types"
)

type harness struct {
	c        *Controller
	provider *fakeProvider
	prices   *fakePrices
	wallet   *fakeWallet
	notifier *fakeNotifier
	router   *fakeRouter
	history  *fakeHistory
}

func newHarness(t *testing.T, setup ...func(*harness) Provider) *harness {
	t.Helper()

	h := &harness{
		provider: &fakeProvider{
			tokens: []types.Token{tokenETH, tokenUSDC, tokenDAI},
			quote:  big.NewInt(3_000_000_000), // 3000 USDC
		},
		prices: &fakePrices{prices: map[string]decimal.Decimal{
			strings.ToLower(types.NativeTokenAddress): decimal.NewFromInt(3000),
			tokenUSDC.Address:                         decimal.NewFromInt(1),
			strings.ToLower(tokenDAI.Address):         decimal.RequireFromString("0.999"),
		}},
		wallet: &fakeWallet{
			native:   eth(2),
			balances: map[string]*big.Int{strings.ToLower(tokenUSDC.Address): big.NewInt(5_000_000_000)},
			gas:      50000,
			hash:     "0xhash",
		},
		notifier: &fakeNotifier{},
		router:   &fakeRouter{},
		history:  &fakeHistory{},
	}

	var provider Provider = h.provider
	for _, fn := range setup {
		provider = fn(h)
	}

	h.c = NewController(Deps{
		Provider: provider,
		Prices:   h.prices,
		Wallet:   h.wallet,
		Notifier: h.notifier,
		Router:   h.router,
		History:  h.history,
	}, Options{
		Chain:           "eth",
		NativeSymbol:    "ETH",
		NativeDecimals:  18,
		Slippage:        decimal.RequireFromString("0.5"),
		ProviderFeeRate: DefaultProviderFeeRate,
		PopularSymbols:  []string{"ETH", "USDC"},
	})

	require.NoError(t, h.c.Initialize(context.Background()))
	return h
}

// selectPair picks the tokens and amount through the public actions
func (h *harness) selectPair(t *testing.T, source, dest types.Token, amount string) {
	t.Helper()
	h.c.SetSourceToken(&source)
	h.c.SetToToken(&dest)
	require.NoError(t, h.c.SetSourceTokenAmount(amount))
}

func decEqual(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestInitialize(t *testing.T) {
	h := newHarness(t)
	s := h.c.State()

	assert.True(t, s.Initialized)
	assert.False(t, s.FetchError)
	assert.False(t, s.IsLoading())
	assert.Len(t, s.Tokens, 3)
	require.Len(t, s.PopularTokens, 2)
	assert.Equal(t, "ETH", s.PopularTokens[0].Symbol)
	assert.Equal(t, "USDC", s.PopularTokens[1].Symbol)

	assert.Equal(t, "ETH", s.NetworkTokenSymbol)
	decEqual(t, "3000", s.NetworkPrice)
	decEqual(t, "2", s.NetworkBalance)
	decEqual(t, "6000", s.NetworkBalanceInUSD)
	decEqual(t, "1", s.TokensPriceMap[strings.ToLower(tokenUSDC.Address)])

	require.Len(t, s.MyTokensWithBalance, 2)
	decEqual(t, "5000", s.MyTokensWithBalance[1].Balance)
	decEqual(t, "5000", s.MyTokensWithBalance[1].ValueInUSD)
	assert.Equal(t, "30000000000", s.GasPrice.String())
}

func TestInitializePriceFailure(t *testing.T) {
	c := NewController(Deps{
		Provider: &fakeProvider{tokens: []types.Token{tokenETH}},
		Prices:   &fakePrices{err: errBoom},
		Wallet:   &fakeWallet{native: eth(1)},
		Notifier: &fakeNotifier{},
		Router:   &fakeRouter{},
	}, Options{Chain: "eth", NativeSymbol: "ETH"})

	err := c.Initialize(context.Background())
	require.ErrorIs(t, err, errBoom)

	s := c.State()
	assert.True(t, s.FetchError)
	assert.False(t, s.LoadingPrices)
	assert.False(t, s.Initialized)
}

func TestSetTokens(t *testing.T) {
	h := newHarness(t)

	h.c.SetSourceToken(&tokenUSDC)
	h.c.SetToToken(&tokenETH)
	require.NoError(t, h.c.SetSourceTokenAmount("10"))

	s := h.c.State()
	decEqual(t, "1", s.SourceTokenPriceInUSD)
	decEqual(t, "3000", s.ToTokenPriceInUSD)

	unknown := types.Token{Symbol: "XYZ", Address: "0x000000000000000000000000000000000000dEaD", Decimals: 18}
	h.c.SetToToken(&unknown)
	assert.True(t, h.c.State().ToTokenPriceInUSD.IsZero())

	h.c.SetSourceToken(nil)
	s = h.c.State()
	assert.Nil(t, s.SourceToken)
	assert.Empty(t, s.SourceTokenAmount)
	assert.True(t, s.SourceTokenPriceInUSD.IsZero())
}

func TestSetSourceTokenAmountValidation(t *testing.T) {
	h := newHarness(t)

	for _, input := range []string{"abc", "-1", "1..2"} {
		err := h.c.SetSourceTokenAmount(input)
		require.ErrorIs(t, err, ErrInvalidAmount, input)
		assert.Equal(t, InputErrInvalidAmount, h.c.State().InputError)
	}

	require.NoError(t, h.c.SetSourceTokenAmount(" 1.5 "))
	s := h.c.State()
	assert.Equal(t, "1.5", s.SourceTokenAmount)
	assert.Empty(t, s.InputError)

	require.NoError(t, h.c.SetToTokenAmount(""))
	assert.Empty(t, h.c.State().ToTokenAmount)
}

func TestFetchQuoteBuildsConvertTransaction(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "1")

	require.NoError(t, h.c.FetchQuote(context.Background()))

	s := h.c.State()
	assert.Equal(t, "3000", s.ToTokenAmount)
	decEqual(t, "0", s.PriceImpact)
	decEqual(t, "15", s.MaxSlippage)
	decEqual(t, "0.0085", s.ProviderFee)
	assert.Empty(t, s.InputError)

	require.NotNil(t, s.ConvertTransaction)
	assert.Nil(t, s.ApprovalTransaction)
	assert.Equal(t, h.wallet.Address(), s.ConvertTransaction.From)
	assert.Equal(t, uint64(150000), s.ConvertTransaction.Gas)
	assert.Equal(t, "3000000000000000", s.GasFee.String())
	decEqual(t, "9", s.GasPriceInUSD)

	assert.False(t, s.IsLoading())
	assert.True(t, h.c.CanConvert())
	assert.False(t, h.c.HasInsufficientGas())
	assert.Equal(t, 0, h.provider.approvalCalls)
}

func TestFetchQuotePriceImpact(t *testing.T) {
	h := newHarness(t)
	h.provider.quote = big.NewInt(2_970_000_000)
	h.selectPair(t, tokenETH, tokenUSDC, "1")

	require.NoError(t, h.c.FetchQuote(context.Background()))

	s := h.c.State()
	assert.Equal(t, "2970", s.ToTokenAmount)
	decEqual(t, "1", s.PriceImpact)
	decEqual(t, "14.85", s.MaxSlippage)
}

func TestFetchQuoteBuildsApprovalTransaction(t *testing.T) {
	h := newHarness(t)
	h.provider.needsApproval = true
	h.provider.quote = big.NewInt(33_300_000_000_000_000) // 0.0333 ETH
	h.selectPair(t, tokenUSDC, tokenETH, "100")

	require.NoError(t, h.c.FetchQuote(context.Background()))

	s := h.c.State()
	assert.Equal(t, "0.0333", s.ToTokenAmount)
	require.NotNil(t, s.ApprovalTransaction)
	assert.Nil(t, s.ConvertTransaction)
	assert.Equal(t, tokenUSDC.Address, s.ApprovalTransaction.To)
	assert.Equal(t, uint64(50000), s.ApprovalTransaction.Gas)
	assert.Equal(t, "1000000000000000", s.GasFee.String())
	decEqual(t, "3", s.GasPriceInUSD)
	assert.Equal(t, 0, h.provider.convertCalls)
}

func TestFetchQuoteInsufficientBalance(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "5")

	require.NoError(t, h.c.FetchQuote(context.Background()))

	s := h.c.State()
	assert.Equal(t, InputErrInsufficientBalance, s.InputError)
	assert.Nil(t, s.ConvertTransaction)
	assert.True(t, h.c.HasInsufficientToken())
	assert.False(t, h.c.CanConvert())
	assert.Equal(t, 0, h.provider.convertCalls)
	assert.Error(t, h.c.OpenPreview())
}

func TestFetchQuoteFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.quoteErr = errBoom
	h.selectPair(t, tokenETH, tokenUSDC, "1")

	err := h.c.FetchQuote(context.Background())
	require.ErrorIs(t, err, errBoom)

	s := h.c.State()
	assert.True(t, s.FetchError)
	assert.False(t, s.LoadingQuote)
	assert.Empty(t, s.ToTokenAmount)
	assert.Equal(t, []string{"Failed to fetch quote"}, h.notifier.errors)
}

func TestFetchQuoteRequiresSelection(t *testing.T) {
	h := newHarness(t)

	require.ErrorIs(t, h.c.FetchQuote(context.Background()), ErrNoTokens)

	h.selectPair(t, tokenETH, tokenUSDC, "0")
	require.ErrorIs(t, h.c.FetchQuote(context.Background()), ErrInvalidAmount)
	assert.Equal(t, 0, h.provider.quoteCalls)
}

func TestFetchQuoteGasEstimateFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.needsApproval = true
	h.wallet.gasErr = errBoom
	h.selectPair(t, tokenUSDC, tokenETH, "100")

	err := h.c.FetchQuote(context.Background())
	require.ErrorIs(t, err, errBoom)

	s := h.c.State()
	assert.True(t, s.FetchError)
	assert.False(t, s.LoadingBuildTransaction)
	assert.Nil(t, s.ApprovalTransaction)
}

func TestInsufficientGas(t *testing.T) {
	h := newHarness(t)
	h.wallet.native = new(big.Int)
	require.NoError(t, h.c.FetchBalances(context.Background()))

	h.selectPair(t, tokenUSDC, tokenDAI, "100")
	require.NoError(t, h.c.FetchQuote(context.Background()))

	s := h.c.State()
	require.NotNil(t, s.ConvertTransaction)
	assert.Equal(t, InputErrInsufficientGas, s.InputError)
	assert.True(t, h.c.HasInsufficientGas())
	assert.False(t, h.c.CanConvert())
}

func TestFundingClearsInsufficientGas(t *testing.T) {
	h := newHarness(t)
	h.wallet.native = new(big.Int)
	require.NoError(t, h.c.FetchBalances(context.Background()))

	h.selectPair(t, tokenUSDC, tokenDAI, "100")
	require.NoError(t, h.c.FetchQuote(context.Background()))
	require.Equal(t, InputErrInsufficientGas, h.c.State().InputError)

	h.wallet.native = eth(2)
	require.NoError(t, h.c.FetchBalances(context.Background()))

	s := h.c.State()
	assert.Empty(t, s.InputError)
	assert.False(t, h.c.HasInsufficientGas())
	assert.True(t, h.c.CanConvert())
}

func TestAmountBelowTokenPrecision(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenUSDC, tokenETH, "0.0000001")

	err := h.c.FetchQuote(context.Background())
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, InputErrInvalidAmount, h.c.State().InputError)
	assert.Equal(t, 0, h.provider.quoteCalls)
}

func TestZeroProviderFeeRate(t *testing.T) {
	h := newHarness(t)
	c := NewController(Deps{
		Provider: h.provider,
		Prices:   h.prices,
		Wallet:   h.wallet,
		Notifier: h.notifier,
		Router:   h.router,
		History:  h.history,
	}, Options{Chain: "eth", NativeSymbol: "ETH", Slippage: decimal.RequireFromString("0.5")})
	require.NoError(t, c.Initialize(context.Background()))

	c.SetSourceToken(&tokenETH)
	c.SetToToken(&tokenUSDC)
	require.NoError(t, c.SetSourceTokenAmount("1"))
	require.NoError(t, c.FetchQuote(context.Background()))

	assert.True(t, c.State().ProviderFee.IsZero())
}

func TestSourceAmountEstimatesDestination(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "2")
	assert.Equal(t, "6000", h.c.State().ToTokenAmount)

	unknown := types.Token{Symbol: "XYZ", Address: "0x000000000000000000000000000000000000dEaD", Decimals: 18}
	h.c.SetToToken(&unknown)
	require.NoError(t, h.c.SetSourceTokenAmount("2"))
	assert.Empty(t, h.c.State().ToTokenAmount)
}

func TestApproveThenConvert(t *testing.T) {
	h := newHarness(t)
	h.provider.needsApproval = true
	h.provider.quote = big.NewInt(33_300_000_000_000_000)
	h.selectPair(t, tokenUSDC, tokenETH, "100")
	require.NoError(t, h.c.FetchQuote(context.Background()))
	require.NoError(t, h.c.OpenPreview())

	hash, err := h.c.SendApprovalTransaction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)
	assert.Equal(t, []string{"0xhash"}, h.wallet.waited)

	s := h.c.State()
	assert.Nil(t, s.ApprovalTransaction)
	require.NotNil(t, s.ConvertTransaction)
	assert.False(t, s.LoadingApprovalTransaction)

	hash, err = h.c.SendConvertTransaction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xhash", hash)
	require.Len(t, h.wallet.sent, 2)
	assert.Equal(t, tokenUSDC.Address, h.wallet.sent[0].To)

	assert.Equal(t, []string{"Successfully converted 100 USDC to 0.0333 ETH"}, h.notifier.successes)
	assert.Equal(t, []string{ViewConvertPreview, ViewAccount}, h.router.views)

	require.Len(t, h.history.records, 1)
	record := h.history.records[0]
	assert.Equal(t, "fake", record.Route)
	assert.Equal(t, "USDC", record.SourceToken)
	assert.Equal(t, "100", record.SourceAmount)
	assert.Equal(t, "0.0333", record.DestAmount)
	assert.Equal(t, types.ConversionSubmitted, record.Status)

	s = h.c.State()
	assert.Nil(t, s.SourceToken)
	assert.Nil(t, s.ToToken)
	assert.Nil(t, s.ConvertTransaction)
	assert.Empty(t, s.SourceTokenAmount)
	assert.False(t, s.LoadingTransaction)
	assert.Len(t, s.Tokens, 3)
	assert.False(t, s.NetworkPrice.IsZero())
}

func TestSendConvertFailure(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "1")
	require.NoError(t, h.c.FetchQuote(context.Background()))

	h.wallet.sendErr = errors.New("execution reverted\nrevert data 0x")
	_, err := h.c.SendConvertTransaction(context.Background())
	require.Error(t, err)

	s := h.c.State()
	assert.Equal(t, "execution reverted", s.TransactionError)
	assert.False(t, s.LoadingTransaction)
	assert.NotNil(t, s.ConvertTransaction)
	assert.Equal(t, []string{"execution reverted"}, h.notifier.errors)
	assert.Empty(t, h.history.records)
}

func TestSendApprovalFailure(t *testing.T) {
	h := newHarness(t)
	h.provider.needsApproval = true
	h.selectPair(t, tokenUSDC, tokenETH, "100")
	require.NoError(t, h.c.FetchQuote(context.Background()))

	h.wallet.sendErr = errors.New("user rejected")
	_, err := h.c.SendApprovalTransaction(context.Background())
	require.Error(t, err)

	s := h.c.State()
	assert.Equal(t, "user rejected", s.TransactionError)
	assert.False(t, s.LoadingApprovalTransaction)
	assert.NotNil(t, s.ApprovalTransaction)
}

func TestSendWithoutTransaction(t *testing.T) {
	h := newHarness(t)

	_, err := h.c.SendApprovalTransaction(context.Background())
	require.ErrorIs(t, err, ErrNoTransaction)
	_, err = h.c.SendConvertTransaction(context.Background())
	require.ErrorIs(t, err, ErrNoTransaction)
}

func TestSwitchTokens(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "1")
	require.NoError(t, h.c.FetchQuote(context.Background()))

	h.provider.quote = big.NewInt(999_000_000_000_000_000) // 0.999 ETH
	require.NoError(t, h.c.SwitchTokens(context.Background()))

	s := h.c.State()
	assert.Equal(t, "USDC", s.SourceToken.Symbol)
	assert.Equal(t, "ETH", s.ToToken.Symbol)
	assert.Equal(t, "3000", s.SourceTokenAmount)
	assert.Equal(t, "0.999", s.ToTokenAmount)
	decEqual(t, "1", s.SourceTokenPriceInUSD)
	decEqual(t, "3000", s.ToTokenPriceInUSD)
	decEqual(t, "0.1", s.PriceImpact)
	assert.Equal(t, 2, h.provider.quoteCalls)
}

func TestSwitchTokensWithoutAmount(t *testing.T) {
	h := newHarness(t)
	h.c.SetSourceToken(&tokenETH)

	require.NoError(t, h.c.SwitchTokens(context.Background()))

	s := h.c.State()
	assert.Nil(t, s.SourceToken)
	assert.Equal(t, "ETH", s.ToToken.Symbol)
	assert.Equal(t, 0, h.provider.quoteCalls)
}

func TestDepositRouteSubmitsHash(t *testing.T) {
	var dp *depositProvider
	h := newHarness(t, func(h *harness) Provider {
		dp = &depositProvider{fakeProvider: *h.provider}
		dp.convertTx = &ConvertTransaction{
			Tx:             &types.TransactionRequest{To: "0xdeposit", Value: eth(1)},
			ToAmount:       big.NewInt(2_990_000_000),
			DepositAddress: "0xdeposit",
		}
		h.provider = &dp.fakeProvider
		return dp
	})
	h.selectPair(t, tokenETH, tokenUSDC, "1")
	require.NoError(t, h.c.FetchQuote(context.Background()))

	s := h.c.State()
	assert.Equal(t, "0xdeposit", s.ConvertDeposit)
	assert.Equal(t, "2990", s.ToTokenAmount)
	assert.Equal(t, uint64(50000), s.ConvertTransaction.Gas)

	_, err := h.c.SendConvertTransaction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xhash", dp.submitted["0xdeposit"])
	require.Len(t, h.history.records, 1)
	assert.Equal(t, "0xdeposit", h.history.records[0].DepositAddress)
}

func TestSetSlippage(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "1")
	require.NoError(t, h.c.FetchQuote(context.Background()))

	require.NoError(t, h.c.SetSlippage("1"))
	decEqual(t, "30", h.c.State().MaxSlippage)

	require.Error(t, h.c.SetSlippage("75"))
	require.Error(t, h.c.SetSlippage("x"))
}

func TestFindToken(t *testing.T) {
	h := newHarness(t)

	token, err := h.c.FindToken("usdc")
	require.NoError(t, err)
	assert.Equal(t, tokenUSDC.Address, token.Address)

	token, err = h.c.FindToken(strings.ToLower(tokenDAI.Address))
	require.NoError(t, err)
	assert.Equal(t, "DAI", token.Symbol)

	token, err = h.c.FindToken("eth")
	require.NoError(t, err)
	assert.True(t, token.IsNative())

	token, err = h.c.FindToken("ether")
	require.NoError(t, err)
	assert.True(t, token.IsNative())

	token, err = h.c.FindToken("usdc.e")
	require.NoError(t, err)
	assert.Equal(t, "USDC", token.Symbol)

	_, err = h.c.FindToken("NOPE")
	require.Error(t, err)
}

func TestResetState(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "1")
	require.NoError(t, h.c.SetSlippage("2"))

	h.c.ResetValues()
	s := h.c.State()
	assert.Nil(t, s.SourceToken)
	assert.Len(t, s.Tokens, 3)
	decEqual(t, "0.5", s.Slippage)

	h.c.ResetState()
	s = h.c.State()
	assert.False(t, s.Initialized)
	assert.Empty(t, s.Tokens)
	assert.Empty(t, s.TokensPriceMap)
	assert.True(t, s.NetworkPrice.IsZero())
	assert.Equal(t, "ETH", s.NetworkTokenSymbol)
}

func TestSubscribersSeeLoadingTransitions(t *testing.T) {
	h := newHarness(t)
	h.selectPair(t, tokenETH, tokenUSDC, "1")

	var sawQuoteLoading, sawBuildLoading bool
	unsubscribe := h.c.Store().Subscribe(func(s State) {
		sawQuoteLoading = sawQuoteLoading || s.LoadingQuote
		sawBuildLoading = sawBuildLoading || s.LoadingBuildTransaction
	})
	defer unsubscribe()

	require.NoError(t, h.c.FetchQuote(context.Background()))
	assert.True(t, sawQuoteLoading)
	assert.True(t, sawBuildLoading)
	assert.False(t, h.c.State().IsLoading())
}
