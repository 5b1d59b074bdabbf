package convert

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"token-convert/pkg/types"
)

var (
	tokenETH  = types.Token{Symbol: "ETH", Address: types.NativeTokenAddress, Decimals: 18, Chain: "eth"}
	tokenUSDC = types.Token{Symbol: "USDC", Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6, Chain: "eth"}
	tokenDAI  = types.Token{Symbol: "DAI", Address: "0x6B175474E89094C44Da98b954EedeAC495271d0F", Decimals: 18, Chain: "eth"}
)

type fakeProvider struct {
	tokens        []types.Token
	quote         *big.Int
	quoteErr      error
	needsApproval bool
	approvalErr   error
	convertTx     *ConvertTransaction
	convertErr    error

	quoteCalls    int
	approvalCalls int
	convertCalls  int
	submitted     map[string]string
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Tokens(ctx context.Context) ([]types.Token, error) {
	return p.tokens, nil
}

func (p *fakeProvider) Quote(ctx context.Context, params QuoteParams) (*Quote, error) {
	p.quoteCalls++
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	return &Quote{ToAmount: p.quote}, nil
}

func (p *fakeProvider) NeedsApproval(ctx context.Context, params ApprovalParams) (bool, error) {
	return p.needsApproval, p.approvalErr
}

func (p *fakeProvider) ApprovalTransaction(ctx context.Context, params ApprovalParams) (*types.TransactionRequest, error) {
	p.approvalCalls++
	return &types.TransactionRequest{
		To:       params.Token.Address,
		Data:     []byte{0x09, 0x5e, 0xa7, 0xb3},
		GasPrice: big.NewInt(20_000_000_000),
	}, nil
}

func (p *fakeProvider) ConvertTransaction(ctx context.Context, params QuoteParams) (*ConvertTransaction, error) {
	p.convertCalls++
	if p.convertErr != nil {
		return nil, p.convertErr
	}
	if p.convertTx != nil {
		c := *p.convertTx
		c.Tx = p.convertTx.Tx.Clone()
		return &c, nil
	}
	return &ConvertTransaction{
		Tx: &types.TransactionRequest{
			To:       "0x1111111254EEB25477B68fb85Ed929f73A960582",
			Data:     []byte{0x12, 0xaa, 0x3c, 0xaf},
			Value:    new(big.Int),
			Gas:      150000,
			GasPrice: big.NewInt(20_000_000_000),
		},
		ToAmount: p.quote,
	}, nil
}

type depositProvider struct {
	fakeProvider
}

func (p *depositProvider) SubmitDeposit(ctx context.Context, depositAddress, txHash string) error {
	if p.submitted == nil {
		p.submitted = make(map[string]string)
	}
	p.submitted[depositAddress] = txHash
	return nil
}

type fakePrices struct {
	prices map[string]decimal.Decimal
	err    error
}

func (p *fakePrices) Prices(ctx context.Context, chain string) (map[string]decimal.Decimal, error) {
	return p.prices, p.err
}

type fakeWallet struct {
	native   *big.Int
	balances map[string]*big.Int
	gas      uint64
	gasErr   error
	sendErr  error
	hash     string

	sent   []*types.TransactionRequest
	waited []string
	mu     sync.Mutex
}

func (w *fakeWallet) Address() string { return "0x00000000000000000000000000000000000000aa" }

func (w *fakeWallet) NativeBalance(ctx context.Context) (*big.Int, error) {
	return w.native, nil
}

func (w *fakeWallet) TokenBalance(ctx context.Context, token types.Token) (*big.Int, error) {
	if b, ok := w.balances[strings.ToLower(token.Address)]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (w *fakeWallet) GasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}

func (w *fakeWallet) EstimateGas(ctx context.Context, tx *types.TransactionRequest) (uint64, error) {
	return w.gas, w.gasErr
}

func (w *fakeWallet) SendTransaction(ctx context.Context, tx *types.TransactionRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.sendErr != nil {
		return "", w.sendErr
	}
	w.sent = append(w.sent, tx.Clone())
	return w.hash, nil
}

func (w *fakeWallet) WaitMined(ctx context.Context, hash string) error {
	w.waited = append(w.waited, hash)
	return nil
}

type fakeNotifier struct {
	successes []string
	errors    []string
}

func (n *fakeNotifier) ShowSuccess(message string) { n.successes = append(n.successes, message) }
func (n *fakeNotifier) ShowError(message string)   { n.errors = append(n.errors, message) }

type fakeRouter struct {
	views []string
}

func (r *fakeRouter) Replace(view string) { r.views = append(r.views, view) }

type fakeHistory struct {
	records []*types.Conversion
	err     error
}

func (h *fakeHistory) Add(conversion *types.Conversion) error {
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, conversion)
	return nil
}

var errBoom = errors.New("boom")

// eth returns n ETH in wei
func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}
