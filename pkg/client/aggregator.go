package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"token-convert/config"
	"token-convert/pkg/convert"
	"token-convert/pkg/types"
)

// AggregatorClient talks to a 1inch-style swap API for same-chain conversions
type AggregatorClient struct {
	baseURL string
	apiKey  string
	chainID int64
	chain   string
	client  *http.Client
}

// NewAggregatorClient creates an aggregator client for one EVM chain
func NewAggregatorClient(cfg config.AggregatorConfig, chainID int64, chain string) *AggregatorClient {
	return &AggregatorClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		chainID: chainID,
		chain:   chain,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// aggregatorToken is a token entry of /tokens
type aggregatorToken struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
}

// aggregatorTx is the transaction object returned by /swap and /approve/transaction
type aggregatorTx struct {
	From     string          `json:"from"`
	To       string          `json:"to"`
	Data     string          `json:"data"`
	Value    string          `json:"value"`
	Gas      uint64          `json:"gas"`
	GasPrice json.RawMessage `json:"gasPrice"`
}

// APIError is a non-2xx answer from the aggregator
type APIError struct {
	StatusCode  int    `json:"statusCode"`
	Description string `json:"description"`
	Message     string `json:"error"`
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("aggregator error (status %d): %s", e.StatusCode, e.Description)
	}
	if e.Message != "" {
		return fmt.Sprintf("aggregator error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("aggregator returned status %d", e.StatusCode)
}

// Name identifies the route in logs and history
func (a *AggregatorClient) Name() string {
	return config.RouteAggregator
}

// Tokens lists the tokens the aggregator can route on its chain
func (a *AggregatorClient) Tokens(ctx context.Context) ([]types.Token, error) {
	var resp struct {
		Tokens map[string]aggregatorToken `json:"tokens"`
	}
	if err := a.get(ctx, "/tokens", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	tokens := make([]types.Token, 0, len(resp.Tokens))
	for _, t := range resp.Tokens {
		tokens = append(tokens, types.Token{
			Symbol:   strings.ToUpper(t.Symbol),
			Name:     t.Name,
			Address:  t.Address,
			Decimals: t.Decimals,
			Chain:    a.chain,
		})
	}

	// The API returns a map; native first, then by symbol and address
	sort.Slice(tokens, func(i, j int) bool {
		if tokens[i].IsNative() != tokens[j].IsNative() {
			return tokens[i].IsNative()
		}
		if tokens[i].Symbol != tokens[j].Symbol {
			return tokens[i].Symbol < tokens[j].Symbol
		}
		return tokens[i].Key() < tokens[j].Key()
	})

	return tokens, nil
}

// Quote asks for the destination amount of a conversion
func (a *AggregatorClient) Quote(ctx context.Context, params convert.QuoteParams) (*convert.Quote, error) {
	query := url.Values{}
	query.Set("src", params.Source.Address)
	query.Set("dst", params.Dest.Address)
	query.Set("amount", params.Amount.String())

	var resp struct {
		DstAmount string `json:"dstAmount"`
	}
	if err := a.get(ctx, "/quote", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}

	toAmount, err := parseBig(resp.DstAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid dstAmount: %w", err)
	}

	return &convert.Quote{ToAmount: toAmount}, nil
}

// NeedsApproval reports whether the router's allowance is below the amount.
// Native tokens never need approval.
func (a *AggregatorClient) NeedsApproval(ctx context.Context, params convert.ApprovalParams) (bool, error) {
	if params.Token.IsNative() {
		return false, nil
	}

	query := url.Values{}
	query.Set("tokenAddress", params.Token.Address)
	query.Set("walletAddress", params.Owner)

	var resp struct {
		Allowance string `json:"allowance"`
	}
	if err := a.get(ctx, "/approve/allowance", query, &resp); err != nil {
		return false, fmt.Errorf("failed to get allowance: %w", err)
	}

	allowance, err := parseBig(resp.Allowance)
	if err != nil {
		return false, fmt.Errorf("invalid allowance: %w", err)
	}

	return allowance.Cmp(params.Amount) < 0, nil
}

// ApprovalTransaction builds an approve transaction for exactly the amount
func (a *AggregatorClient) ApprovalTransaction(ctx context.Context, params convert.ApprovalParams) (*types.TransactionRequest, error) {
	query := url.Values{}
	query.Set("tokenAddress", params.Token.Address)
	if params.Amount != nil {
		query.Set("amount", params.Amount.String())
	}

	var resp aggregatorTx
	if err := a.get(ctx, "/approve/transaction", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to get approval transaction: %w", err)
	}

	tx, err := resp.toRequest()
	if err != nil {
		return nil, err
	}
	tx.From = params.Owner

	return tx, nil
}

// ConvertTransaction builds the swap transaction
func (a *AggregatorClient) ConvertTransaction(ctx context.Context, params convert.QuoteParams) (*convert.ConvertTransaction, error) {
	query := url.Values{}
	query.Set("src", params.Source.Address)
	query.Set("dst", params.Dest.Address)
	query.Set("amount", params.Amount.String())
	query.Set("from", params.From)
	query.Set("origin", params.From)
	query.Set("slippage", params.Slippage.String())
	// Gas is estimated by the wallet
	query.Set("disableEstimate", "true")

	var resp struct {
		DstAmount string       `json:"dstAmount"`
		Tx        aggregatorTx `json:"tx"`
	}
	if err := a.get(ctx, "/swap", query, &resp); err != nil {
		return nil, fmt.Errorf("failed to build swap: %w", err)
	}

	tx, err := resp.Tx.toRequest()
	if err != nil {
		return nil, err
	}

	toAmount, err := parseBig(resp.DstAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid dstAmount: %w", err)
	}

	return &convert.ConvertTransaction{Tx: tx, ToAmount: toAmount}, nil
}

// get performs a GET under {base}/{chainId} and decodes the JSON answer into out
func (a *AggregatorClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	endpoint := fmt.Sprintf("%s/%d%s", a.baseURL, a.chainID, path)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		_ = json.Unmarshal(body, apiErr)
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

func (t aggregatorTx) toRequest() (*types.TransactionRequest, error) {
	data, err := hexutil.Decode(t.Data)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction data: %w", err)
	}

	value := new(big.Int)
	if t.Value != "" {
		if value, err = parseBig(t.Value); err != nil {
			return nil, fmt.Errorf("invalid transaction value: %w", err)
		}
	}

	tx := &types.TransactionRequest{
		From:  t.From,
		To:    t.To,
		Data:  data,
		Value: value,
		Gas:   t.Gas,
	}

	gasPrice, err := parseGasPrice(t.GasPrice)
	if err != nil {
		return nil, err
	}
	tx.GasPrice = gasPrice

	return tx, nil
}

// parseGasPrice accepts a decimal string or number; absent means unknown (nil)
func parseGasPrice(raw json.RawMessage) (*big.Int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	s := strings.Trim(string(raw), `"`)
	if s == "" {
		return nil, nil
	}

	gasPrice, err := parseBig(s)
	if err != nil {
		return nil, fmt.Errorf("invalid gas price: %w", err)
	}
	return gasPrice, nil
}

// parseBig parses a decimal or 0x-prefixed integer string
func parseBig(s string) (*big.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeBig(s)
	}

	value, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return value, nil
}
