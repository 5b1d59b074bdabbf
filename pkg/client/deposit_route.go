package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	oneclick "github.com/defuse-protocol/one-click-sdk-go"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"token-convert/config"
	"token-convert/pkg/convert"
	"token-convert/pkg/types"
)

// ErrNoApproval is returned when an approval is requested from a route that never needs one
var ErrNoApproval = errors.New("deposit route does not use approvals")

// ERC20 transfer function ABI
const erc20TransferABI = `[{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

var erc20Transfer = mustParseABI(erc20TransferABI)

var hundredBps = decimal.NewFromInt(100)

// quoteDeadline bounds how long a deposit address accepts funds
const quoteDeadline = 24 * time.Hour

// QuoteRequester is the part of OneClickClient the deposit route needs
type QuoteRequester interface {
	Tokens(ctx context.Context, chain string) ([]types.Token, error)
	GetQuote(ctx context.Context, req *oneclick.QuoteRequest) (*oneclick.QuoteResponse, error)
	SubmitDepositTx(ctx context.Context, depositAddress, txHash string) error
}

// DepositRoute converts by sending the source token to a 1Click deposit address.
// The wallet's own address receives the destination token and any refund.
type DepositRoute struct {
	api    QuoteRequester
	chain  string
	family string
}

// NewDepositRoute creates a deposit route for chain on the given chain family
func NewDepositRoute(api QuoteRequester, chain, family string) *DepositRoute {
	return &DepositRoute{
		api:    api,
		chain:  strings.ToLower(chain),
		family: family,
	}
}

// Name identifies the route in logs and history
func (r *DepositRoute) Name() string {
	return config.RouteIntents
}

// Tokens lists the tokens 1Click supports on the route's chain
func (r *DepositRoute) Tokens(ctx context.Context) ([]types.Token, error) {
	return r.api.Tokens(ctx, r.chain)
}

// Quote runs a dry quote
func (r *DepositRoute) Quote(ctx context.Context, params convert.QuoteParams) (*convert.Quote, error) {
	quote, err := r.quote(ctx, params, true)
	if err != nil {
		return nil, err
	}

	toAmount, err := amountOut(quote)
	if err != nil {
		return nil, err
	}

	return &convert.Quote{ToAmount: toAmount}, nil
}

// NeedsApproval is always false: deposits are plain transfers
func (r *DepositRoute) NeedsApproval(ctx context.Context, params convert.ApprovalParams) (bool, error) {
	return false, nil
}

// ApprovalTransaction always fails with ErrNoApproval
func (r *DepositRoute) ApprovalTransaction(ctx context.Context, params convert.ApprovalParams) (*types.TransactionRequest, error) {
	return nil, ErrNoApproval
}

// ConvertTransaction reserves a deposit address and builds the transfer that funds it
func (r *DepositRoute) ConvertTransaction(ctx context.Context, params convert.QuoteParams) (*convert.ConvertTransaction, error) {
	quote, err := r.quote(ctx, params, false)
	if err != nil {
		return nil, err
	}

	depositAddress := quote.GetDepositAddress()
	if depositAddress == "" {
		return nil, fmt.Errorf("quote did not include a deposit address")
	}
	if quote.HasDepositMemo() {
		return nil, fmt.Errorf("deposit requires memo %q which this wallet cannot attach", quote.GetDepositMemo())
	}

	toAmount, err := amountOut(quote)
	if err != nil {
		return nil, err
	}

	tx, err := r.transferTransaction(params, depositAddress)
	if err != nil {
		return nil, err
	}

	return &convert.ConvertTransaction{
		Tx:             tx,
		ToAmount:       toAmount,
		DepositAddress: depositAddress,
	}, nil
}

// SubmitDeposit tells 1Click which transaction funded the deposit address
func (r *DepositRoute) SubmitDeposit(ctx context.Context, depositAddress, txHash string) error {
	return r.api.SubmitDepositTx(ctx, depositAddress, txHash)
}

func (r *DepositRoute) quote(ctx context.Context, params convert.QuoteParams, dry bool) (*oneclick.Quote, error) {
	if params.Source.AssetID == "" || params.Dest.AssetID == "" {
		return nil, fmt.Errorf("tokens %s and %s are not 1Click assets", params.Source.Symbol, params.Dest.Symbol)
	}
	if params.From == "" {
		return nil, fmt.Errorf("wallet address is required for a deposit quote")
	}

	slippageBps := params.Slippage.Mul(hundredBps).IntPart()

	req := oneclick.NewQuoteRequest(
		dry,                    // dry runs do not reserve a deposit address
		"EXACT_INPUT",          // swapType
		float32(slippageBps),   // slippageTolerance in basis points
		params.Source.AssetID,  // originAsset
		"ORIGIN_CHAIN",         // depositType
		params.Dest.AssetID,    // destinationAsset
		params.Amount.String(), // amount in smallest unit
		params.From,            // refundTo
		"ORIGIN_CHAIN",         // refundType
		params.From,            // recipient
		"DESTINATION_CHAIN",    // recipientType
		time.Now().Add(quoteDeadline),
	)

	resp, err := r.api.GetQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	quote := resp.GetQuote()
	return &quote, nil
}

// transferTransaction builds the deposit transfer for the route's chain family
func (r *DepositRoute) transferTransaction(params convert.QuoteParams, depositAddress string) (*types.TransactionRequest, error) {
	amount := new(big.Int).Set(params.Amount)

	if params.Source.IsNative() {
		return &types.TransactionRequest{From: params.From, To: depositAddress, Value: amount}, nil
	}

	if r.family == config.FamilySolana {
		return &types.TransactionRequest{
			From:      params.From,
			To:        depositAddress,
			Value:     amount,
			TokenMint: params.Source.Address,
		}, nil
	}

	data, err := ERC20TransferData(depositAddress, amount)
	if err != nil {
		return nil, err
	}

	return &types.TransactionRequest{
		From:  params.From,
		To:    params.Source.Address,
		Data:  data,
		Value: new(big.Int),
	}, nil
}

// ERC20TransferData packs transfer(to, amount)
func ERC20TransferData(to string, amount *big.Int) ([]byte, error) {
	if !common.IsHexAddress(to) {
		return nil, fmt.Errorf("invalid recipient address: %s", to)
	}

	data, err := erc20Transfer.Pack("transfer", common.HexToAddress(to), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer data: %w", err)
	}
	return data, nil
}

func amountOut(quote *oneclick.Quote) (*big.Int, error) {
	value, ok := new(big.Int).SetString(quote.GetAmountOut(), 10)
	if !ok {
		return nil, fmt.Errorf("invalid amountOut in quote: %q", quote.GetAmountOut())
	}
	return value, nil
}

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}
