package convert

import (
	"context"
	"errors"
	"math/big"

	"github.com/shopspring/decimal"

	"token-convert/pkg/types"
)

var (
	ErrNoTokens      = errors.New("source and destination tokens must be selected")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNoTransaction = errors.New("no transaction to send")
)

// Views the router can be asked to show
const (
	ViewConvert        = "Convert"
	ViewConvertPreview = "ConvertPreview"
	ViewAccount        = "Account"
)

// QuoteParams describes a conversion of Amount (smallest unit) of Source into Dest
type QuoteParams struct {
	Source   types.Token
	Dest     types.Token
	Amount   *big.Int
	From     string
	Slippage decimal.Decimal
}

// Quote is the provider's answer for QuoteParams
type Quote struct {
	ToAmount *big.Int
}

// ApprovalParams asks whether the route may move Amount of Token on behalf of Owner
type ApprovalParams struct {
	Token  types.Token
	Owner  string
	Amount *big.Int
}

// ConvertTransaction is a ready-to-sign convert transaction
type ConvertTransaction struct {
	Tx             *types.TransactionRequest
	ToAmount       *big.Int
	DepositAddress string
}

// Provider builds quotes and transactions for one conversion route
type Provider interface {
	Name() string
	Tokens(ctx context.Context) ([]types.Token, error)
	Quote(ctx context.Context, params QuoteParams) (*Quote, error)
	NeedsApproval(ctx context.Context, params ApprovalParams) (bool, error)
	ApprovalTransaction(ctx context.Context, params ApprovalParams) (*types.TransactionRequest, error)
	ConvertTransaction(ctx context.Context, params QuoteParams) (*ConvertTransaction, error)
}

// DepositSubmitter is implemented by providers that want to hear about deposit hashes
type DepositSubmitter interface {
	SubmitDeposit(ctx context.Context, depositAddress, txHash string) error
}

// PriceSource returns USD prices keyed by lowercase token address.
// The native token is keyed by the lowercase types.NativeTokenAddress.
type PriceSource interface {
	Prices(ctx context.Context, chain string) (map[string]decimal.Decimal, error)
}

// Wallet is the connected account that estimates gas and sends transactions
type Wallet interface {
	Address() string
	NativeBalance(ctx context.Context) (*big.Int, error)
	TokenBalance(ctx context.Context, token types.Token) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, tx *types.TransactionRequest) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.TransactionRequest) (string, error)
}

// TransactionWaiter is implemented by wallets that can block until a transaction is mined
type TransactionWaiter interface {
	WaitMined(ctx context.Context, hash string) error
}

// Notifier shows short messages to the user
type Notifier interface {
	ShowSuccess(message string)
	ShowError(message string)
}

// Router switches between views
type Router interface {
	Replace(view string)
}

// History records submitted conversions
type History interface {
	Add(conversion *types.Conversion) error
}
