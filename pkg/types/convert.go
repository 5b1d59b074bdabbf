package types

import (
	"math/big"
	"strings"
	"time"
)

// NativeTokenAddress is the placeholder address used for a chain's native token
const NativeTokenAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// Token describes a convertible token
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Address  string `json:"address"`
	Decimals int32  `json:"decimals"`
	Chain    string `json:"chain,omitempty"`
	AssetID  string `json:"asset_id,omitempty"`
}

// Key returns the lookup key used for price maps
func (t Token) Key() string {
	return strings.ToLower(t.Address)
}

// IsNative reports whether the token is the chain's native token
func (t Token) IsNative() bool {
	return t.Address == "" || strings.EqualFold(t.Address, NativeTokenAddress)
}

// TransactionRequest is a transaction waiting to be signed and sent by the wallet
type TransactionRequest struct {
	From     string   `json:"from,omitempty"`
	To       string   `json:"to"`
	Data     []byte   `json:"data,omitempty"`
	Value    *big.Int `json:"value,omitempty"`
	Gas      uint64   `json:"gas,omitempty"`
	GasPrice *big.Int `json:"gas_price,omitempty"`

	// TokenMint is set for SPL token transfers on Solana
	TokenMint string `json:"token_mint,omitempty"`
}

// Clone returns a deep copy of the request
func (r *TransactionRequest) Clone() *TransactionRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.Data != nil {
		c.Data = append([]byte(nil), r.Data...)
	}
	if r.Value != nil {
		c.Value = new(big.Int).Set(r.Value)
	}
	if r.GasPrice != nil {
		c.GasPrice = new(big.Int).Set(r.GasPrice)
	}
	return &c
}

// ConvertRequest represents a user's convert command
type ConvertRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}

// ConversionStatus is the state of a submitted conversion
type ConversionStatus string

const (
	ConversionSubmitted ConversionStatus = "submitted" // Convert transaction broadcast
	ConversionCompleted ConversionStatus = "completed" // Provider reported success
	ConversionFailed    ConversionStatus = "failed"    // Provider reported failure or refund
)

// Conversion records a convert transaction sent from this wallet
type Conversion struct {
	ID             string           `json:"id"`
	Timestamp      time.Time        `json:"timestamp"`
	Route          string           `json:"route"`
	Chain          string           `json:"chain"`
	From           string           `json:"from"`
	SourceToken    string           `json:"source_token"`
	SourceAmount   string           `json:"source_amount"`
	DestToken      string           `json:"dest_token"`
	DestAmount     string           `json:"dest_amount"`
	TxHash         string           `json:"tx_hash"`
	DepositAddress string           `json:"deposit_address,omitempty"`
	Status         ConversionStatus `json:"status"`
}
