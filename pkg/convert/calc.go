package convert

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"token-convert/pkg/types"
)

// DefaultProviderFeeRate is the share of the source amount kept by the provider
var DefaultProviderFeeRate = decimal.RequireFromString("0.0085")

var hundred = decimal.NewFromInt(100)

// ParseAmount parses a user supplied amount. Empty strings are zero.
func ParseAmount(amount string) (decimal.Decimal, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return decimal.Zero, nil
	}

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}

	return value, nil
}

// ToSmallestUnit converts a human amount to the token's smallest unit, truncating dust
func ToSmallestUnit(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromSmallestUnit converts a smallest-unit integer to a human amount
func FromSmallestUnit(value *big.Int, decimals int32) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -decimals)
}

// GasFee returns gas * gasPrice in the native token's smallest unit
func GasFee(gas uint64, gasPrice *big.Int) *big.Int {
	if gasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(gas), gasPrice)
}

// GasCostInNative returns the gas cost in whole native tokens
func GasCostInNative(gas uint64, gasPrice *big.Int, decimals int32) decimal.Decimal {
	return FromSmallestUnit(GasFee(gas, gasPrice), decimals)
}

// GasCostInUSD prices the gas cost with the native token price
func GasCostInUSD(networkPrice decimal.Decimal, gas uint64, gasPrice *big.Int, decimals int32) decimal.Decimal {
	return GasCostInNative(gas, gasPrice, decimals).Mul(networkPrice)
}

// PriceImpact is the percentage of USD value lost between input and output
func PriceImpact(sourceAmount, sourcePrice, toAmount, toPrice decimal.Decimal) decimal.Decimal {
	inputValue := sourceAmount.Mul(sourcePrice)
	if inputValue.IsZero() {
		return decimal.Zero
	}
	outputValue := toAmount.Mul(toPrice)

	return inputValue.Sub(outputValue).Div(inputValue).Mul(hundred)
}

// MaxSlippage is the amount of the destination token the user accepts to lose
func MaxSlippage(slippage, toAmount decimal.Decimal) decimal.Decimal {
	return toAmount.Mul(slippage.Div(hundred))
}

// ProviderFee is the provider's cut of the source amount
func ProviderFee(sourceAmount, feeRate decimal.Decimal) decimal.Decimal {
	return sourceAmount.Mul(feeRate)
}

// ToTokenAmount estimates the destination amount from USD prices.
// It returns "0" when either token, either price or the amount is missing.
func ToTokenAmount(source, to *types.Token, sourcePrice, toPrice, amount decimal.Decimal) string {
	if source == nil || to == nil || amount.IsZero() || sourcePrice.IsZero() || toPrice.IsZero() {
		return "0"
	}

	return amount.Mul(sourcePrice).Div(toPrice).Truncate(to.Decimals).String()
}

// IsInsufficientNetworkTokenForGas compares the native balance with the gas cost, both in USD
func IsInsufficientNetworkTokenForGas(networkBalanceInUSD, gasPriceInUSD decimal.Decimal) bool {
	if networkBalanceInUSD.IsZero() {
		return true
	}
	return networkBalanceInUSD.LessThan(gasPriceInUSD)
}

// IsInsufficientSourceToken reports whether balance cannot cover amount
func IsInsufficientSourceToken(amount, balance decimal.Decimal) bool {
	return balance.LessThan(amount)
}
