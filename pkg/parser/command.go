package parser

import (
	"fmt"
	"regexp"
	"strings"

	"token-convert/pkg/types"
)

var convertPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)\s+([A-Z0-9.]+|0X[0-9A-F]{40})\s+(?:TO|FOR|->)\s+([A-Z0-9.]+|0X[0-9A-F]{40})$`)

// ParseConvertCommand parses a natural language convert command
// Examples:
//   - "convert 1 ETH to USDC"
//   - "1.5 WETH for DAI"
//   - "100 USDC -> 0xA0b8...eB48"
func ParseConvertCommand(command string) (*types.ConvertRequest, error) {
	command = strings.Join(strings.Fields(strings.ToUpper(command)), " ")
	command = strings.TrimPrefix(command, "CONVERT ")
	command = strings.TrimPrefix(command, "SWAP ")

	matches := convertPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid convert command format. Expected: 'convert <amount> <token> to <token>' (e.g., 'convert 1 ETH to USDC')")
	}

	return &types.ConvertRequest{
		Amount:      matches[1],
		SourceToken: normalizeAddress(matches[2]),
		DestToken:   normalizeAddress(matches[3]),
	}, nil
}

// ValidateConvertRequest validates that a convert request has all required fields
func ValidateConvertRequest(req *types.ConvertRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	if strings.EqualFold(req.SourceToken, req.DestToken) {
		return fmt.Errorf("source and destination tokens must differ")
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"ETHER":  "ETH",
		"USDC.E": "USDC",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}

// normalizeAddress restores the lowercase 0x prefix lost by upper-casing the command
func normalizeAddress(token string) string {
	if strings.HasPrefix(token, "0X") && len(token) == 42 {
		return "0x" + strings.ToLower(token[2:])
	}
	return token
}
