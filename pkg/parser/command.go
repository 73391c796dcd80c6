package parser

import (
	"fmt"
	"regexp"
	"strings"

	"sol-swap/pkg/types"
)

// addressMinLength is the shortest base58 rendering of a 32-byte key
const addressMinLength = 32

var swapPattern = regexp.MustCompile(`(?i)^(?:swap\s+)?(\d+(?:\.\d*)?|\.\d+)\s+(\S+)\s+(?:to|for|->)\s+(\S+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 SOL to USDC"
//   - "1.5 sol for bonk"
//   - "100 USDC to JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN"
//
// Symbols are normalized; mint addresses keep their case.
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	command = strings.Join(strings.Fields(command), " ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 SOL to USDC')")
	}

	return &types.SwapRequest{
		Amount:      matches[1],
		SourceToken: NormalizeToken(matches[2]),
		DestToken:   NormalizeToken(matches[3]),
	}, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.SourceToken == "" {
		return fmt.Errorf("source token is required")
	}
	if req.DestToken == "" {
		return fmt.Errorf("destination token is required")
	}
	if req.SourceToken == req.DestToken {
		return fmt.Errorf("source and destination token must differ")
	}
	return nil
}

// NormalizeToken normalizes a symbol and leaves anything that looks like a mint address untouched
func NormalizeToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= addressMinLength {
		return token
	}
	return NormalizeTokenSymbol(token)
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"WSOL":   "SOL",
		"SOLANA": "SOL",
		"USDCE":  "USDC",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
