// Package amount converts between human-readable token amounts and integer base units.
package amount

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is returned for any input that cannot be converted
const Zero = "0"

// MaxSlippageBps is 100%
const MaxSlippageBps = 10000

// maxInputLength bounds the text accepted as an amount
const maxInputLength = 100

// MaxRaw is the largest amount of base units a token account can hold
var MaxRaw = decimal.RequireFromString("18446744073709551615")

// ToRaw converts a UI amount to base units: floor(ui * 10^decimals).
// Empty, non-numeric and non-positive inputs yield "0".
// Amounts above MaxRaw yield "0" as well.
func ToRaw(ui string, decimals int) string {
	raw, ok := toRaw(ui, decimals)
	if !ok {
		return Zero
	}
	return raw.String()
}

// Exceeds reports whether ui is a valid amount whose base units are above MaxRaw
func Exceeds(ui string, decimals int) bool {
	d, ok := parsePositive(ui, decimals)
	return ok && d.Shift(int32(decimals)).Floor().GreaterThan(MaxRaw)
}

func toRaw(ui string, decimals int) (decimal.Decimal, bool) {
	d, ok := parsePositive(ui, decimals)
	if !ok {
		return decimal.Zero, false
	}
	raw := d.Shift(int32(decimals)).Floor()
	if raw.GreaterThan(MaxRaw) {
		return decimal.Zero, false
	}
	return raw, true
}

// ToUI converts base units to a UI amount: raw / 10^decimals, without trailing zeros.
// Empty, non-numeric and non-positive inputs yield "0".
func ToUI(raw string, decimals int) string {
	d, ok := parsePositive(raw, decimals)
	if !ok {
		return Zero
	}
	d = d.Floor()
	if d.Sign() <= 0 {
		return Zero
	}
	return d.Shift(-int32(decimals)).String()
}

// MinimumReceived applies slippage to a raw output amount: floor(raw * (10000 - bps) / 10000)
func MinimumReceived(raw string, slippageBps int) string {
	d, ok := parsePositive(raw, 0)
	if !ok || slippageBps < 0 || slippageBps > MaxSlippageBps {
		return Zero
	}
	factor := decimal.NewFromInt(int64(MaxSlippageBps - slippageBps))
	return d.Mul(factor).Div(decimal.NewFromInt(MaxSlippageBps)).Floor().String()
}

// IsPositive reports whether s parses as a number greater than zero
func IsPositive(s string) bool {
	_, ok := parsePositive(s, 0)
	return ok
}

func parsePositive(s string, decimals int) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	// exponent notation would let a short input expand without bound
	if s == "" || decimals < 0 || len(s) > maxInputLength || strings.ContainsAny(s, "eE") {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.Sign() <= 0 {
		return decimal.Zero, false
	}
	return d, true
}
