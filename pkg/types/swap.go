package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// NativeMint is the wrapped SOL mint used by the aggregator for native SOL
const NativeMint = "So11111111111111111111111111111111111111112"

// NativeSOL is the identity of native SOL as quoted by the aggregator
var NativeSOL = TokenIdentity{
	Address:  NativeMint,
	Symbol:   "SOL",
	Name:     "Solana",
	Decimals: 9,
	LogoURI:  "https://raw.githubusercontent.com/solana-labs/token-list/main/assets/mainnet/So11111111111111111111111111111111111111112/logo.png",
	IsValid:  true,
}

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount      string
	SourceToken string
	DestToken   string
}

// TokenIdentity describes a token mint as known to the directory or validation gate.
// A value is never mutated after creation; a new lookup produces a new value.
type TokenIdentity struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name,omitempty"`
	Decimals int    `json:"decimals"`
	LogoURI  string `json:"logoURI,omitempty"`
	IsValid  bool   `json:"isValid"`
}

func (t TokenIdentity) String() string {
	return fmt.Sprintf("%s (%s)", t.Symbol, t.Address)
}

// CustomTokenRecord is a user-added token persisted by the token directory
type CustomTokenRecord struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance,omitempty"`
}

// Identity converts the record to a TokenIdentity
func (r CustomTokenRecord) Identity() TokenIdentity {
	return TokenIdentity{
		Address:  r.Address,
		Symbol:   r.Symbol,
		Name:     r.Name,
		Decimals: r.Decimals,
		IsValid:  true,
	}
}

// Quote is an aggregator price offer bound to the exact input tuple that produced it
type Quote struct {
	Input                TokenIdentity   `json:"input"`
	Output               TokenIdentity   `json:"output"`
	InAmountRaw          string          `json:"inAmount"`
	OutAmountRaw         string          `json:"outAmount"`
	OutAmountUI          string          `json:"outAmountUi"`
	OtherAmountThreshold string          `json:"otherAmountThreshold,omitempty"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	SlippageBps          int             `json:"slippageBps"`
	Route                json.RawMessage `json:"-"`
	RequestedAt          time.Time       `json:"requestedAt"`
}

// Key identifies the (input, output, raw amount, slippage) tuple a quote is valid for
func (q *Quote) Key() string {
	return QuoteKey(q.Input.Address, q.Output.Address, q.InAmountRaw, q.SlippageBps)
}

// QuoteKey renders the validity tuple of a quote
func QuoteKey(inputMint, outputMint, rawAmount string, slippageBps int) string {
	return fmt.Sprintf("%s|%s|%s|%d", inputMint, outputMint, rawAmount, slippageBps)
}

// SwapStatus is the lifecycle state of a submitted swap transaction
type SwapStatus string

const (
	SwapPending   SwapStatus = "pending"
	SwapConfirmed SwapStatus = "confirmed"
	SwapFailed    SwapStatus = "failed"
	SwapUnknown   SwapStatus = "unknown"
)

// IsTerminal reports whether no further transition is possible
func (s SwapStatus) IsTerminal() bool {
	return s == SwapConfirmed || s == SwapFailed || s == SwapUnknown
}

// SwapOutcome is the result of one submitted swap transaction
type SwapOutcome struct {
	TransactionID string     `json:"txid"`
	Status        SwapStatus `json:"status"`
	// OnChainErr carries the error reported by the network for failed swaps
	OnChainErr interface{} `json:"onChainErr,omitempty"`
	// Err is set when the confirmation check itself failed
	Err error `json:"-"`
}

// Succeeded is true only for confirmed swaps
func (o *SwapOutcome) Succeeded() bool {
	return o != nil && o.Status == SwapConfirmed
}
