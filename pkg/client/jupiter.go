package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"sol-swap/pkg/logging"
	"sol-swap/pkg/types"
)

const (
	DefaultJupiterBaseURL = "https://quote-api.jup.ag/v6"
	DefaultTimeout        = 15 * time.Second
)

// JupiterClient talks to the Jupiter aggregator HTTP API
type JupiterClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewJupiterClient creates a new aggregator client
func NewJupiterClient(baseURL string, timeout time.Duration, logger *zap.Logger) *JupiterClient {
	if baseURL == "" {
		baseURL = DefaultJupiterBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &JupiterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.OrNop(logger),
	}
}

// QuoteParams is the input tuple of a quote request, amounts in base units
type QuoteParams struct {
	InputMint   string
	OutputMint  string
	Amount      string
	SlippageBps int
}

// QuoteResponse is the aggregator's quote. Raw keeps the exact response body,
// which must be echoed back unchanged when requesting the swap transaction.
type QuoteResponse struct {
	InputMint            string          `json:"inputMint"`
	InAmount             string          `json:"inAmount"`
	OutputMint           string          `json:"outputMint"`
	OutAmount            string          `json:"outAmount"`
	OtherAmountThreshold string          `json:"otherAmountThreshold"`
	SwapMode             string          `json:"swapMode"`
	SlippageBps          int             `json:"slippageBps"`
	PriceImpactPct       string          `json:"priceImpactPct"`
	RoutePlan            json.RawMessage `json:"routePlan"`
	ContextSlot          uint64          `json:"contextSlot"`
	TimeTaken            float64         `json:"timeTaken"`

	Raw json.RawMessage `json:"-"`
}

// SwapParams builds a swap transaction for a previously fetched quote
type SwapParams struct {
	QuoteResponse                 json.RawMessage
	UserPublicKey                 string
	WrapAndUnwrapSol              bool
	ComputeUnitPriceMicroLamports uint64
}

type swapRequestBody struct {
	QuoteResponse                 json.RawMessage `json:"quoteResponse"`
	UserPublicKey                 string          `json:"userPublicKey"`
	WrapAndUnwrapSol              bool            `json:"wrapAndUnwrapSol"`
	FeeAccount                    *string         `json:"feeAccount"`
	ComputeUnitPriceMicroLamports uint64          `json:"computeUnitPriceMicroLamports,omitempty"`
}

// SwapResponse carries the unsigned, base64-encoded swap transaction
type SwapResponse struct {
	SwapTransaction           string `json:"swapTransaction"`
	LastValidBlockHeight      uint64 `json:"lastValidBlockHeight"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports"`
}

// GetQuote requests a price quote for swapping Amount of InputMint into OutputMint
func (c *JupiterClient) GetQuote(ctx context.Context, p QuoteParams) (*QuoteResponse, error) {
	const op = "jupiter quote"

	q := url.Values{}
	q.Set("inputMint", p.InputMint)
	q.Set("outputMint", p.OutputMint)
	q.Set("amount", p.Amount)
	q.Set("slippageBps", strconv.Itoa(p.SlippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewError(types.KindInvalidInput, op, "failed to build request", err)
	}

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var resp QuoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, externalErr(op, "failed to decode quote", err)
	}
	if resp.OutAmount == "" {
		return nil, externalErr(op, "quote response has no outAmount", nil)
	}
	resp.Raw = json.RawMessage(body)

	c.logger.Debug("quote received",
		zap.String("input_mint", p.InputMint),
		zap.String("output_mint", p.OutputMint),
		zap.String("in_amount", resp.InAmount),
		zap.String("out_amount", resp.OutAmount),
	)
	return &resp, nil
}

// Swap asks the aggregator to build the swap transaction for a quote
func (c *JupiterClient) Swap(ctx context.Context, p SwapParams) (*SwapResponse, error) {
	const op = "jupiter swap"

	if len(p.QuoteResponse) == 0 {
		return nil, types.NewError(types.KindInvalidInput, op, "quote response is required", nil)
	}
	payload, err := json.Marshal(swapRequestBody{
		QuoteResponse:                 p.QuoteResponse,
		UserPublicKey:                 p.UserPublicKey,
		WrapAndUnwrapSol:              p.WrapAndUnwrapSol,
		ComputeUnitPriceMicroLamports: p.ComputeUnitPriceMicroLamports,
	})
	if err != nil {
		return nil, types.NewError(types.KindInvalidInput, op, "failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.KindInvalidInput, op, "failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	var resp SwapResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, externalErr(op, "failed to decode swap response", err)
	}
	return &resp, nil
}

func (c *JupiterClient) do(op string, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, externalErr(op, "request failed", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, externalErr(op, "failed to read response", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.logger.Warn("aggregator returned error status",
			zap.String("op", op),
			zap.Int("status", httpResp.StatusCode),
		)
		return nil, types.StatusError(op, httpResp.StatusCode, errorMessage(body))
	}
	return body, nil
}

// errorMessage extracts the message from an error body, falling back to the raw text
func errorMessage(body []byte) string {
	var errorResp map[string]interface{}
	if err := json.Unmarshal(body, &errorResp); err == nil {
		for _, key := range []string{"error", "message"} {
			if msg, ok := errorResp[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func externalErr(op, msg string, err error) *types.Error {
	e := types.NewError(types.KindExternalService, op, msg, err)
	e.Category = types.CategoryGeneric
	return e
}

// String is used in logs
func (p QuoteParams) String() string {
	return fmt.Sprintf("%s %s -> %s (%d bps)", p.Amount, p.InputMint, p.OutputMint, p.SlippageBps)
}
