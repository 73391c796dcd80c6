// Package quote requests aggregator quotes, either one-shot or as a debounced live feed.
package quote

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sol-swap/pkg/amount"
	"sol-swap/pkg/client"
	"sol-swap/pkg/debounce"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/telemetry"
	"sol-swap/pkg/types"
)

const DefaultDebounce = 500 * time.Millisecond

// Quoter is the aggregator quote endpoint
type Quoter interface {
	GetQuote(ctx context.Context, p client.QuoteParams) (*client.QuoteResponse, error)
}

// Request is the input tuple a quote is requested for. Amount is a UI amount.
type Request struct {
	Input       types.TokenIdentity
	Output      types.TokenIdentity
	Amount      string
	SlippageBps int
}

// RawAmount is Amount in input base units
func (r Request) RawAmount() string {
	return amount.ToRaw(r.Amount, r.Input.Decimals)
}

// Key identifies the request tuple. Two requests with the same key yield interchangeable quotes.
func (r Request) Key() string {
	return types.QuoteKey(r.Input.Address, r.Output.Address, r.RawAmount(), r.SlippageBps)
}

// Matches reports whether q was produced for this request tuple
func (r Request) Matches(q *types.Quote) bool {
	return q != nil && q.Key() == r.Key()
}

// Validate checks the preconditions of a quote request
func (r Request) Validate() error {
	const op = "quote request"
	switch {
	case r.Input.Address == "" || !r.Input.IsValid:
		return types.NewError(types.KindInvalidInput, op, "input token is not resolved", nil)
	case r.Output.Address == "" || !r.Output.IsValid:
		return types.NewError(types.KindInvalidInput, op, "output token is not resolved", nil)
	case r.Input.Address == r.Output.Address:
		return types.NewError(types.KindInvalidInput, op, "input and output tokens must differ", nil)
	case !amount.IsPositive(r.Amount):
		return types.NewError(types.KindInvalidInput, op, fmt.Sprintf("invalid amount %q", r.Amount), nil)
	case r.SlippageBps < 0 || r.SlippageBps > amount.MaxSlippageBps:
		return types.NewError(types.KindInvalidInput, op, fmt.Sprintf("invalid slippage %d bps", r.SlippageBps), nil)
	case amount.Exceeds(r.Amount, r.Input.Decimals):
		return types.NewError(types.KindInvalidInput, op, fmt.Sprintf("amount %s exceeds the token supply limit", r.Amount), nil)
	case r.RawAmount() == amount.Zero:
		return types.NewError(types.KindInvalidInput, op, "amount is below the smallest unit", nil)
	}
	return nil
}

// Snapshot is the observable state of live quoting
type Snapshot struct {
	Request Request
	Quote   *types.Quote
	Loading bool
	Err     error
}

// Option configures an Engine
type Option func(*Engine)

// WithDebounce sets the input quiescence window for live quoting
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.window = d }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// Engine fetches quotes. Live mode (Update) only ever exposes the quote for the
// latest input tuple; responses for superseded requests are discarded.
type Engine struct {
	quoter    Quoter
	window    time.Duration
	debouncer *debounce.Debouncer
	logger    *zap.Logger

	baseCtx    context.Context
	baseCancel context.CancelFunc

	mu        sync.Mutex
	state     Snapshot
	seq       uint64
	cancel    context.CancelFunc
	observers []func(Snapshot)
	closed    bool
}

// NewEngine creates a quote engine
func NewEngine(quoter Quoter, opts ...Option) *Engine {
	e := &Engine{
		quoter: quoter,
		window: DefaultDebounce,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.debouncer = debounce.New(e.window)
	e.baseCtx, e.baseCancel = context.WithCancel(context.Background())
	return e
}

// GetQuote performs a single quote request
func (e *Engine) GetQuote(ctx context.Context, req Request) (*types.Quote, error) {
	if err := req.Validate(); err != nil {
		telemetry.QuoteRequests.WithLabelValues("invalid").Inc()
		return nil, err
	}

	raw := req.RawAmount()
	logger := e.logger.With(
		zap.String("request_id", uuid.New().String()),
		zap.String("input", req.Input.Symbol),
		zap.String("output", req.Output.Symbol),
		zap.String("amount_raw", raw),
		zap.Int("slippage_bps", req.SlippageBps),
	)
	logger.Debug("requesting quote")

	resp, err := e.quoter.GetQuote(ctx, client.QuoteParams{
		InputMint:   req.Input.Address,
		OutputMint:  req.Output.Address,
		Amount:      raw,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		telemetry.QuoteRequests.WithLabelValues("error").Inc()
		logger.Debug("quote failed", zap.Error(err))
		return nil, err
	}
	telemetry.QuoteRequests.WithLabelValues("ok").Inc()

	q := &types.Quote{
		Input:                req.Input,
		Output:               req.Output,
		InAmountRaw:          raw,
		OutAmountRaw:         resp.OutAmount,
		OutAmountUI:          amount.ToUI(resp.OutAmount, req.Output.Decimals),
		OtherAmountThreshold: resp.OtherAmountThreshold,
		PriceImpactPct:       resp.PriceImpactPct,
		SlippageBps:          req.SlippageBps,
		Route:                resp.Raw,
		RequestedAt:          time.Now(),
	}
	logger.Debug("quote received", zap.String("out_amount", q.OutAmountUI))
	return q, nil
}

// Update sets new live inputs. The current quote is cleared immediately and a
// new request is issued once inputs stay unchanged for the debounce window.
func (e *Engine) Update(req Request) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	if e.state.Request.Key() == req.Key() && (e.state.Quote != nil || e.state.Loading || e.debouncer.Pending()) {
		e.state.Request = req
		e.mu.Unlock()
		return
	}

	e.invalidateLocked()
	e.state = Snapshot{Request: req}

	var schedule bool
	if amount.IsPositive(req.Amount) {
		if err := req.Validate(); err != nil {
			e.state.Err = err
		} else {
			schedule = true
		}
	}
	snap := e.state
	e.mu.Unlock()

	// observers see the cleared state before a zero-window trigger fires inline.
	// A pending trigger left behind for cleared inputs finds nothing to fetch.
	e.notify(snap)
	if schedule {
		e.debouncer.Trigger(e.fireCurrent)
	}
}

// Refresh re-issues the request for the current inputs without waiting for the debounce window
func (e *Engine) Refresh() {
	e.debouncer.Cancel()
	e.fireCurrent()
}

// Snapshot returns the current live state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// OnChange registers an observer called after every live state change
func (e *Engine) OnChange(f func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, f)
}

// Close stops live quoting and cancels any in-flight request
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.invalidateLocked()
	e.state.Loading = false
	e.mu.Unlock()

	e.debouncer.Cancel()
	e.baseCancel()
}

// invalidateLocked supersedes the in-flight request, if any
func (e *Engine) invalidateLocked() {
	e.seq++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// fireCurrent issues the request for whatever the inputs are when the window elapses
func (e *Engine) fireCurrent() {
	e.mu.Lock()
	req := e.state.Request
	if e.closed || req.Validate() != nil {
		e.mu.Unlock()
		return
	}
	e.invalidateLocked()
	seq := e.seq
	ctx, cancel := context.WithCancel(e.baseCtx)
	e.cancel = cancel
	e.state.Quote = nil
	e.state.Err = nil
	e.state.Loading = true
	snap := e.state
	e.mu.Unlock()

	e.notify(snap)

	go func() {
		defer cancel()
		q, err := e.GetQuote(ctx, req)
		e.apply(seq, q, err)
	}()
}

func (e *Engine) apply(seq uint64, q *types.Quote, err error) {
	e.mu.Lock()
	if seq != e.seq {
		e.mu.Unlock()
		telemetry.StaleQuotesDiscarded.Inc()
		e.logger.Debug("discarding stale quote response", zap.Uint64("seq", seq))
		return
	}
	e.cancel = nil
	e.state.Loading = false
	if err != nil {
		e.state.Quote = nil
		e.state.Err = err
	} else {
		e.state.Quote = q
		e.state.Err = nil
	}
	snap := e.state
	e.mu.Unlock()

	e.notify(snap)
}

func (e *Engine) notify(s Snapshot) {
	e.mu.Lock()
	observers := slices.Clone(e.observers)
	e.mu.Unlock()

	for _, f := range observers {
		f(s)
	}
}
