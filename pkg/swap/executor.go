// Package swap turns an accepted quote into a signed, submitted and confirmed swap transaction.
package swap

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sol-swap/pkg/chain"
	"sol-swap/pkg/client"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/telemetry"
	"sol-swap/pkg/types"
)

// State is the executor's progress through one swap
type State string

const (
	StateIdle      State = "idle"
	StatePreparing State = "preparing"
	StateSubmitted State = "submitted"
	StateConfirmed State = "confirmed"
	StateFailed    State = "failed"
	StateUnknown   State = "unknown"
)

// SwapBuilder is the aggregator swap endpoint
type SwapBuilder interface {
	Swap(ctx context.Context, p client.SwapParams) (*client.SwapResponse, error)
}

// Network submits transactions and reports their status
type Network interface {
	SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error)
	// SignatureStatus returns nil when the signature is not known yet
	SignatureStatus(ctx context.Context, sig solana.Signature) (*chain.SignatureStatus, error)
}

// Config controls submission and confirmation
type Config struct {
	MaxRetries                    uint
	SkipPreflight                 bool
	Commitment                    rpc.CommitmentType
	PollInterval                  time.Duration
	ConfirmTimeout                time.Duration
	ComputeUnitPriceMicroLamports uint64
	WrapAndUnwrapSol              bool
}

// DefaultConfig returns the submission settings used by the swap UI
func DefaultConfig() Config {
	return Config{
		MaxRetries:                    2,
		SkipPreflight:                 true,
		Commitment:                    rpc.CommitmentConfirmed,
		PollInterval:                  time.Second,
		ConfirmTimeout:                60 * time.Second,
		ComputeUnitPriceMicroLamports: 10000,
		WrapAndUnwrapSol:              true,
	}
}

// Executor runs swaps. It never resubmits a transaction.
type Executor struct {
	builder SwapBuilder
	network Network
	cfg     Config
	logger  *zap.Logger
	onState func(State, string)
}

// NewExecutor creates a swap executor
func NewExecutor(builder SwapBuilder, network Network, cfg Config, logger *zap.Logger) *Executor {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = def.ConfirmTimeout
	}
	if cfg.Commitment == "" {
		cfg.Commitment = def.Commitment
	}
	return &Executor{
		builder: builder,
		network: network,
		cfg:     cfg,
		logger:  logging.OrNop(logger),
	}
}

// OnState registers a callback for state transitions. txid is empty before submission.
func (e *Executor) OnState(f func(state State, txid string)) {
	e.onState = f
}

// Execute builds, signs, submits and confirms the swap for q.
//
// An error is returned only when nothing reached the network. Once a transaction
// is submitted an outcome is always returned; an indeterminate confirmation is
// reported as SwapUnknown with outcome.Err set.
func (e *Executor) Execute(ctx context.Context, q *types.Quote, signer Signer) (*types.SwapOutcome, error) {
	const op = "execute swap"

	if q == nil || len(q.Route) == 0 {
		return nil, types.NewError(types.KindInvalidInput, op, "quote is required", nil)
	}
	if signer == nil {
		return nil, types.NewError(types.KindInvalidInput, op, "signer is required", nil)
	}

	logger := e.logger.With(
		zap.String("request_id", uuid.New().String()),
		zap.String("input", q.Input.Symbol),
		zap.String("output", q.Output.Symbol),
		zap.String("in_amount", q.InAmountRaw),
	)
	e.transition(StateIdle, "")
	e.transition(StatePreparing, "")

	resp, err := e.builder.Swap(ctx, client.SwapParams{
		QuoteResponse:                 q.Route,
		UserPublicKey:                 signer.PublicKey().String(),
		WrapAndUnwrapSol:              e.cfg.WrapAndUnwrapSol,
		ComputeUnitPriceMicroLamports: e.cfg.ComputeUnitPriceMicroLamports,
	})
	if err != nil {
		logger.Warn("swap transaction request failed", zap.Error(err))
		return e.abort(err)
	}
	if resp.SwapTransaction == "" {
		return e.abort(types.NewError(types.KindNoTransactionReturned, op, "aggregator returned no swap transaction", nil))
	}

	decoded, err := DecodeTransaction(resp.SwapTransaction)
	if err != nil {
		decodeErr := types.NewError(types.KindExternalService, op, "undecodable swap transaction", err)
		decodeErr.Category = types.CategoryGeneric
		return e.abort(decodeErr)
	}
	logger.Debug("swap transaction decoded", zap.Stringer("kind", decoded.Kind))

	signed, err := signer.SignTransaction(ctx, decoded.Tx)
	if err != nil {
		logger.Info("signing rejected", zap.Error(err))
		return e.abort(types.NewError(types.KindSigningRejected, op, "transaction was not signed", err))
	}
	decoded.Tx = signed

	raw, err := decoded.Serialize()
	if err != nil {
		return e.abort(types.NewError(types.KindSubmissionFailed, op, "failed to serialize signed transaction", err))
	}

	sig, err := e.network.SendRawTransaction(ctx, raw, chain.SendOptions{
		SkipPreflight: e.cfg.SkipPreflight,
		MaxRetries:    e.cfg.MaxRetries,
	})
	if err != nil {
		logger.Warn("transaction submission failed", zap.Error(err))
		return e.abort(types.NewError(types.KindSubmissionFailed, op, "network rejected transaction", err))
	}

	txid := sig.String()
	logger = logger.With(zap.String("txid", txid))
	logger.Info("swap transaction submitted")
	e.transition(StateSubmitted, txid)

	outcome := e.Await(ctx, sig)
	switch outcome.Status {
	case types.SwapConfirmed:
		logger.Info("swap confirmed")
	case types.SwapFailed:
		logger.Warn("swap failed on-chain", zap.Any("err", outcome.OnChainErr))
	default:
		logger.Warn("swap confirmation unknown", zap.Error(outcome.Err))
	}
	return outcome, nil
}

// Await polls the status of sig until it reaches the configured commitment, fails,
// or the confirmation timeout elapses. It never returns a pending outcome.
func (e *Executor) Await(ctx context.Context, sig solana.Signature) *types.SwapOutcome {
	const op = "confirm swap"

	outcome := &types.SwapOutcome{
		TransactionID: sig.String(),
		Status:        types.SwapPending,
	}

	pollCtx, cancel := context.WithTimeout(ctx, e.cfg.ConfirmTimeout)
	defer cancel()

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := e.network.SignatureStatus(pollCtx, sig)
		switch {
		case err != nil:
			outcome.Status = types.SwapUnknown
			outcome.Err = types.NewError(types.KindConfirmationUnknown, op, "confirmation check failed", err)
		case status == nil:
			// not seen yet
		case status.Err != nil:
			outcome.Status = types.SwapFailed
			outcome.OnChainErr = status.Err
		case status.Reached(e.cfg.Commitment):
			outcome.Status = types.SwapConfirmed
		}
		if outcome.Status.IsTerminal() {
			return e.finish(outcome)
		}

		select {
		case <-pollCtx.Done():
			outcome.Status = types.SwapUnknown
			msg := "confirmation timed out"
			if errors.Is(pollCtx.Err(), context.Canceled) {
				msg = "confirmation cancelled"
			}
			outcome.Err = types.NewError(types.KindConfirmationUnknown, op, msg, pollCtx.Err())
			return e.finish(outcome)
		case <-ticker.C:
		}
	}
}

// abort returns the executor to idle after a failure that reached nothing on the network
func (e *Executor) abort(err error) (*types.SwapOutcome, error) {
	e.transition(StateIdle, "")
	return nil, err
}

func (e *Executor) finish(outcome *types.SwapOutcome) *types.SwapOutcome {
	telemetry.SwapOutcomes.WithLabelValues(string(outcome.Status)).Inc()
	switch outcome.Status {
	case types.SwapConfirmed:
		e.transition(StateConfirmed, outcome.TransactionID)
	case types.SwapFailed:
		e.transition(StateFailed, outcome.TransactionID)
	default:
		e.transition(StateUnknown, outcome.TransactionID)
	}
	return outcome
}

func (e *Executor) transition(s State, txid string) {
	if e.onState != nil {
		e.onState(s, txid)
	}
}
