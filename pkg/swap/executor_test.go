package swap

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sol-swap/pkg/chain"
	"sol-swap/pkg/client"
	"sol-swap/pkg/types"
)

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

// unsignedPayload builds the base64 transaction the aggregator would return:
// placeholder signatures followed by a legacy or v0 message.
func unsignedPayload(t *testing.T, payer solana.PublicKey, versioned bool) string {
	t.Helper()
	ix := system.NewTransferInstruction(1000, payer, newKey(t).PublicKey()).Build()
	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{1, 2, 3}, solana.TransactionPayer(payer))
	require.NoError(t, err)

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)

	n := int(tx.Message.Header.NumRequiredSignatures)
	buf := []byte{byte(n)}
	buf = append(buf, make([]byte, signatureLength*n)...)
	if versioned {
		buf = append(buf, versionPrefixMask)
		buf = append(buf, msg...)
		// no address table lookups
		buf = append(buf, 0)
	} else {
		buf = append(buf, msg...)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

type fakeBuilder struct {
	params []client.SwapParams
	resp   *client.SwapResponse
	err    error
}

func (f *fakeBuilder) Swap(ctx context.Context, p client.SwapParams) (*client.SwapResponse, error) {
	f.params = append(f.params, p)
	return f.resp, f.err
}

type statusReply struct {
	status *chain.SignatureStatus
	err    error
}

type fakeNetwork struct {
	mu       sync.Mutex
	sent     [][]byte
	opts     []chain.SendOptions
	sendErr  error
	replies  []statusReply
	polls    int
	returned solana.Signature
}

func (f *fakeNetwork) SendRawTransaction(ctx context.Context, raw []byte, opts chain.SendOptions) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, raw)
	f.opts = append(f.opts, opts)
	f.returned = solana.Signature{9, 9, 9}
	return f.returned, nil
}

func (f *fakeNetwork) SignatureStatus(ctx context.Context, sig solana.Signature) (*chain.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		f.polls++
		return nil, nil
	}
	idx := f.polls
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	f.polls++
	return f.replies[idx].status, f.replies[idx].err
}

type rejectingSigner struct{ pub solana.PublicKey }

func (r rejectingSigner) PublicKey() solana.PublicKey { return r.pub }

func (r rejectingSigner) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	return nil, errors.New("user rejected the request")
}

func testQuote() *types.Quote {
	return &types.Quote{
		Input:        types.NativeSOL,
		Output:       types.TokenIdentity{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Decimals: 6, IsValid: true},
		InAmountRaw:  "1500000000",
		OutAmountRaw: "150000000",
		SlippageBps:  50,
		Route:        json.RawMessage(`{"inAmount":"1500000000","outAmount":"150000000"}`),
	}
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.ConfirmTimeout = 200 * time.Millisecond
	return cfg
}

func setup(t *testing.T, versioned bool, replies ...statusReply) (*Executor, *fakeBuilder, *fakeNetwork, *KeypairSigner) {
	t.Helper()
	signer, err := NewKeypairSigner(newKey(t))
	require.NoError(t, err)

	builder := &fakeBuilder{resp: &client.SwapResponse{SwapTransaction: unsignedPayload(t, signer.PublicKey(), versioned)}}
	network := &fakeNetwork{replies: replies}
	return NewExecutor(builder, network, fastConfig(), nil), builder, network, signer
}

func TestExecuteConfirmed(t *testing.T) {
	for _, versioned := range []bool{false, true} {
		t.Run(map[bool]string{false: "legacy", true: "versioned"}[versioned], func(t *testing.T) {
			exec, builder, network, signer := setup(t, versioned,
				statusReply{},
				statusReply{status: &chain.SignatureStatus{ConfirmationStatus: rpc.ConfirmationStatusProcessed}},
				statusReply{status: &chain.SignatureStatus{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}},
			)

			var states []State
			exec.OnState(func(s State, txid string) { states = append(states, s) })

			q := testQuote()
			outcome, err := exec.Execute(context.Background(), q, signer)
			require.NoError(t, err)
			assert.Equal(t, types.SwapConfirmed, outcome.Status)
			assert.True(t, outcome.Succeeded())
			assert.Equal(t, network.returned.String(), outcome.TransactionID)
			assert.Equal(t, 3, network.polls)
			assert.Equal(t, []State{StateIdle, StatePreparing, StateSubmitted, StateConfirmed}, states)

			require.Len(t, builder.params, 1)
			assert.JSONEq(t, string(q.Route), string(builder.params[0].QuoteResponse))
			assert.Equal(t, signer.PublicKey().String(), builder.params[0].UserPublicKey)
			assert.True(t, builder.params[0].WrapAndUnwrapSol)
			assert.Equal(t, uint64(10000), builder.params[0].ComputeUnitPriceMicroLamports)

			require.Len(t, network.opts, 1)
			assert.Equal(t, chain.SendOptions{SkipPreflight: true, MaxRetries: 2}, network.opts[0])

			sent, err := DecodeTransactionBytes(network.sent[0])
			require.NoError(t, err)
			assert.Equal(t, versioned, sent.Kind == Versioned)

			msg, err := sent.Tx.Message.MarshalBinary()
			require.NoError(t, err)
			pub := signer.PublicKey()
			require.Len(t, sent.Tx.Signatures, 1)
			assert.True(t, ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sent.Tx.Signatures[0][:]))
		})
	}
}

func TestExecuteOnChainErrorIsFailed(t *testing.T) {
	onChainErr := map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6001}}}
	exec, _, _, signer := setup(t, true,
		statusReply{status: &chain.SignatureStatus{Err: onChainErr, ConfirmationStatus: rpc.ConfirmationStatusConfirmed}},
	)

	outcome, err := exec.Execute(context.Background(), testQuote(), signer)
	require.NoError(t, err)
	assert.Equal(t, types.SwapFailed, outcome.Status)
	assert.False(t, outcome.Succeeded())
	assert.Equal(t, onChainErr, outcome.OnChainErr)
}

func TestExecutePollErrorIsUnknown(t *testing.T) {
	exec, _, _, signer := setup(t, false,
		statusReply{err: context.DeadlineExceeded},
	)

	var last State
	exec.OnState(func(s State, txid string) { last = s })

	outcome, err := exec.Execute(context.Background(), testQuote(), signer)
	require.NoError(t, err)
	assert.Equal(t, types.SwapUnknown, outcome.Status)
	assert.False(t, outcome.Succeeded())
	assert.NotEmpty(t, outcome.TransactionID)
	assert.ErrorIs(t, outcome.Err, types.ErrConfirmationUnknown)
	assert.Equal(t, StateUnknown, last)
}

func TestExecuteConfirmationTimeoutIsUnknown(t *testing.T) {
	exec, _, network, signer := setup(t, false)
	exec.cfg.ConfirmTimeout = 30 * time.Millisecond

	outcome, err := exec.Execute(context.Background(), testQuote(), signer)
	require.NoError(t, err)
	assert.Equal(t, types.SwapUnknown, outcome.Status)
	assert.ErrorIs(t, outcome.Err, types.ErrConfirmationUnknown)
	assert.Greater(t, network.polls, 1)
	assert.Len(t, network.sent, 1)
}

func TestExecuteNoTransactionReturned(t *testing.T) {
	exec, builder, network, signer := setup(t, false)
	builder.resp = &client.SwapResponse{}

	outcome, err := exec.Execute(context.Background(), testQuote(), signer)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, types.ErrNoTransactionReturned)
	assert.Empty(t, network.sent)
}

func TestExecuteBuilderErrorPassesThrough(t *testing.T) {
	exec, builder, _, signer := setup(t, false)
	builder.err = types.StatusError("jupiter swap", 500, "boom")

	_, err := exec.Execute(context.Background(), testQuote(), signer)
	assert.ErrorIs(t, err, types.ErrExternalService)
}

func TestExecuteUndecodablePayload(t *testing.T) {
	exec, builder, network, signer := setup(t, false)
	builder.resp = &client.SwapResponse{SwapTransaction: "!!!not-base64"}

	_, err := exec.Execute(context.Background(), testQuote(), signer)
	assert.ErrorIs(t, err, types.ErrExternalService)
	assert.Empty(t, network.sent)
}

func TestExecuteSigningRejected(t *testing.T) {
	exec, _, network, signer := setup(t, false)

	_, err := exec.Execute(context.Background(), testQuote(), rejectingSigner{pub: signer.PublicKey()})
	assert.ErrorIs(t, err, types.ErrSigningRejected)
	assert.Empty(t, network.sent)
}

func TestExecuteWrongSignerIsRejected(t *testing.T) {
	exec, _, network, _ := setup(t, false)
	other, err := NewKeypairSigner(newKey(t))
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), testQuote(), other)
	assert.ErrorIs(t, err, types.ErrSigningRejected)
	assert.Empty(t, network.sent)
}

func TestExecuteSubmissionFailed(t *testing.T) {
	exec, _, network, signer := setup(t, false)
	network.sendErr = errors.New("blockhash not found")

	outcome, err := exec.Execute(context.Background(), testQuote(), signer)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, types.ErrSubmissionFailed)
	assert.Zero(t, network.polls)
}

func TestExecuteReturnsToIdleBeforeSubmission(t *testing.T) {
	cases := map[string]func(builder *fakeBuilder, network *fakeNetwork){
		"builder error":  func(b *fakeBuilder, _ *fakeNetwork) { b.err = types.StatusError("jupiter swap", 500, "boom") },
		"empty tx":       func(b *fakeBuilder, _ *fakeNetwork) { b.resp = &client.SwapResponse{} },
		"undecodable tx": func(b *fakeBuilder, _ *fakeNetwork) { b.resp = &client.SwapResponse{SwapTransaction: "!!!"} },
		"send failure":   func(_ *fakeBuilder, n *fakeNetwork) { n.sendErr = errors.New("blockhash not found") },
	}
	for name, arrange := range cases {
		t.Run(name, func(t *testing.T) {
			exec, builder, network, signer := setup(t, false)
			arrange(builder, network)
			var states []State
			exec.OnState(func(s State, txid string) {
				assert.Empty(t, txid)
				states = append(states, s)
			})

			_, err := exec.Execute(context.Background(), testQuote(), signer)
			require.Error(t, err)
			assert.Equal(t, []State{StateIdle, StatePreparing, StateIdle}, states)
		})
	}

	t.Run("signing rejected", func(t *testing.T) {
		exec, _, _, signer := setup(t, false)
		var last State
		exec.OnState(func(s State, txid string) { last = s })

		_, err := exec.Execute(context.Background(), testQuote(), rejectingSigner{pub: signer.PublicKey()})
		require.Error(t, err)
		assert.Equal(t, StateIdle, last)
	})
}

func TestExecuteRequiresQuoteAndSigner(t *testing.T) {
	exec, _, _, signer := setup(t, false)

	_, err := exec.Execute(context.Background(), nil, signer)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = exec.Execute(context.Background(), &types.Quote{}, signer)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = exec.Execute(context.Background(), testQuote(), nil)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestAwaitFinalizedCommitment(t *testing.T) {
	network := &fakeNetwork{replies: []statusReply{
		{status: &chain.SignatureStatus{ConfirmationStatus: rpc.ConfirmationStatusConfirmed}},
		{status: &chain.SignatureStatus{ConfirmationStatus: rpc.ConfirmationStatusFinalized}},
	}}
	cfg := fastConfig()
	cfg.Commitment = rpc.CommitmentFinalized
	exec := NewExecutor(&fakeBuilder{}, network, cfg, nil)

	outcome := exec.Await(context.Background(), solana.Signature{1})
	assert.Equal(t, types.SwapConfirmed, outcome.Status)
	assert.Equal(t, 2, network.polls)
}

func TestAwaitCancelledIsUnknown(t *testing.T) {
	exec := NewExecutor(&fakeBuilder{}, &fakeNetwork{}, fastConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcome := exec.Await(ctx, solana.Signature{1})
	assert.Equal(t, types.SwapUnknown, outcome.Status)
	assert.ErrorIs(t, outcome.Err, types.ErrConfirmationUnknown)
}

func TestLoadKeypairSigner(t *testing.T) {
	key := newKey(t)

	fromBase58, err := LoadKeypairSigner(key.String(), "")
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromBase58.PublicKey())

	values := make([]int, len(key))
	for i, b := range key {
		values[i] = int(b)
	}
	data, err := json.Marshal(values)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	fromFile, err := LoadKeypairSigner("", path)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey(), fromFile.PublicKey())

	_, err = LoadKeypairSigner("", "")
	assert.Error(t, err)

	_, err = LoadKeypairSigner("not-a-key", "")
	assert.Error(t, err)
}
