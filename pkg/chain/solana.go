package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	// mintAccountSize is the size of an SPL mint without extensions
	mintAccountSize = 82
	// tokenAccountSize is the size of an SPL token account; token-2022 stores
	// the account type discriminator right after it
	tokenAccountSize   = 165
	accountTypeMint    = 1
	mintDecimalsOffset = 44
	mintInitOffset     = 45
)

// ErrAccountNotFound is returned when an account does not exist on-chain
var ErrAccountNotFound = errors.New("account not found")

// MintInfo is what the chain says about a candidate mint address
type MintInfo struct {
	Owner    solana.PublicKey
	IsMint   bool
	Decimals int
}

// TokenBalance is a single SPL token account held by an owner
type TokenBalance struct {
	Account solana.PublicKey
	Mint    solana.PublicKey
	Amount  uint64
}

// SendOptions controls raw transaction submission
type SendOptions struct {
	SkipPreflight bool
	MaxRetries    uint
}

// SignatureStatus is the network's view of a submitted transaction
type SignatureStatus struct {
	Slot               uint64
	Err                interface{}
	ConfirmationStatus rpc.ConfirmationStatusType
}

// Reached reports whether the status satisfies the requested commitment
func (s *SignatureStatus) Reached(commitment rpc.CommitmentType) bool {
	rank := map[rpc.ConfirmationStatusType]int{
		rpc.ConfirmationStatusProcessed: 1,
		rpc.ConfirmationStatusConfirmed: 2,
		rpc.ConfirmationStatusFinalized: 3,
	}
	want := map[rpc.CommitmentType]int{
		rpc.CommitmentProcessed: 1,
		rpc.CommitmentConfirmed: 2,
		rpc.CommitmentFinalized: 3,
	}[commitment]
	if want == 0 {
		want = 2
	}
	return rank[s.ConfirmationStatus] >= want
}

// Client wraps the Solana JSON-RPC client with the lookups the swap core needs
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
}

// NewClient creates a client for the given RPC endpoint
func NewClient(endpoint, commitment string) *Client {
	return NewClientFromRPC(rpc.New(endpoint), commitment)
}

// NewClientFromRPC wraps an existing rpc client
func NewClientFromRPC(c *rpc.Client, commitment string) *Client {
	return &Client{
		rpc:        c,
		commitment: ParseCommitment(commitment),
	}
}

// Commitment returns the configured commitment level
func (c *Client) Commitment() rpc.CommitmentType {
	return c.commitment
}

// MintInfo looks up an account and decodes it as an SPL mint when possible
func (c *Client) MintInfo(ctx context.Context, mint solana.PublicKey) (*MintInfo, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, mint, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get mint account info: %w", err)
	}
	if out == nil || out.Value == nil {
		return nil, ErrAccountNotFound
	}

	info := &MintInfo{Owner: out.Value.Owner}
	data := out.Value.Data.GetBinary()
	if isMintData(data) {
		info.IsMint = true
		info.Decimals = int(data[mintDecimalsOffset])
	}
	return info, nil
}

func isMintData(data []byte) bool {
	switch {
	case len(data) == mintAccountSize:
	case len(data) > tokenAccountSize && data[tokenAccountSize] == accountTypeMint:
	default:
		return false
	}
	return data[mintInitOffset] == 1
}

// Balance returns the SOL balance of owner in lamports
func (c *Client) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, owner, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return out.Value, nil
}

// TokenBalances enumerates the SPL token accounts held by owner
func (c *Client) TokenBalances(ctx context.Context, owner solana.PublicKey) ([]TokenBalance, error) {
	programID := solana.TokenProgramID
	out, err := c.rpc.GetTokenAccountsByOwner(ctx, owner,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64, Commitment: c.commitment},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get token accounts: %w", err)
	}

	balances := make([]TokenBalance, 0, len(out.Value))
	for _, acc := range out.Value {
		if acc == nil {
			continue
		}
		var decoded token.Account
		if err := bin.NewBinDecoder(acc.Account.Data.GetBinary()).Decode(&decoded); err != nil {
			return nil, fmt.Errorf("failed to decode token account %s: %w", acc.Pubkey, err)
		}
		balances = append(balances, TokenBalance{
			Account: acc.Pubkey,
			Mint:    decoded.Mint,
			Amount:  decoded.Amount,
		})
	}
	return balances, nil
}

// SendRawTransaction submits a serialized signed transaction
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte, opts SendOptions) (solana.Signature, error) {
	maxRetries := opts.MaxRetries
	sig, err := c.rpc.SendRawTransactionWithOpts(ctx, raw, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: c.commitment,
		MaxRetries:          &maxRetries,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return sig, nil
}

// SignatureStatus returns the current status of sig, or nil when the network has not seen it yet
func (c *Client) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature status: %w", err)
	}
	if out == nil || len(out.Value) == 0 || out.Value[0] == nil {
		return nil, nil
	}
	st := out.Value[0]
	return &SignatureStatus{
		Slot:               st.Slot,
		Err:                st.Err,
		ConfirmationStatus: st.ConfirmationStatus,
	}, nil
}

// ParseCommitment returns the commitment level for a config value
func ParseCommitment(s string) rpc.CommitmentType {
	switch strings.ToLower(s) {
	case "finalized":
		return rpc.CommitmentFinalized
	case "confirmed":
		return rpc.CommitmentConfirmed
	case "processed":
		return rpc.CommitmentProcessed
	default:
		return rpc.CommitmentConfirmed
	}
}
