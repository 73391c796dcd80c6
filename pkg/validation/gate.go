// Package validation checks free-form token addresses against the chain and metadata indexers.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"sol-swap/pkg/chain"
	"sol-swap/pkg/logging"
	"sol-swap/pkg/metadata"
	"sol-swap/pkg/telemetry"
	"sol-swap/pkg/types"
)

const (
	DefaultCacheSize = 1024

	minAddressLen = 32
	maxAddressLen = 44
	maxDecimals   = 255
)

// State is the progress of a single validation
type State int

const (
	Unchecked State = iota
	Checking
	Valid
	Invalid
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unchecked"
	}
}

// MintReader is the chain lookup the gate needs
type MintReader interface {
	MintInfo(ctx context.Context, mint solana.PublicKey) (*chain.MintInfo, error)
}

// Option configures a Gate
type Option func(*Gate)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) { g.logger = logging.OrNop(l) }
}

// WithStateObserver is called on every state transition of a validation
func WithStateObserver(f func(address string, s State)) Option {
	return func(g *Gate) { g.observe = f }
}

// WithCacheSize bounds the number of cached identities
func WithCacheSize(n int) Option {
	return func(g *Gate) { g.cacheSize = n }
}

// Gate validates token mint addresses. Successful results are cached per address.
type Gate struct {
	chain     MintReader
	sources   []metadata.Source
	cache     *lru.Cache[string, types.TokenIdentity]
	cacheSize int
	logger    *zap.Logger
	observe   func(string, State)
}

// NewGate creates a gate. sources are consulted in order until one yields metadata.
func NewGate(reader MintReader, sources []metadata.Source, opts ...Option) (*Gate, error) {
	g := &Gate{
		chain:     reader,
		sources:   sources,
		cacheSize: DefaultCacheSize,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.cacheSize <= 0 {
		g.cacheSize = DefaultCacheSize
	}

	cache, err := lru.New[string, types.TokenIdentity](g.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata cache: %w", err)
	}
	g.cache = cache
	return g, nil
}

// InvalidIdentity is the sentinel metadata returned for tokens that failed validation
func InvalidIdentity(address string) types.TokenIdentity {
	return types.TokenIdentity{
		Address:  address,
		Symbol:   "UNKNOWN",
		Name:     "Invalid Token",
		Decimals: 0,
		IsValid:  false,
	}
}

// ParseAddress performs the syntactic check: base58, 32 to 44 characters, 32 decoded bytes
func ParseAddress(address string) (solana.PublicKey, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return solana.PublicKey{}, types.NewError(types.KindInvalidInput, "parse address", "empty token address", nil)
	}
	if len(address) < minAddressLen || len(address) > maxAddressLen {
		return solana.PublicKey{}, types.NewError(types.KindInvalidInput, "parse address",
			fmt.Sprintf("invalid address length %d", len(address)), nil)
	}
	raw, err := base58.Decode(address)
	if err != nil {
		return solana.PublicKey{}, types.NewError(types.KindInvalidInput, "parse address", "invalid base58 address", err)
	}
	if len(raw) != solana.PublicKeyLength {
		return solana.PublicKey{}, types.NewError(types.KindInvalidInput, "parse address",
			fmt.Sprintf("address decodes to %d bytes", len(raw)), nil)
	}
	return solana.PublicKeyFromBytes(raw), nil
}

// IsAddress reports whether s passes the syntactic address check
func IsAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// Cached returns a previously validated identity without any network call
func (g *Gate) Cached(address string) (types.TokenIdentity, bool) {
	return g.cache.Get(strings.TrimSpace(address))
}

// Validate resolves address to token metadata.
//
// Malformed input fails fast with an InvalidInput error. A missing account yields
// invalid metadata and a nil error. RPC failures yield invalid metadata and an
// ExternalServiceError. Metadata indexer failures never affect validity.
func (g *Gate) Validate(ctx context.Context, address string) (types.TokenIdentity, error) {
	address = strings.TrimSpace(address)
	g.transition(address, Unchecked)

	pubkey, err := ParseAddress(address)
	if err != nil {
		g.transition(address, Invalid)
		return InvalidIdentity(address), err
	}

	if address == types.NativeMint {
		g.transition(address, Valid)
		return types.NativeSOL, nil
	}

	if cached, ok := g.cache.Get(address); ok {
		telemetry.MetadataCacheHits.Inc()
		g.transition(address, Valid)
		return cached, nil
	}
	telemetry.MetadataCacheMisses.Inc()

	g.transition(address, Checking)
	identity, err := g.lookup(ctx, pubkey)
	if err != nil || !identity.IsValid {
		g.transition(address, Invalid)
		return identity, err
	}

	g.cache.Add(address, identity)
	g.transition(address, Valid)
	return identity, nil
}

func (g *Gate) lookup(ctx context.Context, pubkey solana.PublicKey) (types.TokenIdentity, error) {
	address := pubkey.String()
	logger := g.logger.With(zap.String("address", address))

	info, err := g.chain.MintInfo(ctx, pubkey)
	if err != nil {
		if errors.Is(err, chain.ErrAccountNotFound) {
			logger.Info("token account not found")
			return InvalidIdentity(address), nil
		}
		logger.Warn("mint lookup failed", zap.Error(err))
		e := types.NewError(types.KindExternalService, "validate token", "mint lookup failed", err)
		e.Category = types.CategoryGeneric
		return InvalidIdentity(address), e
	}

	identity := types.TokenIdentity{
		Address:  address,
		Symbol:   "TOKEN-" + address[:4],
		Name:     "Token " + address[:8] + "...",
		Decimals: -1,
	}
	if info.IsMint {
		identity.Decimals = info.Decimals
	} else {
		logger.Debug("account is not a standard mint", zap.String("owner", info.Owner.String()))
	}

	if md := g.enrich(ctx, address); md != nil {
		if md.Symbol != "" {
			identity.Symbol = md.Symbol
		}
		if md.Name != "" {
			identity.Name = md.Name
		}
		if md.LogoURI != "" {
			identity.LogoURI = md.LogoURI
		}
		// on-chain decimals are authoritative
		if identity.Decimals < 0 && md.Decimals != nil {
			identity.Decimals = *md.Decimals
		}
	}

	if identity.Decimals < 0 || identity.Decimals > maxDecimals {
		logger.Warn("token decimals unknown, marking invalid")
		return InvalidIdentity(address), nil
	}

	identity.IsValid = true
	return identity, nil
}

// enrich asks each metadata source in turn and returns the first useful answer
func (g *Gate) enrich(ctx context.Context, address string) *metadata.Metadata {
	for _, src := range g.sources {
		md, err := src.Fetch(ctx, address)
		if err == nil && md != nil {
			return md
		}
		if err != nil && !errors.Is(err, metadata.ErrNoMetadata) {
			telemetry.MetadataSourceFailures.WithLabelValues(src.Name()).Inc()
			g.logger.Debug("metadata source failed",
				zap.String("source", src.Name()),
				zap.String("address", address),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (g *Gate) transition(address string, s State) {
	if g.observe != nil {
		g.observe(address, s)
	}
}
