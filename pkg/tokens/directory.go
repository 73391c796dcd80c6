// Package tokens holds the token directory: built-in tokens plus user-added custom tokens.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"sol-swap/pkg/logging"
	"sol-swap/pkg/types"
	"sol-swap/pkg/validation"
)

// Store persists the custom token list
type Store interface {
	Load() ([]types.CustomTokenRecord, error)
	Save(records []types.CustomTokenRecord) error
}

// Seeds returns the built-in tokens in display order
func Seeds() []types.TokenIdentity {
	return []types.TokenIdentity{
		types.NativeSOL,
		{Address: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", Symbol: "USDC", Name: "USD Coin", Decimals: 6, IsValid: true},
		{Address: "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", Symbol: "BONK", Name: "Bonk", Decimals: 5, IsValid: true},
		{Address: "6p6xgHyF7AeE6TZkSmFsko444wqoP15icUSqi2jfGiPN", Symbol: "TRUMP", Name: "Official Trump", Decimals: 9, IsValid: true},
		{Address: "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", Symbol: "USDT", Name: "Tether USD", Decimals: 6, IsValid: true},
	}
}

// Directory resolves symbols and addresses to token identities.
// Built-in tokens always take precedence over custom ones.
type Directory struct {
	mu     sync.RWMutex
	seeds  []types.TokenIdentity
	custom []types.CustomTokenRecord
	store  Store
	logger *zap.Logger
}

// NewDirectory loads custom tokens from store. A nil store keeps custom tokens in memory only.
func NewDirectory(store Store, logger *zap.Logger) (*Directory, error) {
	d := &Directory{
		seeds:  Seeds(),
		store:  store,
		logger: logging.OrNop(logger),
	}
	if store == nil {
		return d, nil
	}

	records, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load custom tokens: %w", err)
	}
	for _, rec := range records {
		rec.Address = strings.TrimSpace(rec.Address)
		if d.hasAddress(rec.Address) {
			d.logger.Debug("skipping duplicate custom token", zap.String("address", rec.Address))
			continue
		}
		d.custom = append(d.custom, rec)
	}
	return d, nil
}

// Resolve looks up a token by symbol (case-insensitive) or exact address
func (d *Directory) Resolve(symbolOrAddress string) (types.TokenIdentity, error) {
	if id, ok := d.Lookup(symbolOrAddress); ok {
		return id, nil
	}
	return types.TokenIdentity{}, types.NewError(types.KindNotFound, "resolve token",
		fmt.Sprintf("token '%s' not found", strings.TrimSpace(symbolOrAddress)), nil)
}

// Lookup is Resolve without the error
func (d *Directory) Lookup(symbolOrAddress string) (types.TokenIdentity, bool) {
	key := strings.TrimSpace(symbolOrAddress)
	if key == "" {
		return types.TokenIdentity{}, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, s := range d.seeds {
		if s.Address == key || strings.EqualFold(s.Symbol, key) {
			return s, true
		}
	}
	for _, c := range d.custom {
		if c.Address == key || strings.EqualFold(c.Symbol, key) {
			return c.Identity(), true
		}
	}
	return types.TokenIdentity{}, false
}

// AddCustom appends a custom token and persists the list.
// Adding an address that is already known is a no-op and reports added=false.
func (d *Directory) AddCustom(rec types.CustomTokenRecord) (bool, error) {
	rec.Address = strings.TrimSpace(rec.Address)
	rec.Symbol = strings.TrimSpace(rec.Symbol)
	if err := validateRecord(rec); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasAddress(rec.Address) {
		return false, nil
	}

	next := append(append([]types.CustomTokenRecord(nil), d.custom...), rec)
	if err := d.persist(next); err != nil {
		return false, err
	}
	d.custom = next

	d.logger.Info("custom token added", zap.String("symbol", rec.Symbol), zap.String("address", rec.Address))
	return true, nil
}

// RemoveCustom deletes a custom token by address
func (d *Directory) RemoveCustom(address string) error {
	address = strings.TrimSpace(address)

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.customIndex(address)
	if idx < 0 {
		return types.NewError(types.KindNotFound, "remove token", fmt.Sprintf("custom token '%s' not found", address), nil)
	}

	next := make([]types.CustomTokenRecord, 0, len(d.custom)-1)
	next = append(next, d.custom[:idx]...)
	next = append(next, d.custom[idx+1:]...)
	if err := d.persist(next); err != nil {
		return err
	}
	d.custom = next
	return nil
}

// UpdateCustom applies fn to the custom token with address. The address itself cannot change.
func (d *Directory) UpdateCustom(address string, fn func(*types.CustomTokenRecord)) error {
	address = strings.TrimSpace(address)

	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.customIndex(address)
	if idx < 0 {
		return types.NewError(types.KindNotFound, "update token", fmt.Sprintf("custom token '%s' not found", address), nil)
	}

	rec := d.custom[idx]
	fn(&rec)
	rec.Address = address
	rec.Symbol = strings.TrimSpace(rec.Symbol)
	if err := validateRecord(rec); err != nil {
		return err
	}
	// seeds resolve first, so a custom token named after one would be unreachable by symbol
	if d.isSeedSymbol(rec.Symbol) {
		return types.NewError(types.KindInvalidInput, "update token", fmt.Sprintf("symbol '%s' is reserved by a built-in token", rec.Symbol), nil)
	}

	next := append([]types.CustomTokenRecord(nil), d.custom...)
	next[idx] = rec
	if err := d.persist(next); err != nil {
		return err
	}
	d.custom = next
	return nil
}

// ListAll returns built-in tokens followed by custom tokens in insertion order
func (d *Directory) ListAll() []types.TokenIdentity {
	d.mu.RLock()
	defer d.mu.RUnlock()

	all := make([]types.TokenIdentity, 0, len(d.seeds)+len(d.custom))
	all = append(all, d.seeds...)
	for _, c := range d.custom {
		all = append(all, c.Identity())
	}
	return all
}

// Custom returns a copy of the custom records
func (d *Directory) Custom() []types.CustomTokenRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]types.CustomTokenRecord(nil), d.custom...)
}

// IsBuiltin reports whether address is one of the seed tokens
func (d *Directory) IsBuiltin(address string) bool {
	for _, s := range d.seeds {
		if s.Address == address {
			return true
		}
	}
	return false
}

func (d *Directory) isSeedSymbol(symbol string) bool {
	for _, s := range d.seeds {
		if strings.EqualFold(s.Symbol, symbol) {
			return true
		}
	}
	return false
}

func (d *Directory) hasAddress(address string) bool {
	return d.IsBuiltin(address) || d.customIndex(address) >= 0
}

func (d *Directory) customIndex(address string) int {
	for i, c := range d.custom {
		if c.Address == address {
			return i
		}
	}
	return -1
}

func (d *Directory) persist(records []types.CustomTokenRecord) error {
	if d.store == nil {
		return nil
	}
	if err := d.store.Save(records); err != nil {
		return fmt.Errorf("failed to save custom tokens: %w", err)
	}
	return nil
}

func validateRecord(rec types.CustomTokenRecord) error {
	if _, err := validation.ParseAddress(rec.Address); err != nil {
		return err
	}
	if rec.Symbol == "" {
		return types.NewError(types.KindInvalidInput, "custom token", "symbol is required", nil)
	}
	if rec.Decimals < 0 || rec.Decimals > 255 {
		return types.NewError(types.KindInvalidInput, "custom token", fmt.Sprintf("invalid decimals %d", rec.Decimals), nil)
	}
	return nil
}
