package tokens

import (
	"context"
	"fmt"
	"strings"

	"sol-swap/pkg/types"
	"sol-swap/pkg/validation"
)

// Validator validates an unknown mint address
type Validator interface {
	Validate(ctx context.Context, address string) (types.TokenIdentity, error)
}

// Resolver resolves user input to a token, consulting the network only for unknown addresses
type Resolver struct {
	dir  *Directory
	gate Validator
}

func NewResolver(dir *Directory, gate Validator) *Resolver {
	return &Resolver{dir: dir, gate: gate}
}

// Directory returns the underlying directory
func (r *Resolver) Directory() *Directory {
	return r.dir
}

// Resolve returns the token for a symbol or address. Known tokens never hit the network.
func (r *Resolver) Resolve(ctx context.Context, symbolOrAddress string) (types.TokenIdentity, error) {
	s := strings.TrimSpace(symbolOrAddress)
	if id, ok := r.dir.Lookup(s); ok {
		return id, nil
	}
	if r.gate == nil || !validation.IsAddress(s) {
		return types.TokenIdentity{}, types.NewError(types.KindNotFound, "resolve token",
			fmt.Sprintf("token '%s' not found", s), nil)
	}

	id, err := r.gate.Validate(ctx, s)
	if err != nil {
		return id, err
	}
	if !id.IsValid {
		return id, types.NewError(types.KindNotFound, "resolve token",
			fmt.Sprintf("'%s' is not a valid token mint", s), nil)
	}
	return id, nil
}

// Import validates address and adds it to the directory as a custom token.
// symbol, when non-empty, overrides the symbol reported by metadata.
func (r *Resolver) Import(ctx context.Context, address, symbol string) (types.TokenIdentity, bool, error) {
	address = strings.TrimSpace(address)
	if id, ok := r.dir.Lookup(address); ok && id.Address == address {
		return id, false, nil
	}
	if r.gate == nil {
		return types.TokenIdentity{}, false, types.NewError(types.KindInvalidInput, "import token", "no validator configured", nil)
	}

	id, err := r.gate.Validate(ctx, address)
	if err != nil {
		return id, false, err
	}
	if !id.IsValid {
		return id, false, types.NewError(types.KindNotFound, "import token",
			fmt.Sprintf("'%s' is not a valid token mint", address), nil)
	}
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		id.Symbol = symbol
	}

	added, err := r.dir.AddCustom(types.CustomTokenRecord{
		Symbol:   id.Symbol,
		Name:     id.Name,
		Address:  id.Address,
		Decimals: id.Decimals,
	})
	if err != nil {
		return id, false, err
	}
	return id, added, nil
}
