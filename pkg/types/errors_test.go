package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusError(t *testing.T) {
	tests := []struct {
		status   int
		kind     ErrorKind
		category ServiceCategory
	}{
		{http.StatusNotFound, KindNotFound, ""},
		{http.StatusBadRequest, KindExternalService, CategoryBadRequest},
		{http.StatusInternalServerError, KindExternalService, CategoryServerError},
		{http.StatusBadGateway, KindExternalService, CategoryServerError},
		{http.StatusTooManyRequests, KindExternalService, CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := StatusError("quote", tt.status, "body")
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.status, err.Status)
		})
	}
}

func TestErrorIsMatchesKind(t *testing.T) {
	inner := errors.New("boom")
	err := fmt.Errorf("wrapped: %w", NewError(KindSigningRejected, "sign", "wallet declined", inner))

	assert.True(t, errors.Is(err, ErrSigningRejected))
	assert.False(t, errors.Is(err, ErrSubmissionFailed))
	assert.True(t, errors.Is(err, inner))
	assert.Equal(t, KindSigningRejected, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(inner))
	assert.Contains(t, err.Error(), "sign: signing-rejected: wallet declined: boom")
}

func TestSwapStatusTerminal(t *testing.T) {
	assert.False(t, SwapPending.IsTerminal())
	assert.True(t, SwapConfirmed.IsTerminal())
	assert.True(t, SwapFailed.IsTerminal())
	assert.True(t, SwapUnknown.IsTerminal())

	assert.True(t, (&SwapOutcome{Status: SwapConfirmed}).Succeeded())
	assert.False(t, (&SwapOutcome{Status: SwapUnknown}).Succeeded())
	var nilOutcome *SwapOutcome
	assert.False(t, nilOutcome.Succeeded())
}
