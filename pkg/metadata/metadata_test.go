package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func TestMoralisFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/mainnet/"+mint+"/metadata", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		_, _ = w.Write([]byte(`{"symbol":"Bonk","name":"Bonk","decimals":"5","logo":"https://img/bonk.png"}`))
	}))
	defer server.Close()

	md, err := NewMoralis(server.URL, "secret", time.Second).Fetch(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "Bonk", md.Symbol)
	require.NotNil(t, md.Decimals)
	assert.Equal(t, 5, *md.Decimals)
	assert.Equal(t, "https://img/bonk.png", md.LogoURI)
}

func TestMoralisLogoFallbacks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"X","decimals":6,"metaplex":{"metadataUri":"https://arweave/x.json"}}`))
	}))
	defer server.Close()

	md, err := NewMoralis(server.URL, "", time.Second).Fetch(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "https://arweave/x.json", md.LogoURI)
	require.NotNil(t, md.Decimals)
	assert.Equal(t, 6, *md.Decimals)
}

func TestMoralisMissingDecimals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"X","name":"Xtoken","decimals":null}`))
	}))
	defer server.Close()

	md, err := NewMoralis(server.URL, "", time.Second).Fetch(context.Background(), mint)
	require.NoError(t, err)
	assert.Nil(t, md.Decimals)
}

func TestMoralisErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		noMeta bool
	}{
		{"not found", http.StatusNotFound, `{}`, true},
		{"empty body", http.StatusOK, `{}`, true},
		{"unauthorized", http.StatusUnauthorized, `{"message":"bad key"}`, false},
		{"garbage", http.StatusOK, `not json`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewMoralis(server.URL, "k", time.Second).Fetch(context.Background(), mint)
			require.Error(t, err)
			if tt.noMeta {
				assert.ErrorIs(t, err, ErrNoMetadata)
			} else {
				assert.NotErrorIs(t, err, ErrNoMetadata)
			}
		})
	}
}

func TestSolscanFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token/meta", r.URL.Path)
		assert.Equal(t, mint, r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"symbol":"BONK","name":"Bonk","decimals":5,"icon":"https://img/b.png"}}`))
	}))
	defer server.Close()

	md, err := NewSolscan(server.URL, time.Second).Fetch(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, "BONK", md.Symbol)
	assert.Equal(t, "Bonk", md.Name)
	require.NotNil(t, md.Decimals)
	assert.Equal(t, 5, *md.Decimals)
	assert.Equal(t, "https://img/b.png", md.LogoURI)
}

func TestSolscanUnsuccessful(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))
	defer server.Close()

	_, err := NewSolscan(server.URL, time.Second).Fetch(context.Background(), mint)
	assert.ErrorIs(t, err, ErrNoMetadata)
}
