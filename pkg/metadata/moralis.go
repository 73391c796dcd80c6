package metadata

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultMoralisBaseURL = "https://solana-gateway.moralis.io"

// Moralis is the primary metadata source
type Moralis struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type moralisResponse struct {
	Symbol   string  `json:"symbol"`
	Name     string  `json:"name"`
	Decimals flexInt `json:"decimals"`
	Logo     string  `json:"logo"`
	LogoURI  string  `json:"logoURI"`
	Metaplex *struct {
		MetadataURI string `json:"metadataUri"`
	} `json:"metaplex"`
}

// NewMoralis creates a Moralis source. An empty apiKey still issues requests; the gateway rejects them.
func NewMoralis(baseURL, apiKey string, timeout time.Duration) *Moralis {
	if baseURL == "" {
		baseURL = DefaultMoralisBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Moralis{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *Moralis) Name() string { return "moralis" }

// Fetch returns the token metadata for address on mainnet
func (m *Moralis) Fetch(ctx context.Context, address string) (*Metadata, error) {
	var resp moralisResponse
	endpoint := m.baseURL + "/token/mainnet/" + url.PathEscape(address) + "/metadata"
	if err := getJSON(ctx, m.httpClient, endpoint, map[string]string{"X-API-Key": m.apiKey}, &resp); err != nil {
		return nil, err
	}

	md := &Metadata{
		Symbol:   strings.TrimSpace(resp.Symbol),
		Name:     strings.TrimSpace(resp.Name),
		Decimals: resp.Decimals.ptr(),
	}
	switch {
	case resp.Logo != "":
		md.LogoURI = resp.Logo
	case resp.LogoURI != "":
		md.LogoURI = resp.LogoURI
	case resp.Metaplex != nil:
		md.LogoURI = resp.Metaplex.MetadataURI
	}

	if md.empty() {
		return nil, ErrNoMetadata
	}
	return md, nil
}
