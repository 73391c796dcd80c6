package metadata

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultSolscanBaseURL = "https://api.solscan.io"

// Solscan is the fallback metadata source
type Solscan struct {
	baseURL    string
	httpClient *http.Client
}

type solscanResponse struct {
	Success bool `json:"success"`
	Data    *struct {
		Symbol   string  `json:"symbol"`
		Name     string  `json:"name"`
		Decimals flexInt `json:"decimals"`
		Icon     string  `json:"icon"`
	} `json:"data"`
}

func NewSolscan(baseURL string, timeout time.Duration) *Solscan {
	if baseURL == "" {
		baseURL = DefaultSolscanBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Solscan{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *Solscan) Name() string { return "solscan" }

func (s *Solscan) Fetch(ctx context.Context, address string) (*Metadata, error) {
	var resp solscanResponse
	endpoint := s.baseURL + "/token/meta?token=" + url.QueryEscape(address)
	if err := getJSON(ctx, s.httpClient, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, ErrNoMetadata
	}

	md := &Metadata{
		Symbol:   strings.TrimSpace(resp.Data.Symbol),
		Name:     strings.TrimSpace(resp.Data.Name),
		Decimals: resp.Data.Decimals.ptr(),
		LogoURI:  resp.Data.Icon,
	}
	if md.empty() {
		return nil, ErrNoMetadata
	}
	return md, nil
}
