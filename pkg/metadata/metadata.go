// Package metadata fetches best-effort token metadata from third-party indexers.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrNoMetadata is returned when a source answered but knows nothing useful about the token
var ErrNoMetadata = errors.New("no metadata")

const defaultTimeout = 10 * time.Second

// Metadata is what an indexer reports for a mint. Decimals is nil when the source omitted it.
type Metadata struct {
	Symbol   string
	Name     string
	Decimals *int
	LogoURI  string
}

func (m *Metadata) empty() bool {
	return m.Symbol == "" && m.Name == "" && m.Decimals == nil && m.LogoURI == ""
}

// Source is a single metadata provider
type Source interface {
	Name() string
	Fetch(ctx context.Context, address string) (*Metadata, error)
}

// flexInt accepts both 6 and "6"
type flexInt struct {
	v  int
	ok bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("decimals %q: %w", s, err)
	}
	f.v, f.ok = n, true
	return nil
}

func (f flexInt) ptr() *int {
	if !f.ok || f.v < 0 {
		return nil
	}
	v := f.v
	return &v
}

func getJSON(ctx context.Context, httpClient *http.Client, url string, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoMetadata
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
