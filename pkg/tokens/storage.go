package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sol-swap/pkg/types"
)

const (
	DefaultStorageFileName = ".sol-swap-tokens.json"
)

// Storage persists custom token records as a JSON file
type Storage struct {
	filePath string
	mu       sync.Mutex
}

// TokenStorage represents the JSON structure for storage
type TokenStorage struct {
	Tokens []types.CustomTokenRecord `json:"tokens"`
}

// NewStorage creates a new storage instance
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		// Default to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	return &Storage{filePath: filePath}, nil
}

// Load reads records from the storage file. A missing file is an empty list.
func (s *Storage) Load() ([]types.CustomTokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var tokenStorage TokenStorage
	if err := json.Unmarshal(data, &tokenStorage); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens: %w", err)
	}

	return tokenStorage.Tokens, nil
}

// Save rewrites the storage file with records
func (s *Storage) Save(records []types.CustomTokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if records == nil {
		records = []types.CustomTokenRecord{}
	}
	data, err := json.MarshalIndent(TokenStorage{Tokens: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tokens: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write tokens: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// GetFilePath returns the storage file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}
