package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"token-convert/pkg/types"
)

const (
	DefaultStorageFileName = ".token-convert-history.json"
)

// Storage persists submitted conversions in a JSON file
type Storage struct {
	filePath    string
	mu          sync.RWMutex
	conversions map[string]*types.Conversion
	now         func() time.Time
}

// historyFile represents the JSON structure for storage
type historyFile struct {
	Conversions map[string]*types.Conversion `json:"conversions"`
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

	storage := &Storage{
		filePath:    filePath,
		conversions: make(map[string]*types.Conversion),
		now:         time.Now,
	}

	// A missing file is created on first save
	if err := storage.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	return storage, nil
}

// load reads conversions from the storage file
func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	if file.Conversions != nil {
		s.conversions = file.Conversions
	}
	return nil
}

// saveLocked writes conversions to the storage file; callers hold s.mu
func (s *Storage) saveLocked() error {
	data, err := json.MarshalIndent(historyFile{Conversions: s.conversions}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to temporary file first, then rename for atomic write
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Add stores a conversion, assigning an ID and timestamp when missing
func (s *Storage) Add(conversion *types.Conversion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conversion.ID == "" {
		conversion.ID = uuid.New().String()
	}
	if conversion.Timestamp.IsZero() {
		conversion.Timestamp = s.now()
	}
	if conversion.Status == "" {
		conversion.Status = types.ConversionSubmitted
	}
	if _, exists := s.conversions[conversion.ID]; exists {
		return fmt.Errorf("conversion '%s' already exists", conversion.ID)
	}

	stored := *conversion
	s.conversions[conversion.ID] = &stored

	return s.saveLocked()
}

// Get retrieves a conversion by ID
func (s *Storage) Get(id string) (*types.Conversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversion, exists := s.conversions[id]
	if !exists {
		return nil, fmt.Errorf("conversion '%s' not found", id)
	}

	c := *conversion
	return &c, nil
}

// FindByDeposit returns the conversion that funded depositAddress
func (s *Storage) FindByDeposit(depositAddress string) (*types.Conversion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conversion := range s.conversions {
		if conversion.DepositAddress != "" && conversion.DepositAddress == depositAddress {
			c := *conversion
			return &c, nil
		}
	}

	return nil, fmt.Errorf("no conversion for deposit address '%s'", depositAddress)
}

// UpdateStatus changes the status of a stored conversion
func (s *Storage) UpdateStatus(id string, status types.ConversionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversion, exists := s.conversions[id]
	if !exists {
		return fmt.Errorf("conversion '%s' not found", id)
	}

	conversion.Status = status
	return s.saveLocked()
}

// List returns all conversions, newest first
func (s *Storage) List() []*types.Conversion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversions := make([]*types.Conversion, 0, len(s.conversions))
	for _, conversion := range s.conversions {
		c := *conversion
		conversions = append(conversions, &c)
	}

	sort.Slice(conversions, func(i, j int) bool {
		return conversions[i].Timestamp.After(conversions[j].Timestamp)
	})

	return conversions
}

// Count returns the total number of conversions
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.conversions)
}

// GetFilePath returns the storage file path
func (s *Storage) GetFilePath() string {
	return s.filePath
}
