package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned by Load when no record exists for the profile.
var ErrNotFound = errors.New("progress record not found")

// Store persists progress records. Save must be atomic: a reader sees
// either the previous record or the new one, never a partial write.
type Store interface {
	Load(ctx context.Context, profileID string) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// LoadOrCreate loads the profile's record, creating and saving a default one
// on first launch.
func LoadOrCreate(ctx context.Context, s Store, profileID string, today Day) (*Record, bool, error) {
	rec, err := s.Load(ctx, profileID)
	if err == nil {
		rec.Normalize()
		return rec, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, fmt.Errorf("load progress: %w", err)
	}

	rec = New(profileID, "", today)
	if err := s.Save(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("save new progress: %w", err)
	}
	return rec, true, nil
}

// MemoryStore is an in-memory implementation of Store.
// Records are kept encoded so callers never share state with the store.
type MemoryStore struct {
	records map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
	}
}

func (s *MemoryStore) Load(_ context.Context, profileID string) (*Record, error) {
	s.mu.RLock()
	data, ok := s.records[profileID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decodeRecord(data)
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec == nil || rec.ProfileID == "" {
		return fmt.Errorf("profile_id is required")
	}
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[rec.ProfileID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) HealthCheck(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func encodeRecord(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal progress: %w", err)
	}
	return &rec, nil
}
