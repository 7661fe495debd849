package store

import (
	"context"
	"sync"

	"payprefs/internal/preference/models"
	"payprefs/internal/sentinel"
)

// InMemoryStore keeps preference records in memory for tests and development.
// Reads take a single RLock over the whole user bucket, so a returned list is
// always a consistent snapshot and never mixes pre- and post-write values.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[models.Category]*models.Record
}

// New constructs an empty in-memory preference store.
func New() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]map[models.Category]*models.Record)}
}

func (s *InMemoryStore) Find(_ context.Context, userID string, category models.Category) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[userID][category]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyRecord := *record
	return &copyRecord, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Record
	for _, record := range s.records[userID] {
		copyRecord := *record
		out = append(out, &copyRecord)
	}
	return out, nil
}

func (s *InMemoryStore) Upsert(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.records[record.UserID]
	if !ok {
		bucket = make(map[models.Category]*models.Record)
		s.records[record.UserID] = bucket
	}
	copyRecord := *record
	bucket[record.Category] = &copyRecord
	return nil
}
