package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/vitalvault/importer/pkg/common/models"
)

// MemoryStore is an in-process RecordStore used by tests and the CLI's
// dry-run mode.
type MemoryStore struct {
	mu      sync.Mutex
	records map[models.Category][]models.Record
	batches []models.ImportBatch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[models.Category][]models.Record)}
}

func (s *MemoryStore) AddRecords(ctx context.Context, category models.Category, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[category] = append(s.records[category], records...)
	return nil
}

func (s *MemoryStore) RecordImport(ctx context.Context, batch models.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *MemoryStore) QueryRange(ctx context.Context, category models.Category, from, to string) ([]models.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Record
	for _, rec := range s.records[category] {
		if from != "" && rec.Date < from {
			continue
		}
		if to != "" && rec.Date > to {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context, category models.Category) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.records[category])), nil
}

func (s *MemoryStore) ListImports(ctx context.Context) ([]models.ImportBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ImportBatch, len(s.batches))
	copy(out, s.batches)
	return out, nil
}
