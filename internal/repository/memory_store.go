package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"FinLoad/internal/domain/models"
	domrepo "FinLoad/internal/domain/repository"
)

// MemoryStore is a process-local PriceStore used for dry runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[models.PriceKey]models.PriceRow
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[models.PriceKey]models.PriceRow)}
}

func (s *MemoryStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *MemoryStore) Upsert(ctx context.Context, rows []models.PriceRow) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	for _, r := range rows {
		k := r.Key()
		if _, ok := s.rows[k]; ok {
			continue
		}
		r.Timestamp = k.Timestamp
		s.rows[k] = r
		written++
	}
	return written, nil
}

func (s *MemoryStore) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PriceRow, error) {
	s.mu.RLock()
	out := make([]models.PriceRow, 0)
	for k, r := range s.rows {
		if k.Symbol == symbol && !k.Timestamp.Before(from) && !k.Timestamp.After(to) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Latest(ctx context.Context, symbol string) (*models.PriceRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *models.PriceRow
	for k, r := range s.rows {
		if k.Symbol != symbol {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			r := r
			latest = &r
		}
	}
	return latest, nil
}

// Len returns the number of stored rows.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func (s *MemoryStore) Health(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ domrepo.PriceStore = (*MemoryStore)(nil)
