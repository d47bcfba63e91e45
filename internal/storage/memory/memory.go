package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/burn-portal/internal/amount"
	"github.com/rovshanmuradov/burn-portal/internal/storage"
	"github.com/rovshanmuradov/burn-portal/internal/storage/models"
)

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu    sync.RWMutex
	burns []*models.Burn
	seen  map[string]struct{} // keyed by signature
}

// NewStore creates an empty in-memory ledger.
func NewStore() *Store {
	return &Store{seen: make(map[string]struct{})}
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

func (s *Store) Record(_ context.Context, b *models.Burn) error {
	if err := storage.Validate(b); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[b.Signature]; exists {
		return storage.ErrDuplicateKey
	}
	copy := *b
	s.burns = append(s.burns, &copy)
	s.seen[b.Signature] = struct{}{}
	return nil
}

func (s *Store) BurnedSince(_ context.Context, since time.Time) (amount.TokenAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := amount.Zero()
	for _, b := range s.burns {
		if b.BurnedAt.Before(since) {
			continue
		}
		sum, overflow := total.Add(b.Amount)
		if overflow {
			return amount.Zero(), amount.ErrAmountOverflow
		}
		total = sum
	}
	return total, nil
}

func (s *Store) List(_ context.Context, limit int) ([]*models.Burn, error) {
	s.mu.RLock()
	out := make([]*models.Burn, 0, len(s.burns))
	for _, b := range s.burns {
		copy := *b
		out = append(out, &copy)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BurnedAt.After(out[j].BurnedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
