package memory

import (
	"context"
	"sync"

	"finreport/internal/core"
	"finreport/internal/ledger"
)

// Store keeps the ledger in process memory.
type Store struct {
	mu    sync.RWMutex
	items core.Ledger
}

var (
	_ ledger.Source   = (*Store)(nil)
	_ ledger.Replacer = (*Store)(nil)
)

func New(l core.Ledger) *Store {
	return &Store{items: l.Clone()}
}

// NewFromSource seeds the store from src. A failing seed leaves the store
// empty and returns the error so the caller can log it.
func NewFromSource(ctx context.Context, src ledger.Source) (*Store, error) {
	l, err := src.Load(ctx)
	if err != nil {
		return New(nil), err
	}
	return New(l), nil
}

// Load returns a copy of the stored ledger.
func (s *Store) Load(_ context.Context) (core.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Clone(), nil
}

// ReplaceAll swaps the stored ledger.
func (s *Store) ReplaceAll(_ context.Context, l core.Ledger) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = l.Clone()
	return len(s.items), nil
}
