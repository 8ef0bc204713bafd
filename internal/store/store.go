package store

import (
	"sync"

	"quoterelay/internal/model"
)

// Store holds the latest quote per symbol.
//
// The zero value is not usable; call New.
type Store struct {
	mu     sync.RWMutex
	quotes map[string]model.Quote
}

// New creates an empty snapshot store.
func New() *Store {
	return &Store{
		quotes: make(map[string]model.Quote),
	}
}

// Merge inserts or replaces the entry for the quote's symbol.
// Safe to call concurrently with Read and other Merges.
func (s *Store) Merge(q model.Quote) {
	s.mu.Lock()
	s.quotes[q.Symbol] = q
	s.mu.Unlock()
}

// Read returns a copy of the full current snapshot. The caller may hold the
// result across serialization or I/O without blocking merges.
func (s *Store) Read() map[string]model.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.Quote, len(s.quotes))
	for sym, q := range s.quotes {
		out[sym] = q
	}
	return out
}

// Get returns the latest quote for a symbol.
func (s *Store) Get(symbol string) (model.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[symbol]
	return q, ok
}

// Len returns the number of tracked symbols.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}
