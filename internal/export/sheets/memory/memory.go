// Package memory is an in-process Mirror used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"kakeibo/internal/core"
)

type Row struct {
	Transaction  core.Transaction
	CategoryName string
}

type Store struct {
	mu   sync.Mutex
	rows map[string]Row
}

func New() *Store {
	return &Store{rows: make(map[string]Row)}
}

// Upsert implements sheets.Mirror.
func (s *Store) Upsert(_ context.Context, tx core.Transaction, categoryName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[tx.ID] = Row{Transaction: tx, CategoryName: categoryName}
	return nil
}

// Remove implements sheets.Mirror.
func (s *Store) Remove(_ context.Context, txID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, txID)
	return nil
}

// Row returns the mirrored row for txID.
func (s *Store) Row(txID string) (Row, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[txID]
	return row, ok
}

// Len returns the number of mirrored rows.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}
