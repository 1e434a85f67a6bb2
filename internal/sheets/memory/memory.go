// Package memory is an in-process RecordWriter used in tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"fatura/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.Record
}

func New() *Store {
	return &Store{}
}

// Append stores the record and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r sheets.Record) (string, error) {
	if err := r.Amount.Validate(); err != nil {
		return "", err
	}
	if err := r.Kind.Validate(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, r)
	return fmt.Sprintf("memory:%d", len(s.rows)), nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []sheets.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.Record, len(s.rows))
	copy(out, s.rows)
	return out
}
