package memory

import (
	"context"
	"fmt"
	"sync"

	"scontrino/internal/core"
)

// Store is an in-memory export target for tests and local development.
type Store struct {
	mu    sync.Mutex
	items map[int64]core.Receipt
	order []int64
}

func New() *Store {
	return &Store{items: map[int64]core.Receipt{}}
}

// Append stores the receipt and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, r core.Receipt) (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.items[r.ID] = r
	return fmt.Sprintf("mem:%d", r.ID), nil
}

func (s *Store) Remove(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Receipts returns the stored receipts in append order.
func (s *Store) Receipts() []core.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Receipt, 0, len(s.items))
	for _, id := range s.order {
		if r, ok := s.items[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
