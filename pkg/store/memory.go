package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore holds encoded records so values handed to callers never alias stored state.
type MemoryStore[T Entity] struct {
	mu      sync.RWMutex
	records map[string][]byte
	order   []string
}

func NewMemoryStore[T Entity]() *MemoryStore[T] {
	return &MemoryStore[T]{
		records: make(map[string][]byte),
	}
}

func (s *MemoryStore[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	id := newID()
	rec.SetID(id)
	data, err := encode(rec)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[id] = data
	s.order = append(s.order, id)
	return rec, nil
}

func (s *MemoryStore[T]) Retrieve(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()

	if !ok {
		return zero, ErrNotFound
	}
	return decode[T](data)
}

func (s *MemoryStore[T]) RetrieveAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0, len(s.order))
	for _, id := range s.order {
		rec, err := decode[T](s.records[id])
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *MemoryStore[T]) Update(ctx context.Context, id string, mutate MutateFunc[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.records[id]
	if !ok {
		return zero, ErrNotFound
	}
	rec, err := decode[T](data)
	if err != nil {
		return zero, err
	}
	if err := applyMutation(rec, id, mutate); err != nil {
		return zero, err
	}

	updated, err := encode(rec)
	if err != nil {
		return zero, err
	}
	s.records[id] = updated
	return rec, nil
}

func (s *MemoryStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	s.order = slices.DeleteFunc(s.order, func(v string) bool { return v == id })
	return true, nil
}

func (s *MemoryStore[T]) Ping(ctx context.Context) error {
	return ctx.Err()
}
