package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps one JSON document per table holding the list of records.
// Every operation reads the whole table and rewrites it through a temp file and
// rename. The mutex serializes callers inside this process only.
type FileStore[T Entity] struct {
	mu   sync.Mutex
	dir  string
	path string
}

func NewFileStore[T Entity](dir, table string) (*FileStore[T], error) {
	if table == "" {
		return nil, fmt.Errorf("table name cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	s := &FileStore[T]{
		dir:  dir,
		path: filepath.Join(dir, table+".json"),
	}

	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		if err := s.write(nil); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat table %s: %w", s.path, err)
	}

	return s, nil
}

func (s *FileStore[T]) Path() string {
	return s.path
}

func (s *FileStore[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return zero, err
	}

	rec.SetID(newID())
	records = append(records, rec)
	if err := s.write(records); err != nil {
		return zero, err
	}
	return rec, nil
}

func (s *FileStore[T]) Retrieve(ctx context.Context, id string) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return zero, err
	}
	for _, rec := range records {
		if rec.GetID() == id {
			return rec, nil
		}
	}
	return zero, ErrNotFound
}

func (s *FileStore[T]) RetrieveAll(ctx context.Context) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.read()
}

func (s *FileStore[T]) Update(ctx context.Context, id string, mutate MutateFunc[T]) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return zero, err
	}

	for i, rec := range records {
		if rec.GetID() != id {
			continue
		}
		if err := applyMutation(rec, id, mutate); err != nil {
			return zero, err
		}
		records[i] = rec
		if err := s.write(records); err != nil {
			return zero, err
		}
		return rec, nil
	}
	return zero, ErrNotFound
}

func (s *FileStore[T]) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		return false, err
	}

	kept := make([]T, 0, len(records))
	for _, rec := range records {
		if rec.GetID() != id {
			kept = append(kept, rec)
		}
	}
	if err := s.write(kept); err != nil {
		return false, err
	}
	return len(kept) != len(records), nil
}

func (s *FileStore[T]) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("table %s is not accessible: %w", s.path, err)
	}
	return nil
}

func (s *FileStore[T]) read() ([]T, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", s.path, err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func (s *FileStore[T]) write(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode table %s: %w", s.path, err)
	}

	tmp, err := os.CreateTemp(s.dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", s.path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write table %s: %w", s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync table %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close table %s: %w", s.path, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace table %s: %w", s.path, err)
	}
	return nil
}
