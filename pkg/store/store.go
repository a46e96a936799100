// Package store is a typed record store keyed by generated UUIDs.
//
// Each entity kind lives in its own table. Records keep insertion order and are
// persisted whole; a Store never exposes a half-written table to its callers.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")

	ErrUnknownBackend = errors.New("unknown store backend")
)

// Entity is implemented by pointer record types (e.g. *model.Room).
type Entity interface {
	GetID() string
	SetID(id string)
}

// MutateFunc applies a typed partial update in place. Returning an error aborts
// the update without persisting anything.
type MutateFunc[T Entity] func(rec T) error

type Store[T Entity] interface {
	Create(ctx context.Context, rec T) (T, error)
	Retrieve(ctx context.Context, id string) (T, error)
	RetrieveAll(ctx context.Context) ([]T, error)
	Update(ctx context.Context, id string, mutate MutateFunc[T]) (T, error)
	Delete(ctx context.Context, id string) (bool, error)
	Pinger
}

type Pinger interface {
	Ping(ctx context.Context) error
}

func newID() string {
	return uuid.NewString()
}

func encode[T Entity](rec T) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func decode[T Entity](data []byte) (T, error) {
	var rec T
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// applyMutation runs mutate and pins the identity so an update can never re-key a record.
func applyMutation[T Entity](rec T, id string, mutate MutateFunc[T]) error {
	if mutate != nil {
		if err := mutate(rec); err != nil {
			return err
		}
	}
	rec.SetID(id)
	return nil
}
