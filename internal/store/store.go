package store

import (
	"context"
	"errors"
)

// StorageKey is the fixed name under which the application document lives.
const StorageKey = "organise_karo_data_v1"

var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicate          = errors.New("already recorded")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// Persister stores the whole application document as one opaque JSON blob.
// Load returns ErrNotFound when nothing has been saved under key.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, doc []byte) error
}

type NoopPersister struct{}

func (NoopPersister) Load(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrNotFound
}

func (NoopPersister) Save(_ context.Context, _ string, _ []byte) error {
	return nil
}
