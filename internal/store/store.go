// Package store keeps the classes and users the portal client works with.
// Records are never removed: deleting marks them with a deletion time.
package store

import (
	"context"
	"strings"

	"github.com/tansive/pronote/internal/config"
)

// Store is implemented by MemoryStore and PostgresStore.
type Store interface {
	CreateClass(ctx context.Context, name string) (*Class, error)
	GetClass(ctx context.Context, id int64) (*Class, error)
	DeleteClass(ctx context.Context, id int64) error

	// CreateUser fails with ErrInvalidInput when the class is missing or deleted.
	CreateUser(ctx context.Context, username string, classID int64) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	DeleteUser(ctx context.Context, id int64) error

	Close() error
}

// Open returns a PostgresStore for a configured DSN and a MemoryStore otherwise.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	if cfg.DSN == "" {
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(ctx, cfg.DSN, cfg.Schema)
}

func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidInput.Msg(kind + " is required")
	}
	return nil
}
