package store

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/pronote/internal/config"
)

// exerciseStore runs the same checks against every Store implementation.
func exerciseStore(t *testing.T, s Store) {
	ctx := log.Logger.WithContext(context.Background())

	// Create and read back a class
	class, err := s.CreateClass(ctx, "3B")
	require.NoError(t, err)
	assert.Equal(t, "3B", class.Name)
	assert.False(t, class.CreatedAt.IsZero())
	assert.False(t, class.IsDeleted())

	got, err := s.GetClass(ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, class.ID, got.ID)
	assert.Equal(t, "3B", got.Name)

	// Class names are unique
	_, err = s.CreateClass(ctx, "3B")
	assert.ErrorIs(t, err, ErrAlreadyExists)
	_, err = s.CreateClass(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Users belong to existing classes
	user, err := s.CreateUser(ctx, "demonstration", class.ID)
	require.NoError(t, err)
	assert.Equal(t, class.ID, user.ClassID)
	_, err = s.CreateUser(ctx, "ghost", class.ID+1000)
	assert.ErrorIs(t, err, ErrInvalidInput)

	gotUser, err := s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "demonstration", gotUser.Username)
	assert.False(t, gotUser.IsDeleted())

	// Soft delete keeps the record
	require.NoError(t, s.DeleteUser(ctx, user.ID))
	gotUser, err = s.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, gotUser.IsDeleted())
	assert.ErrorIs(t, s.DeleteUser(ctx, user.ID), ErrNotFound)

	require.NoError(t, s.DeleteClass(ctx, class.ID))
	got, err = s.GetClass(ctx, class.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())
	assert.ErrorIs(t, s.DeleteClass(ctx, class.ID), ErrNotFound)

	// Deleted classes take no new users
	_, err = s.CreateUser(ctx, "late", class.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// Missing records
	_, err = s.GetClass(ctx, class.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetUser(ctx, user.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteClass(ctx, class.ID+1000), ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c, err := s.CreateClass(ctx, "4A")
	require.NoError(t, err)
	c.Name = "changed"

	got, err := s.GetClass(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "4A", got.Name)
}

func TestOpenWithoutDSN(t *testing.T) {
	s, err := Open(context.Background(), config.StoreConfig{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("PRONOTE_STORE_DSN")
	if dsn == "" {
		t.Skip("PRONOTE_STORE_DSN not set")
	}
	ctx := context.Background()
	schema := "pronote_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]

	s, err := NewPostgresStore(ctx, dsn, schema)
	require.NoError(t, err)
	defer func() {
		_, _ = s.db.ExecContext(ctx, "DROP SCHEMA "+pq.QuoteIdentifier(schema)+" CASCADE")
		s.Close()
	}()
	exerciseStore(t, s)
}
