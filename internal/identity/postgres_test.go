package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("omok"),
		postgres.WithUsername("omok"),
		postgres.WithPassword("omok"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	store, err := NewPostgresStore(ctx, connString)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(store.Close)

	return store
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := setupPostgres(t)

	_, err := store.FindByName(ctx, "Alice")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := store.Create(ctx, "Alice")
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := store.FindByName(ctx, "Alice")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Alice", found.Name)

	assert.NoError(t, store.Delete(ctx, created.ID))
	assert.ErrorIs(t, store.Delete(ctx, created.ID), ErrNotFound)

	_, err = store.FindByName(ctx, "Alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_DuplicateNamesOldestWins(t *testing.T) {
	ctx := context.Background()
	store := setupPostgres(t)

	first, err := store.Create(ctx, "Bob")
	assert.NoError(t, err)
	second, err := store.Create(ctx, "Bob")
	assert.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	found, err := store.FindByName(ctx, "Bob")
	assert.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)
}
