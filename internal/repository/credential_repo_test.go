package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/crafto/internal/config"
	"github.com/timmy/crafto/internal/domain"
)

func newTestRepo(t *testing.T) *CredentialRepository {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "crafto.db"),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewCredentialRepository(db)
}

func TestCredentialRepository_SaveReadClear(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, ok := repo.Read(ctx, "cli")
	assert.False(t, ok)

	require.NoError(t, repo.Save(ctx, "cli", domain.Credential{Token: "tok1", Username: "alice"}))
	cred, ok := repo.Read(ctx, "cli")
	require.True(t, ok)
	assert.Equal(t, domain.Credential{Token: "tok1", Username: "alice"}, cred)

	require.NoError(t, repo.Clear(ctx, "cli"))
	_, ok = repo.Read(ctx, "cli")
	assert.False(t, ok)

	assert.NoError(t, repo.Clear(ctx, "cli"), "clearing twice is fine")
}

func TestCredentialRepository_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	require.NoError(t, repo.Save(ctx, "k", domain.Credential{Token: "old", Username: "alice"}))
	require.NoError(t, repo.Save(ctx, "k", domain.Credential{Token: "new", Username: "bob"}))
	require.NoError(t, repo.Save(ctx, "other", domain.Credential{Token: "x", Username: "carol"}))

	cred, ok := repo.Read(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "new", cred.Token)
	assert.Equal(t, "bob", cred.Username)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestCredentialRepository_ReadWithoutTableIsAbsent(t *testing.T) {
	db, err := InitDB(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "empty.db"),
	})
	require.NoError(t, err)

	_, ok := NewCredentialRepository(db).Read(context.Background(), "k")
	assert.False(t, ok)
}
