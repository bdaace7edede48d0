package auth_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-shop-auth"
)

const sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    account TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT,
    tokens TEXT NOT NULL DEFAULT '[]',
    user_role TEXT NOT NULL DEFAULT 'user',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP,
    deleted_at TIMESTAMP NULL
);`

func setupUsersRepo(t *testing.T) (auth.Users, func()) {
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateUsers)
	require.NoError(t, err)

	cleanup := func() {
		_ = bunDB.Close()
		_ = db.Close()
	}

	return auth.NewUsersRepository(bunDB), cleanup
}

func seedUser(t *testing.T, repo auth.Users, account string) *auth.User {
	t.Helper()

	user := &auth.User{
		Account: account,
		Email:   account + "@example.com",
	}
	require.NoError(t, user.SetPassword("pass123"))

	created, err := repo.Register(context.Background(), user)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)

	return created
}

func TestUsersRepositoryRegister(t *testing.T) {
	repo, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, repo, "alice1")

	assert.Equal(t, auth.RoleUser, user.Role)
	assert.NotNil(t, user.Tokens)
	assert.Empty(t, user.Tokens)

	found, err := repo.GetByAccount(ctx, "alice1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "alice1@example.com", found.Email)
}

func TestUsersRepositoryGetByAccount(t *testing.T) {
	repo, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	seedUser(t, repo, "alice1")

	t.Run("Trims the identifier", func(t *testing.T) {
		found, err := repo.GetByAccount(ctx, "  alice1  ")
		require.NoError(t, err)
		assert.Equal(t, "alice1", found.Account)
	})

	t.Run("Unknown account", func(t *testing.T) {
		found, err := repo.GetByAccount(ctx, "ghost1")
		assert.Nil(t, found)
		assert.True(t, repository.IsRecordNotFound(err))
	})
}

func TestUsersRepositorySessionTokens(t *testing.T) {
	repo, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, repo, "alice1")
	other := seedUser(t, repo, "bob234")

	t.Run("Append and look up", func(t *testing.T) {
		require.NoError(t, repo.AppendSessionToken(ctx, user.ID, "token-a"))

		found, err := repo.GetBySessionToken(ctx, user.ID, "token-a")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.True(t, found.HasSessionToken("token-a"))
	})

	t.Run("Multiple devices keep independent entries", func(t *testing.T) {
		require.NoError(t, repo.AppendSessionToken(ctx, user.ID, "token-b"))
		require.NoError(t, repo.AppendSessionToken(ctx, user.ID, "token-c"))

		found, err := repo.GetBySessionToken(ctx, user.ID, "token-b")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"token-a", "token-b", "token-c"}, found.Tokens)
	})

	t.Run("Token registered to another user does not resolve", func(t *testing.T) {
		// a forged claim pointing the right token at the wrong user fails
		found, err := repo.GetBySessionToken(ctx, other.ID, "token-a")
		assert.Nil(t, found)
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("Unregistered token does not resolve", func(t *testing.T) {
		found, err := repo.GetBySessionToken(ctx, user.ID, "never-issued")
		assert.Nil(t, found)
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("Remove drops only the matching entry", func(t *testing.T) {
		require.NoError(t, repo.RemoveSessionToken(ctx, user.ID, "token-b"))

		_, err := repo.GetBySessionToken(ctx, user.ID, "token-b")
		assert.True(t, repository.IsRecordNotFound(err))

		found, err := repo.GetBySessionToken(ctx, user.ID, "token-a")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"token-a", "token-c"}, found.Tokens)
	})

	t.Run("Remove is idempotent", func(t *testing.T) {
		require.NoError(t, repo.RemoveSessionToken(ctx, user.ID, "token-b"))
		require.NoError(t, repo.RemoveSessionToken(ctx, user.ID, "token-b"))
	})

	t.Run("Remove for a missing user", func(t *testing.T) {
		err := repo.RemoveSessionToken(ctx, uuid.New(), "token-a")
		assert.True(t, repository.IsRecordNotFound(err))
	})
}

func TestUsersRepositoryReplaceSessionToken(t *testing.T) {
	repo, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, repo, "alice1")

	require.NoError(t, repo.AppendSessionToken(ctx, user.ID, "stale-token"))
	require.NoError(t, repo.AppendSessionToken(ctx, user.ID, "other-device"))

	t.Run("Swaps old for new in one mutation", func(t *testing.T) {
		require.NoError(t, repo.ReplaceSessionToken(ctx, user.ID, "stale-token", "fresh-token"))

		found, err := repo.GetBySessionToken(ctx, user.ID, "fresh-token")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"other-device", "fresh-token"}, found.Tokens)

		_, err = repo.GetBySessionToken(ctx, user.ID, "stale-token")
		assert.True(t, repository.IsRecordNotFound(err))
	})

	t.Run("Absent old token must not be resurrected", func(t *testing.T) {
		err := repo.ReplaceSessionToken(ctx, user.ID, "stale-token", "zombie-token")
		assert.True(t, repository.IsRecordNotFound(err))

		_, err = repo.GetBySessionToken(ctx, user.ID, "zombie-token")
		assert.True(t, repository.IsRecordNotFound(err))
	})
}

func TestUsersRepositoryClearSessionTokens(t *testing.T) {
	repo, cleanup := setupUsersRepo(t)
	defer cleanup()

	ctx := context.Background()
	user := seedUser(t, repo, "alice1")

	require.NoError(t, repo.AppendSessionToken(ctx, user.ID, "token-a"))
	require.NoError(t, repo.AppendSessionToken(ctx, user.ID, "token-b"))

	require.NoError(t, repo.ClearSessionTokens(ctx, user.ID))

	_, err := repo.GetBySessionToken(ctx, user.ID, "token-a")
	assert.True(t, repository.IsRecordNotFound(err))
	_, err = repo.GetBySessionToken(ctx, user.ID, "token-b")
	assert.True(t, repository.IsRecordNotFound(err))

	found, err := repo.GetByAccount(ctx, "alice1")
	require.NoError(t, err)
	assert.Empty(t, found.Tokens)
}
