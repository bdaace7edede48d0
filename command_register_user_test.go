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

	"github.com/goliatone/go-shop-auth"
)

func setupRepoManager(t *testing.T) (auth.RepositoryManager, func()) {
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

	return auth.NewRepositoryManager(bunDB), cleanup
}

func TestRegisterUserMessageValidate(t *testing.T) {
	valid := auth.RegisterUserMessage{
		Account:  "alice1",
		Email:    "alice@example.com",
		Password: "pass123",
	}

	tests := []struct {
		name    string
		mutate  func(*auth.RegisterUserMessage)
		wantErr bool
	}{
		{"valid message", func(m *auth.RegisterUserMessage) {}, false},
		{"account too short", func(m *auth.RegisterUserMessage) { m.Account = "abc" }, true},
		{"account too long", func(m *auth.RegisterUserMessage) { m.Account = "abcdefghijklmnopqrstu" }, true},
		{"account not alphanumeric", func(m *auth.RegisterUserMessage) { m.Account = "alice!" }, true},
		{"missing email", func(m *auth.RegisterUserMessage) { m.Email = "" }, true},
		{"invalid email", func(m *auth.RegisterUserMessage) { m.Email = "not-an-email" }, true},
		{"missing password", func(m *auth.RegisterUserMessage) { m.Password = "" }, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := valid
			tc.mutate(&msg)
			err := msg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates the user with a hashed password", func(t *testing.T) {
		repo, cleanup := setupRepoManager(t)
		defer cleanup()

		handler := auth.NewRegisterUserHandler(repo)

		user, err := handler.Execute(ctx, auth.RegisterUserMessage{
			Account:  "alice1",
			Email:    "alice@example.com",
			Password: "pass123",
		})

		require.NoError(t, err)
		require.NotNil(t, user)
		assert.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, "alice1", user.Account)
		assert.Equal(t, auth.RoleUser, user.Role)

		// the stored value is a transform, never the plaintext
		assert.NotEqual(t, "pass123", user.PasswordHash)
		assert.NoError(t, auth.ComparePasswordAndHash("pass123", user.PasswordHash))

		found, err := repo.Users().GetByAccount(ctx, "alice1")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		assert.Empty(t, found.Tokens)
	})

	t.Run("Password outside bounds never reaches the store", func(t *testing.T) {
		repo, cleanup := setupRepoManager(t)
		defer cleanup()

		handler := auth.NewRegisterUserHandler(repo)

		user, err := handler.Execute(ctx, auth.RegisterUserMessage{
			Account:  "alice1",
			Email:    "alice@example.com",
			Password: "abc",
		})

		assert.Nil(t, user)
		assert.ErrorIs(t, err, auth.ErrPasswordLength)

		_, err = repo.Users().GetByAccount(ctx, "alice1")
		assert.Error(t, err)
	})

	t.Run("Invalid payload", func(t *testing.T) {
		repo, cleanup := setupRepoManager(t)
		defer cleanup()

		handler := auth.NewRegisterUserHandler(repo)

		user, err := handler.Execute(ctx, auth.RegisterUserMessage{
			Account:  "a",
			Email:    "alice@example.com",
			Password: "pass123",
		})

		assert.Nil(t, user)
		assert.Error(t, err)
	})

	t.Run("Duplicate account conflicts", func(t *testing.T) {
		repo, cleanup := setupRepoManager(t)
		defer cleanup()

		handler := auth.NewRegisterUserHandler(repo)
		msg := auth.RegisterUserMessage{
			Account:  "alice1",
			Email:    "alice@example.com",
			Password: "pass123",
		}

		_, err := handler.Execute(ctx, msg)
		require.NoError(t, err)

		user, err := handler.Execute(ctx, msg)
		assert.Nil(t, user)
		assert.Error(t, err)
	})

	t.Run("Role from the message is kept", func(t *testing.T) {
		repo, cleanup := setupRepoManager(t)
		defer cleanup()

		handler := auth.NewRegisterUserHandler(repo)

		user, err := handler.Execute(ctx, auth.RegisterUserMessage{
			Account:  "root01",
			Email:    "root@example.com",
			Password: "pass123",
			Role:     "admin",
		})

		require.NoError(t, err)
		assert.Equal(t, auth.RoleAdmin, user.Role)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		repo, cleanup := setupRepoManager(t)
		defer cleanup()

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		handler := auth.NewRegisterUserHandler(repo)
		user, err := handler.Execute(cctx, auth.RegisterUserMessage{
			Account:  "alice1",
			Email:    "alice@example.com",
			Password: "pass123",
		})

		assert.Nil(t, user)
		assert.Error(t, err)
	})
}

func TestRegisterUserMessageType(t *testing.T) {
	assert.Equal(t, "user.register", auth.RegisterUserMessage{}.Type())
}
