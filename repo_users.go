package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// sessionTokenMemberSQL matches rows whose tokens column, a JSON array of
// live session tokens, contains the exact token string.
const sessionTokenMemberSQL = `EXISTS (SELECT 1 FROM json_each(?TableAlias.tokens) WHERE json_each.value = ?)`

type Users interface {
	repository.Repository[*User]

	GetByAccount(ctx context.Context, account string) (*User, error)
	GetByAccountTx(ctx context.Context, tx bun.IDB, account string) (*User, error)

	GetBySessionToken(ctx context.Context, userID uuid.UUID, token string) (*User, error)
	GetBySessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*User, error)

	AppendSessionToken(ctx context.Context, userID uuid.UUID, token string) error
	AppendSessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) error
	RemoveSessionToken(ctx context.Context, userID uuid.UUID, token string) error
	RemoveSessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) error
	ReplaceSessionToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error
	ReplaceSessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, oldToken, newToken string) error
	ClearSessionTokens(ctx context.Context, userID uuid.UUID) error
	ClearSessionTokensTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
	_ SessionStore                 = (*users)(nil)
	_ UserFinder                   = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "account"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	return a.CreateTx(ctx, tx, user)
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) GetByAccount(ctx context.Context, account string) (*User, error) {
	return a.GetByAccountTx(ctx, a.db, account)
}

func (a *users) GetByAccountTx(ctx context.Context, tx bun.IDB, account string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.account = ?", strings.TrimSpace(account)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"account": account,
				})
		}
		return nil, err
	}

	return record, nil
}

// GetBySessionToken resolves the user whose id matches AND whose tokens
// column contains this exact token string. Both conditions in one query:
// a forged claim pointing at another user fails membership here.
func (a *users) GetBySessionToken(ctx context.Context, userID uuid.UUID, token string) (*User, error) {
	return a.GetBySessionTokenTx(ctx, a.db, userID, token)
}

func (a *users) GetBySessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", userID).
		Where(sessionTokenMemberSQL, token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": userID.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) AppendSessionToken(ctx context.Context, userID uuid.UUID, token string) error {
	return a.runTokensTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return a.AppendSessionTokenTx(ctx, tx, userID, token)
	})
}

func (a *users) AppendSessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) error {
	return a.mutateTokensTx(ctx, tx, userID, func(tokens []string) ([]string, error) {
		return appendToken(tokens, token), nil
	})
}

// RemoveSessionToken drops the exact matching entry; an already-removed token
// is a no-op so logout stays idempotent under concurrent requests.
func (a *users) RemoveSessionToken(ctx context.Context, userID uuid.UUID, token string) error {
	return a.runTokensTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return a.RemoveSessionTokenTx(ctx, tx, userID, token)
	})
}

func (a *users) RemoveSessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, token string) error {
	return a.mutateTokensTx(ctx, tx, userID, func(tokens []string) ([]string, error) {
		out, _ := removeToken(tokens, token)
		return out, nil
	})
}

// ReplaceSessionToken swaps oldToken for newToken in one mutation. If the old
// entry is gone the session was revoked underneath us and the rotation must
// not resurrect it.
func (a *users) ReplaceSessionToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error {
	return a.runTokensTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return a.ReplaceSessionTokenTx(ctx, tx, userID, oldToken, newToken)
	})
}

func (a *users) ReplaceSessionTokenTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, oldToken, newToken string) error {
	return a.mutateTokensTx(ctx, tx, userID, func(tokens []string) ([]string, error) {
		out, removed := removeToken(tokens, oldToken)
		if !removed {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": userID.String(),
				})
		}
		return appendToken(out, newToken), nil
	})
}

func (a *users) ClearSessionTokens(ctx context.Context, userID uuid.UUID) error {
	return a.runTokensTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return a.ClearSessionTokensTx(ctx, tx, userID)
	})
}

func (a *users) ClearSessionTokensTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	return a.mutateTokensTx(ctx, tx, userID, func([]string) ([]string, error) {
		return []string{}, nil
	})
}

func (a *users) runTokensTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return a.db.RunInTx(ctx, nil, fn)
}

// mutateTokensTx applies a read-modify-write against the tokens column only.
// The transaction plus the column-scoped update keeps concurrent logins and
// logouts for the same user from clobbering each other's entries.
func (a *users) mutateTokensTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, mutate func([]string) ([]string, error)) error {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Column("id", "tokens").
		Where("?TableAlias.id = ?", userID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": userID.String(),
				})
		}
		return err
	}

	tokens, err := mutate(record.Tokens)
	if err != nil {
		return err
	}

	if tokens == nil {
		tokens = []string{}
	}

	now := time.Now()
	record.Tokens = tokens
	record.UpdatedAt = &now

	_, err = tx.NewUpdate().
		Model(record).
		Column("tokens", "updated_at").
		WherePK().
		Exec(ctx)

	return err
}
