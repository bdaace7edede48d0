package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's role
type UserRole string

const (
	// RoleUser is the default shopper role
	RoleUser UserRole = "user"
	// RoleAdmin grants access to admin only routes
	RoleAdmin UserRole = "admin"
)

// User is the user model. The Tokens column doubles as the session token
// store: each entry is a currently valid bearer token, appended in login
// order. Membership in that list, not the token's own expiry claim, is the
// authority for whether a session is live.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Account       string     `bun:"account,notnull,unique" json:"account,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Tokens        []string   `bun:"tokens,type:jsonb" json:"-"`
	Role          UserRole   `bun:"user_role,notnull" json:"user_role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasSessionToken reports whether token is registered as a live session.
func (u *User) HasSessionToken(token string) bool {
	if u == nil {
		return false
	}
	for _, t := range u.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// SetPassword runs the explicit password pipeline: length validation first,
// then the bcrypt transform. This is the only code path that writes
// PasswordHash; there is no implicit persistence hook.
func (u *User) SetPassword(plaintext string) error {
	hash, err := HashPassword(plaintext)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// EnsureRole defaults the role to RoleUser when unset.
func (u *User) EnsureRole() {
	if u.Role == "" {
		u.Role = RoleUser
	}
}

func prepareUserDefaults(u *User) {
	if u == nil {
		return
	}

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	if u.Tokens == nil {
		u.Tokens = []string{}
	}

	u.EnsureRole()
}

// appendToken returns tokens with token appended, preserving login order.
func appendToken(tokens []string, token string) []string {
	return append(tokens, token)
}

// removeToken returns tokens without the first exact match of token. Removing
// one entry invalidates only that session; other devices keep theirs.
func removeToken(tokens []string, token string) ([]string, bool) {
	for i, t := range tokens {
		if t == token {
			out := make([]string, 0, len(tokens)-1)
			out = append(out, tokens[:i]...)
			out = append(out, tokens[i+1:]...)
			return out, true
		}
	}
	return tokens, false
}
