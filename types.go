package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// Authenticator holds methods to deal with authentication and the session
// token lifecycle. Login and Extend mint tokens and register them in the
// user's session list; Authenticate replays the full per-request check chain
// (signature, expiry policy, store membership).
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, error)
	Authenticate(ctx context.Context, token string, allowExpired bool) (*User, AuthClaims, error)
	Extend(ctx context.Context, user *User, token string) (string, error)
	Logout(ctx context.Context, user *User, token string) error
	RevokeSessions(ctx context.Context, identifier string) error
	SessionFromToken(token string) (Session, error)
	IdentityFromSession(ctx context.Context, session Session) (Identity, error)
}

type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
}

type HTTPAuthenticator interface {
	Middleware
	Login(c router.Context, payload LoginPayload) (string, error)
	Logout(c router.Context) error
	Extend(c router.Context) (string, error)
	RevokeSessions(c router.Context, identifier string) error
}

// Middleware builds the route guards. ProtectedRoute enforces the full check
// chain including expiry; SessionRoute skips only the expiry rejection so a
// client can exchange or invalidate a stale-but-registered token; AdminRoute
// adds the role gate on top of ProtectedRoute.
type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(c router.Context, err error) error) router.MiddlewareFunc
	SessionRoute(cfg Config, errorHandler func(c router.Context, err error) error) router.MiddlewareFunc
	AdminRoute(cfg Config, errorHandler func(c router.Context, err error) error) router.MiddlewareFunc
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Account() string
	Email() string
	Role() string
}

// Config holds auth options. It is built once at startup and passed by
// reference into the token issuer and authenticator; there is no ambient
// process-wide lookup.
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// SessionStore is the narrow persistence contract the token lifecycle needs:
// find a user by claim + token membership, and apply token-targeted
// mutations against the persisted record.
type SessionStore interface {
	GetBySessionToken(ctx context.Context, userID uuid.UUID, token string) (*User, error)
	AppendSessionToken(ctx context.Context, userID uuid.UUID, token string) error
	RemoveSessionToken(ctx context.Context, userID uuid.UUID, token string) error
	ReplaceSessionToken(ctx context.Context, userID uuid.UUID, oldToken, newToken string) error
	ClearSessionTokens(ctx context.Context, userID uuid.UUID) error
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
