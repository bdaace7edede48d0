package auth

import (
	"context"
	"reflect"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// defaultStoreTimeout bounds every session store call so a slow backend
// degrades into a rejection instead of a hung request.
const defaultStoreTimeout = 5 * time.Second

// Auther implements Authenticator: credential verification, token issuance,
// and the per-request token check chain backed by the persisted session list.
type Auther struct {
	provider        IdentityProvider
	sessions        SessionStore
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        []string
	storeTimeout    time.Duration
	logger          Logger
	tokenService    TokenService
	activitySink    ActivitySink
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, sessions SessionStore, opts Config) *Auther {
	tokenService := NewTokenService(
		[]byte(opts.GetSigningKey()),
		opts.GetTokenExpiration(),
		opts.GetIssuer(),
		opts.GetAudience(),
		defLogger{},
	)

	return &Auther{
		provider:        provider,
		sessions:        sessions,
		signingKey:      []byte(opts.GetSigningKey()),
		tokenExpiration: opts.GetTokenExpiration(),
		audience:        opts.GetAudience(),
		issuer:          opts.GetIssuer(),
		storeTimeout:    defaultStoreTimeout,
		logger:          defLogger{},
		tokenService:    tokenService,
		activitySink:    noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = logger
	// Update the TokenService logger as well
	s.tokenService = NewTokenService(
		s.signingKey,
		s.tokenExpiration,
		s.issuer,
		s.audience,
		logger,
	)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithStoreTimeout overrides the per-call bound on session store operations.
func (s *Auther) WithStoreTimeout(d time.Duration) *Auther {
	if d > 0 {
		s.storeTimeout = d
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the account/password pair, mints a token, and registers it
// in the user's session list. The append-then-persist step is mandatory: a
// signed token that was never registered must never authenticate, so a store
// failure fails the login wholesale.
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, error) {
	var err error
	var identity Identity

	if identity, err = s.provider.VerifyIdentity(ctx, identifier, password); err != nil {
		s.logger.Error("Login verify identity error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
			"identifier": identifier,
			"error":      ErrIdentityNotFound.Error(),
		})
		return "", ErrIdentityNotFound
	}

	token, err := s.generateJWT(identity)
	if err != nil {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromIdentity(identity), identity.ID(), map[string]any{
			"identifier": identifier,
			"error":      err.Error(),
		})
		return "", err
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "identity has a malformed id")
	}

	if err := s.registerToken(ctx, userID, token); err != nil {
		s.logger.Error("Login failed to register session token", "error", err)
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromIdentity(identity), identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return token, nil
}

// Authenticate runs the per-request check chain for a raw bearer token:
// signature and structure, expiry policy, then membership in the user's
// persisted session list. allowExpired skips only the expiry rejection and is
// reserved for the extend and logout operations.
func (s *Auther) Authenticate(ctx context.Context, token string, allowExpired bool) (*User, AuthClaims, error) {
	if token == "" {
		return nil, nil, ErrTokenMissing
	}

	var claims AuthClaims
	var err error

	if allowExpired {
		claims, err = s.tokenService.ValidateAllowExpired(token)
	} else {
		claims, err = s.tokenService.Validate(token)
	}

	if err != nil {
		return nil, nil, err
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, nil, ErrTokenMalformed
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.sessions.GetBySessionToken(cctx, userID, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// Well signed but not registered: logged out, rotated away,
			// or a claim forged to point at another user.
			return nil, nil, ErrTokenRevoked
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session lookup failed")
	}

	return user, claims, nil
}

// Extend exchanges a still-registered token for a freshly minted one. The old
// entry is replaced in the same mutation so the session count is unchanged.
// The caller is expected to have authenticated with allowExpired; a lapsed
// expiry claim is exactly what this operation exists for.
func (s *Auther) Extend(ctx context.Context, user *User, token string) (string, error) {
	if user == nil || token == "" {
		return "", ErrUnableToFindSession
	}

	fresh, err := s.generateJWT(NewIdentityFromUser(user))
	if err != nil {
		return "", err
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.sessions.ReplaceSessionToken(cctx, user.ID, token, fresh); err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrTokenRevoked
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate session token")
	}

	s.emitAuthEvent(ctx, ActivityEventSessionExtended, ActorRef{ID: user.ID.String(), Type: "user"}, user.ID.String(), nil)

	return fresh, nil
}

// Logout removes the exact token entry from the user's session list. Other
// concurrently issued tokens for the same user stay valid.
func (s *Auther) Logout(ctx context.Context, user *User, token string) error {
	if user == nil || token == "" {
		return ErrUnableToFindSession
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.sessions.RemoveSessionToken(cctx, user.ID, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to remove session token")
	}

	s.emitAuthEvent(ctx, ActivityEventLogout, ActorRef{ID: user.ID.String(), Type: "user"}, user.ID.String(), nil)

	return nil
}

// RevokeSessions clears every live session for the account. Admin tooling
// uses it to force a full re-login, e.g. after a credential leak.
func (s *Auther) RevokeSessions(ctx context.Context, identifier string) error {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, identifier)
	if err != nil {
		return err
	}

	userID, err := uuid.Parse(identity.ID())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "identity has a malformed id")
	}

	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.sessions.ClearSessionTokens(cctx, userID); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear session tokens")
	}

	s.emitAuthEvent(ctx, ActivityEventSessionsRevoked, ActorRef{Type: "system"}, identity.ID(), map[string]any{
		"identifier": identifier,
	})

	return nil
}

// IdentityFromSession resolves the stored identity behind a session.
func (s *Auther) IdentityFromSession(ctx context.Context, session Session) (Identity, error) {
	identity, err := s.provider.FindIdentityByIdentifier(ctx, session.GetUserID())

	if err != nil {
		s.logger.Error("IdentityFromSession find identity by identifier: %s", err)
		return nil, err
	}

	return identity, nil
}

// SessionFromToken validates the raw token and returns its session view. It
// does not consult the session store; use Authenticate for the full chain.
func (s Auther) SessionFromToken(raw string) (Session, error) {
	claims, err := s.tokenService.Validate(raw)
	if err != nil {
		s.logger.Error("SessionFromToken validation failed", "error", err)
		return nil, err
	}

	session, err := sessionFromAuthClaims(claims)
	if err != nil {
		s.logger.Error("SessionFromToken failed to create session from claims", "error", err)
		return nil, err
	}

	return session, nil
}

func (s *Auther) registerToken(ctx context.Context, userID uuid.UUID, token string) error {
	cctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.sessions.AppendSessionToken(cctx, userID, token); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to register session token")
	}
	return nil
}

func (s *Auther) generateJWT(identity Identity) (string, error) {
	return s.tokenService.Generate(identity)
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromIdentity(identity Identity) ActorRef {
	if identity == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   identity.ID(),
		Type: "user",
	}
}

var _ Authenticator = (*Auther)(nil)
