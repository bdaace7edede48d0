package auth

import (
	"context"
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-shop-auth/middleware/jwtware"
)

// RouteAuthenticator wires the Authenticator into bearer-token route guards
// and exposes the session lifecycle as handler-friendly operations. Responses
// are JSON; there is no cookie or redirect handling here.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	tokens       TokenValidator
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	a := &RouteAuthenticator{
		cfg:    cfg,
		auth:   auther,
		Logger: defLogger{},
		tokens: tokenValidatorFor(auther, cfg),
	}

	a.ErrorHandler = a.defaultErrHandler

	return a, nil
}

// tokenValidatorFor reuses the authenticator's token service when it exposes
// one so both sides verify against the same key material; otherwise it builds
// a validator from config.
func tokenValidatorFor(auther Authenticator, cfg Config) TokenValidator {
	if provider, ok := auther.(interface{ TokenService() TokenService }); ok {
		if ts := provider.TokenService(); ts != nil {
			return ts
		}
	}
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		nil,
	)
}

type routeOptions struct {
	allowExpired bool
	minimumRole  string
}

// ProtectedRoute enforces the full request check chain: extract token, verify
// signature, reject expired, confirm the token is still registered to a live
// session, then attach the resolved (user, token) pair to the context.
func (a *RouteAuthenticator) ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return a.guard(cfg, errorHandler, routeOptions{})
}

// SessionRoute behaves like ProtectedRoute but tolerates an expired claim.
// Logout and extend still demand a signed, registered token; they only waive
// the expiry rejection so a client holding a stale token can tear down or
// renew its own session.
func (a *RouteAuthenticator) SessionRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return a.guard(cfg, errorHandler, routeOptions{allowExpired: true})
}

// AdminRoute layers the role gate on top of ProtectedRoute. A valid session
// with an insufficient role gets a 403, not a 401.
func (a *RouteAuthenticator) AdminRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	return a.guard(cfg, errorHandler, routeOptions{minimumRole: string(RoleAdmin)})
}

func (a *RouteAuthenticator) guard(cfg Config, errorHandler func(router.Context, error) error, opts routeOptions) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.MakeRouteAuthErrorHandler(false)
	}

	return jwtware.New(jwtware.Config{
		ErrorHandler: errorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(cfg.GetSigningKey()),
			JWTAlg: cfg.GetSigningMethod(),
		},
		AuthScheme:      cfg.GetAuthScheme(),
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		AllowExpired:    opts.allowExpired,
		MinimumRole:     opts.minimumRole,
		TokenValidator:  wareValidator{a.tokens},
		SessionResolver: a.resolveSession(opts.allowExpired),
		SessionEnricher: sessionEnricher,
		ContextEnricher: claimsEnricher,
	})
}

// resolveSession replays the full authentication chain against persisted
// state. The middleware has already checked the signature; Authenticate
// re-runs it and adds the store membership check, so a revoked token fails
// here no matter how fresh its claims look.
func (a *RouteAuthenticator) resolveSession(allowExpired bool) jwtware.SessionResolver {
	return func(ctx context.Context, token string, _ jwtware.AuthClaims) (any, error) {
		user, _, err := a.auth.Authenticate(ctx, token, allowExpired)
		if err != nil {
			return nil, err
		}
		return user, nil
	}
}

func sessionEnricher(c context.Context, user any, token string, _ jwtware.AuthClaims) context.Context {
	usr, ok := user.(*User)
	if !ok {
		return c
	}
	return WithSessionContext(c, usr, token)
}

// claimsEnricher adapts jwtware claims back to auth claims for the standard
// context helpers.
func claimsEnricher(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// wareValidator bridges the auth token validator into the middleware package
// without an import cycle.
type wareValidator struct {
	tv TokenValidator
}

func (w wareValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := w.tv.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func (w wareValidator) ValidateAllowExpired(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := w.tv.ValidateAllowExpired(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// Login verifies credentials and returns a freshly minted session token. The
// token has already been appended to the user's session list by the time this
// returns; a signed token that is not persisted is never handed out.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return "", err
	}
	return token, nil
}

// Logout removes the presented token from the session list. Other devices
// keep their sessions.
func (a *RouteAuthenticator) Logout(ctx router.Context) error {
	user, token, ok := SessionFromContext(ctx.Context())
	if !ok {
		return ErrUnableToFindSession
	}
	return a.auth.Logout(ctx.Context(), user, token)
}

// Extend swaps the presented token for a fresh one in a single store
// mutation, returning the replacement.
func (a *RouteAuthenticator) Extend(ctx router.Context) (string, error) {
	user, token, ok := SessionFromContext(ctx.Context())
	if !ok {
		return "", ErrUnableToFindSession
	}
	return a.auth.Extend(ctx.Context(), user, token)
}

// RevokeSessions clears every registered token for the identified account.
func (a *RouteAuthenticator) RevokeSessions(ctx router.Context, identifier string) error {
	return a.auth.RevokeSessions(ctx.Context(), identifier)
}

// MakeRouteAuthErrorHandler normalizes middleware failures into the error
// taxonomy before responding. With optional set, authentication failures let
// the request through unauthenticated.
func (a *RouteAuthenticator) MakeRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsRevokedTokenError(err) {
			richErr = ErrTokenRevoked
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else if IsAuthzError(err) {
			richErr = ErrForbidden
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := statusFromError(richErr)
	message := richErr.Message
	if status >= http.StatusInternalServerError {
		message = "An unexpected server error occurred"
	}

	return c.JSON(status, map[string]any{
		"success": false,
		"message": message,
	})
}

// statusFromError maps the error taxonomy to HTTP statuses. The explicit
// category switch keeps the 401 vs 403 distinction even when a wrapped error
// carries no code.
func statusFromError(richErr *errors.Error) int {
	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)
