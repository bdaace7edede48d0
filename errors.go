package auth

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	textCodePasswordMismatch = "PASSWORD_MISMATCH"
	textCodePasswordLength   = "INVALID_PASSWORD_LENGTH"
	textCodeTokenMissing     = "TOKEN_MISSING"
	textCodeTokenMalformed   = "TOKEN_MALFORMED"
	textCodeTokenExpired     = "TOKEN_EXPIRED"
	textCodeTokenRevoked     = "TOKEN_REVOKED"
	textCodeForbidden        = "INSUFFICIENT_ROLE"
)

// ErrIdentityNotFound is returned when no account matches the login
// identifier. It carries the same public message as a password mismatch so
// responses cannot be used to enumerate accounts; the text codes stay
// distinct for logs and telemetry.
var ErrIdentityNotFound = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeAccountNotFound).
	WithCode(goerrors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is returned when the password does not match
// the stored hash.
var ErrMismatchedHashAndPassword = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodePasswordMismatch).
	WithCode(goerrors.CodeUnauthorized)

// ErrPasswordLength is returned before hashing when a plaintext password is
// outside the [4, 20] bounds. The check has to happen pre-hash since the
// transform fixes the output length.
var ErrPasswordLength = goerrors.New("password must be between 4 and 20 characters", goerrors.CategoryValidation).
	WithTextCode(textCodePasswordLength).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenMissing is returned when a protected route receives no bearer token.
var ErrTokenMissing = goerrors.New("missing or malformed JWT", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMissing).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned when the bearer token fails signature or
// structural checks.
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when the expiry claim has lapsed and the target
// operation is not one of the session lifecycle exemptions (extend, logout).
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenRevoked is returned when a well-signed token is not present in the
// user's live session list: it was logged out, rotated away, or forged.
var ErrTokenRevoked = goerrors.New("token is not registered to a live session", goerrors.CategoryAuth).
	WithTextCode(textCodeTokenRevoked).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned after authentication succeeds but the user's role
// does not satisfy the route requirement. It is the only failure in this
// package that maps to 403 instead of 401.
var ErrForbidden = goerrors.New("insufficient role", goerrors.CategoryAuthz).
	WithTextCode(textCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrUnableToFindSession is the error when our request carries no session
var ErrUnableToFindSession = goerrors.New("unable to find session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT claims into a session
var ErrUnableToDecodeSession = goerrors.New("unable to decode session", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = goerrors.New("unable to map claims", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnableToParseData parse error
var ErrUnableToParseData = goerrors.New("unable to parse data", goerrors.CategoryBadInput).
	WithCode(goerrors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed or missing tokens
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if goerrors.Is(err, ErrTokenMalformed) || goerrors.Is(err, ErrTokenMissing) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsRevokedTokenError will check for tokens rejected by the session store
// membership check.
func IsRevokedTokenError(err error) bool {
	if err == nil {
		return false
	}
	return goerrors.Is(err, ErrTokenRevoked)
}

// IsAuthzError reports whether err is an authorization (role) failure rather
// than an authentication failure. Handlers use it to pick 403 over 401.
func IsAuthzError(err error) bool {
	if err == nil {
		return false
	}

	if goerrors.Is(err, ErrForbidden) {
		return true
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryAuthz
	}

	return strings.Contains(err.Error(), "access denied")
}
