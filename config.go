package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

const (
	// DefaultTokenExpiration is the TTL applied to minted tokens, in hours.
	DefaultTokenExpiration = 24 * 7
	defaultSigningMethod   = "HS256"
	defaultContextKey      = "user"
	defaultTokenLookup     = "header:Authorization"
	defaultAuthScheme      = "Bearer"
)

// SimpleConfig is a concrete Config. Build one at startup, Validate it, and
// hand it to NewAuthenticator and NewHTTPAuthenticator; nothing in this
// package reads configuration from the environment on its own.
type SimpleConfig struct {
	SigningKey      string
	SigningMethod   string
	ContextKey      string
	TokenExpiration int
	TokenLookup     string
	AuthScheme      string
	Issuer          string
	Audience        []string
}

var _ Config = (*SimpleConfig)(nil)

// NewConfig builds a validated config around the signing secret. A missing
// secret is a startup failure, not something to discover on first login.
func NewConfig(signingKey string) (*SimpleConfig, error) {
	cfg := &SimpleConfig{
		SigningKey: signingKey,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces startup invariants.
func (c *SimpleConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.SigningKey, validation.Required),
		validation.Field(&c.TokenExpiration, validation.Min(0)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid auth configuration")
	}
	return nil
}

func (c *SimpleConfig) GetSigningKey() string {
	return c.SigningKey
}

func (c *SimpleConfig) GetSigningMethod() string {
	if c.SigningMethod == "" {
		return defaultSigningMethod
	}
	return c.SigningMethod
}

func (c *SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return defaultContextKey
	}
	return c.ContextKey
}

func (c *SimpleConfig) GetTokenExpiration() int {
	if c.TokenExpiration == 0 {
		return DefaultTokenExpiration
	}
	return c.TokenExpiration
}

func (c *SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return defaultTokenLookup
	}
	return c.TokenLookup
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return defaultAuthScheme
	}
	return c.AuthScheme
}

func (c *SimpleConfig) GetIssuer() string {
	return c.Issuer
}

func (c *SimpleConfig) GetAudience() []string {
	return c.Audience
}
