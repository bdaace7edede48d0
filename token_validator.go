package auth

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation. ValidateAllowExpired covers the two
// whitelisted lifecycle operations that must accept a lapsed expiry claim.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
	ValidateAllowExpired(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a strict TokenValidator; the
// allow-expired path falls back to the same function.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrUnableToDecodeSession
	}
	return f(tokenString)
}

// ValidateAllowExpired satisfies the TokenValidator interface.
func (f TokenValidatorFunc) ValidateAllowExpired(tokenString string) (AuthClaims, error) {
	return f.Validate(tokenString)
}

// MultiTokenValidator tries validators in order until one succeeds.
// It treats ErrTokenMalformed as "try next" and returns the last malformed
// error if all validators fail.
type MultiTokenValidator struct {
	validators []TokenValidator
}

// NewMultiTokenValidator filters nil validators and returns a composite validator.
func NewMultiTokenValidator(validators ...TokenValidator) *MultiTokenValidator {
	filtered := make([]TokenValidator, 0, len(validators))
	for _, v := range validators {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiTokenValidator{validators: filtered}
}

// Validate satisfies the TokenValidator interface.
func (m *MultiTokenValidator) Validate(tokenString string) (AuthClaims, error) {
	return m.validate(tokenString, func(v TokenValidator) (AuthClaims, error) {
		return v.Validate(tokenString)
	})
}

// ValidateAllowExpired satisfies the TokenValidator interface.
func (m *MultiTokenValidator) ValidateAllowExpired(tokenString string) (AuthClaims, error) {
	return m.validate(tokenString, func(v TokenValidator) (AuthClaims, error) {
		return v.ValidateAllowExpired(tokenString)
	})
}

func (m *MultiTokenValidator) validate(tokenString string, run func(TokenValidator) (AuthClaims, error)) (AuthClaims, error) {
	var lastErr error
	for _, v := range m.validators {
		claims, err := run(v)
		if err == nil {
			return claims, nil
		}
		if IsMalformedError(err) {
			lastErr = err
			continue
		}
		return nil, err
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrTokenMalformed
}
