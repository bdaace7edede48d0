package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// AccountRegistrerer is the interface we need to handle new user registrations
type AccountRegistrerer interface {
	RegisterUser(ctx context.Context, account, email, password string) (*User, error)
}

// UserFinder is a store we can use to retrieve users by account
type UserFinder interface {
	GetByAccount(ctx context.Context, account string) (*User, error)
}

// UserProvider verifies credentials against stored user records, independent
// of transport.
type UserProvider struct {
	store     UserFinder
	Validator func(*User) error
	logger    Logger
}

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	return &UserProvider{
		store:     store,
		logger:    defLogger{},
		Validator: defaultValidator,
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	if l != nil {
		u.logger = l
	}
	return u
}

func (u *UserProvider) validate(user *User) error {
	if u.Validator != nil {
		return u.Validator(user)
	}
	return defaultValidator(user)
}

// VerifyIdentity will find the user by account, compare the password against
// the stored hash, and return the identity. Account-not-found and
// password-mismatch are distinct error kinds for logging but share one public
// message; callers must not surface which one happened.
func (u UserProvider) VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error) {
	user, err := u.store.GetByAccount(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			u.logger.Debug("VerifyIdentity no account matched", "identifier", identifier)
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		return nil, ErrIdentityNotFound
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		u.logger.Debug("VerifyIdentity password mismatch", "identifier", identifier)
		return nil, ErrMismatchedHashAndPassword
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	aid := authIdentity{
		id:      user.ID.String(),
		account: user.Account,
		email:   user.Email,
		role:    string(user.Role),
	}

	return aid, nil
}

// FindIdentityByIdentifier resolves an identity without checking credentials.
func (u UserProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error) {
	user, err := u.store.GetByAccount(ctx, identifier)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if err := u.validate(user); err != nil {
		return nil, err
	}

	aid := authIdentity{
		id:      user.ID.String(),
		account: user.Account,
		email:   user.Email,
		role:    string(user.Role),
	}

	return aid, nil
}

type authIdentity struct {
	id      string
	account string
	email   string
	role    string
}

func (a authIdentity) ID() string {
	return a.id
}

func (a authIdentity) Account() string {
	return a.account
}

func (a authIdentity) Email() string {
	return a.email
}

func (a authIdentity) Role() string {
	return a.role
}

var _ Identity = authIdentity{}

func defaultValidator(u *User) error {
	u.EnsureRole()
	switch u.Role {
	case RoleUser, RoleAdmin:
		return nil
	default:
		return errors.New("user has an unknown or invalid role", errors.CategoryAuth).
			WithTextCode("INVALID_ROLE").
			WithMetadata(map[string]any{"role": u.Role, "user_id": u.ID.String()})
	}
}
