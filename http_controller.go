package auth

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// GetRouterSession builds a SessionObject from the claims the JWT middleware
// left in the router locals.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	claims, ok := GetRouterClaims(c, key)
	if !ok {
		return nil, ErrUnableToFindSession
	}
	return sessionFromAuthClaims(claims)
}

// RegisterAuthRoutes mounts the session lifecycle endpoints. Login and
// registration are public; extend and logout run behind the session guard
// which tolerates expired tokens; profile requires a fully valid session and
// the revocation endpoint requires the admin role on top of that.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	protected := controller.Auther.ProtectedRoute(controller.Config, nil)
	session := controller.Auther.SessionRoute(controller.Config, nil)
	admin := controller.Auther.AdminRoute(controller.Config, nil)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("users.register")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("users.login")

	app.Patch(controller.Routes.Extend, controller.Extend, session).
		SetName("users.extend")

	app.Delete(controller.Routes.Logout, controller.Logout, session).
		SetName("users.logout")

	app.Get(controller.Routes.Profile, controller.Profile, protected).
		SetName("users.profile")

	app.Delete(fmt.Sprintf("%s/:identifier", controller.Routes.Sessions), controller.RevokeSessions, admin).
		SetName("users.sessions.revoke")
}

type AuthControllerRoutes struct {
	Register string
	Login    string
	Extend   string
	Logout   string
	Profile  string
	Sessions string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	Config       Config
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerConfig(cfg Config) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Config = cfg
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = routes
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register: "/users",
			Login:    "/users/login",
			Extend:   "/users/extend",
			Logout:   "/users/logout",
			Profile:  "/users/profile",
			Sessions: "/users/sessions",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.respondError
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload: %s", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Error parsing body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"success":    false,
			"message":    "Error validating payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		// The same response covers unknown accounts and bad passwords so the
		// endpoint cannot be used to probe which accounts exist.
		return ctx.JSON(fiber.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "invalid credentials",
		})
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"result": map[string]any{
			"token": token,
		},
	})
}

// RegistrationCreatePayload is the registration body
type RegistrationCreatePayload struct {
	Account         string `form:"account" json:"account"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload. The password bounds match the hashing
// pipeline so the request fails before any bcrypt work happens.
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Account, validation.Required, validation.Length(4, 20), is.Alphanumeric),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(PasswordMinLength, PasswordMaxLength)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %s", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Error parsing body",
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: %s", err)
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"success":    false,
			"message":    "Error validating payload",
			"validation": FormatValidationErrorToMap(err),
		})
	}

	req := RegisterUserMessage{
		Account:  payload.Account,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     string(RoleUser),
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	user, err := registerUser.Execute(ctx.Context(), req)
	if err != nil {
		a.Logger.Error("register user error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"success": true,
		"result":  userResponse(user),
	})
}

// Extend exchanges the presented token for a fresh one. The old token is
// gone from the session list once this responds; clients must switch to the
// returned token.
func (a *AuthController) Extend(ctx router.Context) error {
	token, err := a.Auther.Extend(ctx)
	if err != nil {
		a.Logger.Error("extend session error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"result": map[string]any{
			"token": token,
		},
	})
}

func (a *AuthController) Logout(ctx router.Context) error {
	if err := a.Auther.Logout(ctx); err != nil {
		a.Logger.Error("logout error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *AuthController) Profile(ctx router.Context) error {
	user, _, ok := SessionFromContext(ctx.Context())
	if !ok {
		return a.ErrorHandler(ctx, ErrUnableToFindSession)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"result":  userResponse(user),
	})
}

func (a *AuthController) RevokeSessions(ctx router.Context) error {
	identifier := ctx.Param("identifier")
	if identifier == "" {
		return ctx.JSON(fiber.StatusBadRequest, map[string]any{
			"success": false,
			"message": "identifier is required",
		})
	}

	if err := a.Auther.RevokeSessions(ctx, identifier); err != nil {
		a.Logger.Error("revoke sessions error: %s", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

// userResponse strips credentials and session state from the record before
// it goes over the wire.
func userResponse(user *User) map[string]any {
	return map[string]any{
		"id":         user.ID,
		"account":    user.Account,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
}

func (a *AuthController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return ctx.JSON(fiber.StatusInternalServerError, map[string]any{
			"success": false,
			"message": "An unexpected server error occurred",
		})
	}

	status := statusFromError(richErr)
	message := richErr.Message
	if status >= fiber.StatusInternalServerError {
		message = "An unexpected server error occurred"
	}

	return ctx.JSON(status, map[string]any{
		"success": false,
		"message": message,
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field-to-message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	if err != nil {
		out["payload"] = err.Error()
	}

	return out
}
