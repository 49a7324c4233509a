package identity

import (
	"context"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// AccountControllerRoutes holds the route paths the controller mounts
type AccountControllerRoutes struct {
	Login              string
	Register           string
	ResendVerification string
	VerifyEmail        string
	ForgotPassword     string
	ResetPassword      string
}

// AccountController serves the account JSON API
type AccountController struct {
	Logger   Logger
	Repo     RepositoryManager
	Ledger   *Ledger
	Sender   NotificationSender
	Auther   *Auther
	Activity ActivitySink
	Routes   *AccountControllerRoutes
	Hashid   bool
}

type AccountControllerOption func(*AccountController) *AccountController

func WithControllerLogger(logger Logger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepo(repo RepositoryManager) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Repo = repo
		return c
	}
}

func WithControllerLedger(ledger *Ledger) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Ledger = ledger
		return c
	}
}

func WithControllerSender(sender NotificationSender) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Sender = sender
		return c
	}
}

func WithControllerAuther(auther *Auther) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Auther = auther
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

// WithControllerHashid derives user IDs from the email address
func WithControllerHashid(enabled bool) AccountControllerOption {
	return func(c *AccountController) *AccountController {
		c.Hashid = enabled
		return c
	}
}

func NewAccountController(opts ...AccountControllerOption) *AccountController {
	c := &AccountController{
		Logger:   &defLogger{},
		Activity: noopActivitySink{},
		Routes: &AccountControllerRoutes{
			Login:              "/login",
			Register:           "/register",
			ResendVerification: "/resend-verification-pin",
			VerifyEmail:        "/verify-email",
			ForgotPassword:     "/forgot-password",
			ResetPassword:      "/reset-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in account controller...")
	}

	if c.Ledger == nil {
		panic("Missing Ledger in account controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in account controller...")
	}

	return c
}

// RegisterAccountRoutes mounts the account endpoints on the given
// router group
func RegisterAccountRoutes[T any](app router.Router[T], opts ...AccountControllerOption) {
	controller := NewAccountController(opts...)

	app.Post(controller.Routes.Login, controller.Login).
		SetName("account.login")
	app.Post(controller.Routes.Register, controller.Register).
		SetName("account.register")
	app.Post(controller.Routes.ResendVerification, controller.ResendVerificationPin).
		SetName("account.resend-verification-pin")
	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmail).
		SetName("account.verify-email")
	app.Post(controller.Routes.ForgotPassword, controller.ForgotPassword).
		SetName("account.forgot-password")
	app.Post(controller.Routes.ResetPassword, controller.ResetPassword).
		SetName("account.reset-password")
}

// ValidPhoneNumber is an ozzo rule that accepts parseable, valid phone
// numbers. Empty values pass, pair it with validation.Required when
// the field is mandatory.
func ValidPhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	num, err := phonenumbers.Parse(s, "US")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}

	return nil
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AccountController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	token, expiresAt, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"token":      token,
		"expiration": expiresAt,
	})
}

// RegisterRequest payload
type RegisterRequest struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Username, validation.Required, validation.Length(3, 30), validation.Match(usernamePattern)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.In(r.Password).Error("must match password"),
		),
	)
}

func (a *AccountController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload: %v", err)
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload: %v", err)
		return a.validationFailed(ctx, err)
	}

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Username:  payload.Username,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		UseHashid: a.Hashid,
	}

	var result RegisterUserResult
	registerUser := NewRegisterUserHandler(a.Repo, a.Ledger, a.Sender,
		WithRegisterLogger(a.Logger),
		WithRegisterActivitySink(a.Activity),
	)
	registerUser.OnResponse = func(_ context.Context, res RegisterUserResult) error {
		result = res
		return nil
	}

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register user error: %v", err)
		return a.respondError(ctx, err)
	}

	message := "User registered successfully. Check your email for the verification PIN."
	if !result.Delivered {
		message = "User registered successfully, but the verification email could not be sent. Please request a new PIN."
	}

	return ctx.JSON(router.StatusCreated, router.ViewContext{
		"message": message,
		"user":    result.User,
	})
}

// EmailRequest payload shared by resend and forgot password
type EmailRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r EmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AccountController) ResendVerificationPin(ctx router.Context) error {
	payload := new(EmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	handler := NewRequestEmailVerificationHandler(a.Repo, a.Ledger, a.Sender).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	if err := handler.Execute(ctx.Context(), RequestEmailVerificationMessage{Email: payload.Email}); err != nil {
		if errors.Is(err, ErrIdentityNotFound) || HasTextCode(err, TextCodeIdentityNotFound) {
			return a.badRequest(ctx, "User not found.")
		}
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "A new verification PIN has been sent to your email.",
	})
}

// VerifyEmailRequest payload
type VerifyEmailRequest struct {
	Email string `form:"email" json:"email"`
	Pin   string `form:"pin" json:"pin"`
}

// Validate will run validation rules
func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Pin, validation.Required, validation.Length(6, 6), is.Digit),
	)
}

func (a *AccountController) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	handler := NewVerifyEmailHandler(a.Repo, a.Ledger).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	if err := handler.Execute(ctx.Context(), VerifyEmailMessage{Email: payload.Email, Pin: payload.Pin}); err != nil {
		if errors.Is(err, ErrIdentityNotFound) || HasTextCode(err, TextCodeIdentityNotFound) {
			return a.badRequest(ctx, "User not found.")
		}
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "Email confirmed.",
	})
}

func (a *AccountController) ForgotPassword(ctx router.Context) error {
	payload := new(EmailRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	handler := NewInitializePasswordResetHandler(a.Repo, a.Ledger, a.Sender).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	if err := handler.Execute(ctx.Context(), InitializePasswordResetMessage{Email: payload.Email}); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "A password reset PIN has been sent to your email.",
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Email           string `form:"email" json:"email"`
	Pin             string `form:"pin" json:"pin"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Pin, validation.Required, validation.Length(6, 6), is.Digit),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.In(r.NewPassword).Error("must match new password"),
		),
	)
}

func (a *AccountController) ResetPassword(ctx router.Context) error {
	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.badRequest(ctx, "Error parsing body")
	}

	if err := payload.Validate(); err != nil {
		return a.validationFailed(ctx, err)
	}

	handler := NewFinalizePasswordResetHandler(a.Repo, a.Ledger).
		WithLogger(a.Logger).
		WithActivitySink(a.Activity)

	msg := FinalizePasswordResetMessage{
		Email:       payload.Email,
		Pin:         payload.Pin,
		NewPassword: payload.NewPassword,
	}

	if err := handler.Execute(ctx.Context(), msg); err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "Password has been reset.",
	})
}

func (a *AccountController) badRequest(ctx router.Context, message string) error {
	return ctx.JSON(router.StatusBadRequest, router.ViewContext{
		"error": message,
	})
}

func (a *AccountController) validationFailed(ctx router.Context, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{
			"error":  "Validation failed",
			"fields": verrs,
		})
	}
	return a.badRequest(ctx, err.Error())
}

// respondError maps domain errors to HTTP responses. Unknown email on
// login is reported distinctly from a bad password, the password reset
// flow keeps both behind the same generic rejection. The PIN endpoints
// intercept ErrIdentityNotFound before reaching here so an unknown
// email there stays a bad request rather than a 404.
func (a *AccountController) respondError(ctx router.Context, err error) error {
	switch {
	case errors.Is(err, ErrIdentityNotFound) || HasTextCode(err, TextCodeIdentityNotFound):
		return ctx.JSON(router.StatusNotFound, router.ViewContext{
			"error": "User not found.",
		})
	case errors.Is(err, ErrInvalidCredentials) || HasTextCode(err, TextCodeInvalidCredentials):
		return ctx.JSON(router.StatusUnauthorized, router.ViewContext{
			"error": "Invalid credentials.",
		})
	case errors.Is(err, ErrAlreadyVerified) || HasTextCode(err, TextCodeAlreadyVerified):
		return a.badRequest(ctx, "Email is already confirmed.")
	case errors.Is(err, ErrUsernameTaken) || HasTextCode(err, TextCodeUsernameTaken):
		return a.badRequest(ctx, "Username is already taken.")
	case errors.Is(err, ErrPinExpired) || HasTextCode(err, TextCodePinExpired):
		return a.badRequest(ctx, "PIN has expired. Please request a new one.")
	case errors.Is(err, ErrPinMismatch) || HasTextCode(err, TextCodePinMismatch):
		return a.badRequest(ctx, "Invalid PIN.")
	case errors.Is(err, ErrPasswordResetRejected) || HasTextCode(err, TextCodeResetRejected):
		return a.badRequest(ctx, "Please try another email address.")
	case HasTextCode(err, TextCodeNotificationFailed):
		return a.badRequest(ctx, "We could not send the email. Please try again later.")
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryValidation {
		return a.badRequest(ctx, richErr.Message)
	}

	a.Logger.Error("unhandled account error: %v", err)
	return ctx.JSON(router.StatusInternalServerError, router.ViewContext{
		"error": "Internal server error.",
	})
}
