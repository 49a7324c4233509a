package identity

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileController serves the authenticated user's own record
type ProfileController struct {
	Logger   Logger
	Repo     RepositoryManager
	Ledger   *Ledger
	Sender   NotificationSender
	Activity ActivitySink
}

type ProfileControllerOption func(*ProfileController) *ProfileController

func WithProfileLogger(logger Logger) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithProfileRepo(repo RepositoryManager) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Repo = repo
		return c
	}
}

func WithProfileLedger(ledger *Ledger) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Ledger = ledger
		return c
	}
}

func WithProfileSender(sender NotificationSender) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Sender = sender
		return c
	}
}

func NewProfileController(opts ...ProfileControllerOption) *ProfileController {
	c := &ProfileController{
		Logger:   &defLogger{},
		Activity: noopActivitySink{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in profile controller...")
	}

	return c
}

// RegisterProfileRoutes mounts the profile endpoints, callers are
// expected to guard the group with the JWT middleware
func RegisterProfileRoutes[T any](app router.Router[T], opts ...ProfileControllerOption) {
	controller := NewProfileController(opts...)

	app.Get("/me", controller.Show).SetName("profile.show")
	app.Put("/me", controller.Update).SetName("profile.update")
	app.Put("/me/photo", controller.UpdatePhoto).SetName("profile.photo")
}

func (a *ProfileController) currentUser(ctx router.Context) (*User, error) {
	claims, ok := GetRouterClaims(ctx, "")
	if !ok {
		return nil, ErrInvalidCredentials
	}

	user, err := a.Repo.Users().GetByID(ctx.Context(), claims.UserID(), WithRoles())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	return user, nil
}

func (a *ProfileController) Show(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return respondProfileError(ctx, a.Logger, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

// UpdateProfileRequest payload
type UpdateProfileRequest struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Email     string `form:"email" json:"email"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidPhoneNumber)),
	)
}

// Update modifies the caller's profile. Changing the email address
// drops the verified flag and issues a fresh verification PIN for the
// new address.
func (a *ProfileController) Update(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return respondProfileError(ctx, a.Logger, err)
	}

	payload := new(UpdateProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": "Error parsing body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": err.Error()})
	}

	if payload.FirstName != "" {
		user.FirstName = payload.FirstName
	}
	if payload.LastName != "" {
		user.LastName = payload.LastName
	}
	if payload.Phone != "" {
		user.Phone = payload.Phone
	}

	emailChanged := false
	if payload.Email != "" {
		next := strings.TrimSpace(strings.ToLower(payload.Email))
		if next != user.Email {
			user.Email = next
			user.EmailVerified = false
			emailChanged = true
		}
	}

	var pin string
	err = a.Repo.RunInTx(ctx.Context(), nil, func(c context.Context, tx bun.Tx) error {
		if _, err := a.Repo.Users().UpdateTx(c, tx, user, repository.UpdateByID(user.ID.String())); err != nil {
			return err
		}

		if emailChanged && a.Ledger != nil {
			var err error
			pin, _, err = a.Ledger.Issue(c, tx, user, PinKindEmail)
			return err
		}

		return nil
	})
	if err != nil {
		return respondProfileError(ctx, a.Logger, err)
	}

	if emailChanged && a.Sender != nil {
		subject, html, text := VerificationPinEmail(user.FirstName, pin)
		if err := a.Sender.Send(user.Email, subject, html, text); err != nil {
			a.Logger.Warn("verification email delivery failed for %s: %v", user.Email, err)
		}
	}

	return ctx.JSON(router.StatusOK, user)
}

// UpdatePhotoRequest payload
type UpdatePhotoRequest struct {
	Photo string `form:"photo" json:"photo"`
}

// Validate will run validation rules. The photo is either a regular URL
// or an inline data URL carrying a jpeg or png.
func (r UpdatePhotoRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Photo, validation.Required, validation.By(ValidPhotoReference)),
	)
}

// ValidPhotoReference accepts http(s) URLs and jpeg/png data URLs
func ValidPhotoReference(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "data:image/jpeg;base64,") || strings.HasPrefix(s, "data:image/png;base64,") {
		return nil
	}

	return is.URL.Validate(s)
}

func (a *ProfileController) UpdatePhoto(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return respondProfileError(ctx, a.Logger, err)
	}

	payload := new(UpdatePhotoRequest)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": "Error parsing body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": err.Error()})
	}

	user.Photo = payload.Photo
	if _, err := a.Repo.Users().Update(ctx.Context(), user, repository.UpdateByID(user.ID.String())); err != nil {
		return respondProfileError(ctx, a.Logger, err)
	}

	return ctx.JSON(router.StatusOK, user)
}

func respondProfileError(ctx router.Context, logger Logger, err error) error {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return ctx.JSON(router.StatusUnauthorized, router.ViewContext{"error": "Invalid credentials."})
	case errors.Is(err, ErrIdentityNotFound) || repository.IsRecordNotFound(err):
		return ctx.JSON(router.StatusNotFound, router.ViewContext{"error": "User not found."})
	}

	logger.Error("profile error: %v", err)
	return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
}

// AdminController serves role and user administration. Callers guard
// the group with the JWT middleware plus an Admin role requirement.
type AdminController struct {
	Logger   Logger
	Repo     RepositoryManager
	Activity ActivitySink
}

type AdminControllerOption func(*AdminController) *AdminController

func WithAdminLogger(logger Logger) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithAdminRepo(repo RepositoryManager) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.Repo = repo
		return c
	}
}

func WithAdminActivitySink(sink ActivitySink) AdminControllerOption {
	return func(c *AdminController) *AdminController {
		c.Activity = normalizeActivitySink(sink)
		return c
	}
}

func NewAdminController(opts ...AdminControllerOption) *AdminController {
	c := &AdminController{
		Logger:   &defLogger{},
		Activity: noopActivitySink{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in admin controller...")
	}

	return c
}

// RegisterAdminRoutes mounts user and role administration endpoints
func RegisterAdminRoutes[T any](app router.Router[T], opts ...AdminControllerOption) {
	controller := NewAdminController(opts...)

	app.Get("/users", controller.ListUsers).SetName("admin.users.list")
	app.Get("/users/:id", controller.ShowUser).SetName("admin.users.show")
	app.Get("/roles", controller.ListRoles).SetName("admin.roles.list")
	app.Post("/roles", controller.CreateRole).SetName("admin.roles.create")
	app.Delete("/roles/:id", controller.DeleteRole).SetName("admin.roles.delete")
	app.Post("/users/:id/roles", controller.GrantRole).SetName("admin.users.roles.grant")
	app.Delete("/users/:id/roles/:roleId", controller.RevokeRole).SetName("admin.users.roles.revoke")
}

func (a *AdminController) ListUsers(ctx router.Context) error {
	records, err := a.Repo.Users().ListAll(ctx.Context(), WithRoles())
	if err != nil {
		a.Logger.Error("list users error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"users": records,
	})
}

func (a *AdminController) ShowUser(ctx router.Context) error {
	id := ctx.Param("id")

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), id, WithRoles())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ctx.JSON(router.StatusNotFound, router.ViewContext{"error": "User not found."})
		}
		a.Logger.Error("show user error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	return ctx.JSON(router.StatusOK, user)
}

func (a *AdminController) ListRoles(ctx router.Context) error {
	records, err := a.Repo.Roles().ListAll(ctx.Context())
	if err != nil {
		a.Logger.Error("list roles error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"roles": records,
	})
}

// RoleRequest payload
type RoleRequest struct {
	Name string `form:"name" json:"name"`
}

// Validate will run validation rules
func (r RoleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(2, 50)),
	)
}

func (a *AdminController) CreateRole(ctx router.Context) error {
	payload := new(RoleRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": "Error parsing body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": err.Error()})
	}

	role, err := a.Repo.Roles().GetOrCreateByName(ctx.Context(), payload.Name)
	if err != nil {
		a.Logger.Error("create role error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	return ctx.JSON(router.StatusCreated, role)
}

// DeleteRole removes a role and all of its assignments
func (a *AdminController) DeleteRole(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": "Invalid role id."})
	}

	err = a.Repo.RunInTx(ctx.Context(), nil, func(c context.Context, tx bun.Tx) error {
		return a.Repo.Roles().DeleteRoleTx(c, tx, id)
	})
	if err != nil {
		a.Logger.Error("delete role error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "Role removed.",
	})
}

func (a *AdminController) GrantRole(ctx router.Context) error {
	payload := new(RoleRequest)

	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": "Error parsing body"})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": err.Error()})
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ctx.Param("id"))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ctx.JSON(router.StatusNotFound, router.ViewContext{"error": "User not found."})
		}
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	var role *Role
	err = a.Repo.RunInTx(ctx.Context(), nil, func(c context.Context, tx bun.Tx) error {
		var err error
		role, err = GrantRole(c, a.Repo, tx, user, payload.Name)
		return err
	})
	if err != nil {
		a.Logger.Error("grant role error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	recordActivity(ctx.Context(), a.Activity, a.Logger, ActivityEvent{
		EventType: ActivityEventRoleGranted,
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"role": role.Name},
	})

	return ctx.JSON(router.StatusOK, role)
}

func (a *AdminController) RevokeRole(ctx router.Context) error {
	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), ctx.Param("id"))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ctx.JSON(router.StatusNotFound, router.ViewContext{"error": "User not found."})
		}
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	roleID, err := uuid.Parse(ctx.Param("roleId"))
	if err != nil {
		return ctx.JSON(router.StatusBadRequest, router.ViewContext{"error": "Invalid role id."})
	}

	err = a.Repo.RunInTx(ctx.Context(), nil, func(c context.Context, tx bun.Tx) error {
		return a.Repo.Users().RemoveRoleTx(c, tx, user.ID, roleID)
	})
	if err != nil {
		a.Logger.Error("revoke role error: %v", err)
		return ctx.JSON(router.StatusInternalServerError, router.ViewContext{"error": "Internal server error."})
	}

	recordActivity(ctx.Context(), a.Activity, a.Logger, ActivityEvent{
		EventType: ActivityEventRoleRevoked,
		UserID:    user.ID.String(),
		Metadata:  map[string]any{"role_id": roleID.String()},
	})

	return ctx.JSON(router.StatusOK, router.ViewContext{
		"message": "Role removed.",
	})
}
