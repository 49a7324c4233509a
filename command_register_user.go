package identity

import (
	"context"
	"regexp"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

type RegisterUserMessage struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	UseHashid bool
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// RegisterUserResult reports the outcome of a registration. Delivered
// reflects whether the verification email went out, registration still
// succeeds when it did not.
type RegisterUserResult struct {
	User      *User
	Delivered bool
}

type RegisterUserHandler struct {
	repo       RepositoryManager
	ledger     *Ledger
	sender     NotificationSender
	activity   ActivitySink
	logger     Logger
	OnResponse func(ctx context.Context, result RegisterUserResult) error
}

// RegisterUserOption configures a RegisterUserHandler
type RegisterUserOption func(*RegisterUserHandler)

func WithRegisterLogger(logger Logger) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithRegisterActivitySink(sink ActivitySink) RegisterUserOption {
	return func(h *RegisterUserHandler) {
		h.activity = normalizeActivitySink(sink)
	}
}

func NewRegisterUserHandler(repo RepositoryManager, ledger *Ledger, sender NotificationSender, opts ...RegisterUserOption) *RegisterUserHandler {
	h := &RegisterUserHandler{
		repo:     repo,
		ledger:   ledger,
		sender:   sender,
		activity: noopActivitySink{},
		logger:   &defLogger{},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	username := getUsername(event.Username, event.Email)
	if !usernamePattern.MatchString(username) {
		return goerrors.New("username can only contain letters, digits, and underscores", goerrors.CategoryValidation).
			WithTextCode("USERNAME_INVALID")
	}

	// The email local part fallback can land outside the accepted
	// length, so the bounds are checked here rather than only at the
	// HTTP payload.
	if len(username) < 3 || len(username) > 30 {
		return goerrors.New("username must be between 3 and 30 characters", goerrors.CategoryValidation).
			WithTextCode("USERNAME_INVALID")
	}

	user := &User{}
	var pin string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := h.repo.Users().GetByUsernameTx(ctx, tx, username); err == nil {
			return ErrUsernameTaken
		} else if !repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check username availability")
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		user.PasswordHash = hash
		user.Email = event.Email
		user.Phone = event.Phone
		user.FirstName = event.FirstName
		user.LastName = event.LastName
		user.Username = username
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		if _, err = GrantRole(ctx, h.repo, tx, user, RoleUser); err != nil {
			return err
		}

		if pin, _, err = h.ledger.Issue(ctx, tx, user, PinKindEmail); err != nil {
			return err
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		Actor:     ActorRef{Type: "user", ID: user.ID.String()},
		UserID:    user.ID.String(),
	})

	delivered := true
	if err := h.deliverPin(user, pin); err != nil {
		// The account exists either way, the caller decides how to
		// surface the degraded outcome.
		h.logger.Warn("verification email delivery failed for %s: %v", user.Email, err)
		delivered = false
	}

	if h.OnResponse != nil {
		return h.OnResponse(ctx, RegisterUserResult{User: user, Delivered: delivered})
	}

	return nil
}

func (h *RegisterUserHandler) deliverPin(user *User, pin string) error {
	if h.sender == nil {
		return ErrNotificationFailed
	}

	subject, html, text := VerificationPinEmail(user.FirstName, pin)
	if err := h.sender.Send(user.Email, subject, html, text); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send verification email").
			WithTextCode(TextCodeNotificationFailed)
	}

	return nil
}

func getUsername(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}
