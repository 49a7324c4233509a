package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (e InitializePasswordResetMessage) Type() string { return "auth.password.reset.initialize" }

// InitializePasswordResetHandler issues a reset PIN and emails it to
// the account. To keep account existence unguessable the same
// ErrPasswordResetRejected comes back for an unknown address and for an
// unconfirmed one.
type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	ledger   *Ledger
	sender   NotificationSender
	activity ActivitySink
	logger   Logger
}

func NewInitializePasswordResetHandler(repo RepositoryManager, ledger *Ledger, sender NotificationSender) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{
		repo:     repo,
		ledger:   ledger,
		sender:   sender,
		activity: noopActivitySink{},
		logger:   &defLogger{},
	}
}

func (h *InitializePasswordResetHandler) WithLogger(logger Logger) *InitializePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *InitializePasswordResetHandler) WithActivitySink(sink ActivitySink) *InitializePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	var user *User
	var pin string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrPasswordResetRejected
			}
			return err
		}

		if !user.EmailVerified {
			return ErrPasswordResetRejected
		}

		pin, _, err = h.ledger.Issue(ctx, tx, user, PinKindPasswordReset)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetStarted,
		Actor:     ActorRef{Type: "user", ID: user.ID.String()},
		UserID:    user.ID.String(),
	})

	subject, html, text := PasswordResetEmail(user.FirstName, pin)
	if err := h.sender.Send(user.Email, subject, html, text); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send password reset email").
			WithTextCode(TextCodeNotificationFailed)
	}

	return nil
}
