package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type FinalizePasswordResetMessage struct {
	Email       string `json:"email"`
	Pin         string `json:"pin"`
	NewPassword string `json:"new_password"`
}

func (e FinalizePasswordResetMessage) Type() string { return "auth.password.reset.finalize" }

// FinalizePasswordResetHandler redeems a reset PIN and replaces the
// account password. An unknown address reports the same generic
// rejection as initialization, the PIN itself distinguishes expired
// from wrong.
type FinalizePasswordResetHandler struct {
	repo     RepositoryManager
	ledger   *Ledger
	hasher   PasswordAuthenticator
	activity ActivitySink
	logger   Logger
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, ledger *Ledger) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		repo:     repo,
		ledger:   ledger,
		hasher:   NewPasswordAuthenticator(),
		activity: noopActivitySink{},
		logger:   &defLogger{},
	}
}

func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) WithActivitySink(sink ActivitySink) *FinalizePasswordResetHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *FinalizePasswordResetHandler) WithHasher(hasher PasswordAuthenticator) *FinalizePasswordResetHandler {
	if hasher != nil {
		h.hasher = hasher
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	var user *User

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

		if err = h.ledger.Verify(ctx, tx, user, PinKindPasswordReset, event.Pin); err != nil {
			return err
		}

		hash, err := h.hasher.HashPassword(event.NewPassword)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		return h.repo.Users().ResetPasswordTx(ctx, tx, user.ID, hash)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password reset transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Actor:     ActorRef{Type: "user", ID: user.ID.String()},
		UserID:    user.ID.String(),
	})

	return nil
}
