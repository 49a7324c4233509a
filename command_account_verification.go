package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

type RequestEmailVerificationMessage struct {
	Email string `json:"email"`
}

func (e RequestEmailVerificationMessage) Type() string { return "user.email.verification.request" }

// RequestEmailVerificationHandler reissues the email verification PIN
// for an account that has not confirmed its address yet. The new PIN
// replaces whatever was outstanding.
type RequestEmailVerificationHandler struct {
	repo     RepositoryManager
	ledger   *Ledger
	sender   NotificationSender
	activity ActivitySink
	logger   Logger
}

func NewRequestEmailVerificationHandler(repo RepositoryManager, ledger *Ledger, sender NotificationSender) *RequestEmailVerificationHandler {
	return &RequestEmailVerificationHandler{
		repo:     repo,
		ledger:   ledger,
		sender:   sender,
		activity: noopActivitySink{},
		logger:   &defLogger{},
	}
}

func (h *RequestEmailVerificationHandler) WithLogger(logger Logger) *RequestEmailVerificationHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestEmailVerificationHandler) WithActivitySink(sink ActivitySink) *RequestEmailVerificationHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *RequestEmailVerificationHandler) Execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestEmailVerificationHandler) execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	var user *User
	var pin string

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return err
		}

		if user.EmailVerified {
			return ErrAlreadyVerified
		}

		pin, _, err = h.ledger.Issue(ctx, tx, user, PinKindEmail)
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "verification request transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventVerificationReissued,
		Actor:     ActorRef{Type: "user", ID: user.ID.String()},
		UserID:    user.ID.String(),
	})

	subject, html, text := VerificationPinEmail(user.FirstName, pin)
	if err := h.sender.Send(user.Email, subject, html, text); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send verification email").
			WithTextCode(TextCodeNotificationFailed)
	}

	return nil
}

type VerifyEmailMessage struct {
	Email string `json:"email"`
	Pin   string `json:"pin"`
}

func (e VerifyEmailMessage) Type() string { return "user.email.verify" }

// VerifyEmailHandler redeems a verification PIN and marks the account
// confirmed
type VerifyEmailHandler struct {
	repo     RepositoryManager
	ledger   *Ledger
	activity ActivitySink
	logger   Logger
}

func NewVerifyEmailHandler(repo RepositoryManager, ledger *Ledger) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:     repo,
		ledger:   ledger,
		activity: noopActivitySink{},
		logger:   &defLogger{},
	}
}

func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	var user *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		user, err = h.repo.Users().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return ErrIdentityNotFound
			}
			return err
		}

		if user.EmailVerified {
			return ErrAlreadyVerified
		}

		return h.ledger.Verify(ctx, tx, user, PinKindEmail, event.Pin)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email verification transaction failed")
	}

	recordActivity(ctx, h.activity, h.logger, ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor:     ActorRef{Type: "user", ID: user.ID.String()},
		UserID:    user.ID.String(),
	})

	return nil
}
