package identity

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// PinKind selects which verification slot on the user row an operation
// works against
type PinKind int

const (
	// PinKindEmail confirms ownership of the registered email address
	PinKindEmail PinKind = iota
	// PinKindPasswordReset authorizes a password reset
	PinKindPasswordReset
)

func (k PinKind) String() string {
	switch k {
	case PinKindEmail:
		return "email_verification"
	case PinKindPasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

func (k PinKind) outstanding(user *User) (*string, *time.Time) {
	switch k {
	case PinKindPasswordReset:
		return user.PasswordResetCode, user.PasswordResetCodeExpiresAt
	default:
		return user.EmailVerificationPin, user.EmailVerificationPinExpiresAt
	}
}

func (k PinKind) stamp(user *User, pin string, expiresAt time.Time) {
	switch k {
	case PinKindPasswordReset:
		user.PasswordResetCode = &pin
		user.PasswordResetCodeExpiresAt = &expiresAt
	default:
		user.EmailVerificationPin = &pin
		user.EmailVerificationPinExpiresAt = &expiresAt
	}
}

func (k PinKind) clear(user *User) {
	switch k {
	case PinKindPasswordReset:
		user.PasswordResetCode = nil
		user.PasswordResetCodeExpiresAt = nil
	default:
		user.EmailVerificationPin = nil
		user.EmailVerificationPinExpiresAt = nil
	}
}

// Ledger issues and redeems time boxed verification PINs. Each user
// holds at most one outstanding PIN per kind, issuing a new one
// replaces whatever was pending.
type Ledger struct {
	users    Users
	generate PinGenerator
	now      func() time.Time
	ttl      time.Duration
	logger   Logger
}

// LedgerOption configures a Ledger
type LedgerOption func(*Ledger)

// WithPinGenerator overrides the PIN source, used in tests
func WithPinGenerator(gen PinGenerator) LedgerOption {
	return func(l *Ledger) {
		if gen != nil {
			l.generate = gen
		}
	}
}

// WithLedgerClock overrides the time source, used in tests
func WithLedgerClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLedgerTTL overrides the PIN lifetime
func WithLedgerTTL(ttl time.Duration) LedgerOption {
	return func(l *Ledger) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// WithLedgerLogger sets the logger
func WithLedgerLogger(logger Logger) LedgerOption {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLedger creates a Ledger backed by the given users store
func NewLedger(users Users, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		users:    users,
		generate: GeneratePin,
		now:      time.Now,
		ttl:      PinTTL,
		logger:   &defLogger{},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Issue mints a PIN for the given kind, stamps it on the user row, and
// persists the change inside tx. Any previously outstanding PIN of the
// same kind is replaced.
func (l *Ledger) Issue(ctx context.Context, tx bun.IDB, user *User, kind PinKind) (string, time.Time, error) {
	pin := l.generate()
	expiresAt := l.now().Add(l.ttl)

	kind.stamp(user, pin, expiresAt)

	if err := l.users.StorePinStateTx(ctx, tx, user); err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to persist verification PIN").
			WithMetadata(map[string]any{
				"user_id": user.ID.String(),
				"kind":    kind.String(),
			})
	}

	l.logger.Debug("issued %s PIN for user %s, expires %s", kind, user.ID, expiresAt.Format(time.RFC3339))

	return pin, expiresAt, nil
}

// Verify redeems a submitted PIN against the user's outstanding slot
// for the given kind. An empty slot counts as expired, covering both a
// PIN that was never issued and one already consumed, so the caller is
// steered toward requesting a fresh one. An expired PIN is cleared and
// reported as ErrPinExpired. A wrong PIN leaves the slot untouched and
// reports ErrPinMismatch. On success the slot is cleared, and for
// PinKindEmail the account is marked verified.
func (l *Ledger) Verify(ctx context.Context, tx bun.IDB, user *User, kind PinKind, submitted string) error {
	pin, expiresAt := kind.outstanding(user)

	if pin == nil || expiresAt == nil {
		return ErrPinExpired
	}

	if l.now().After(*expiresAt) {
		kind.clear(user)
		if err := l.users.StorePinStateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to clear expired PIN")
		}
		return ErrPinExpired
	}

	if submitted == "" || submitted != *pin {
		return ErrPinMismatch
	}

	kind.clear(user)
	if kind == PinKindEmail {
		user.EmailVerified = true
	}

	if err := l.users.StorePinStateTx(ctx, tx, user); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to consume verification PIN")
	}

	l.logger.Debug("consumed %s PIN for user %s", kind, user.ID)

	return nil
}
