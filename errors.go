package identity

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes attached to rich errors so HTTP boundaries and callers can
// branch without string matching on messages.
const (
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodePinExpired         = "PIN_EXPIRED"
	TextCodePinMismatch        = "PIN_MISMATCH"
	TextCodeAlreadyVerified    = "EMAIL_ALREADY_CONFIRMED"
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeNotificationFailed = "NOTIFICATION_FAILED"
	TextCodeResetRejected      = "RESET_REJECTED"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeSigningKeyMissing  = "SIGNING_KEY_MISSING"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrInvalidCredentials covers password mismatches during login
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCredentials)

// ErrPinExpired means the submitted PIN is absent or past its validity window
var ErrPinExpired = goerrors.New("verification PIN has expired, request a new one", goerrors.CategoryValidation).
	WithTextCode(TextCodePinExpired)

// ErrPinMismatch means the submitted PIN does not match the outstanding one
var ErrPinMismatch = goerrors.New("invalid verification PIN", goerrors.CategoryValidation).
	WithTextCode(TextCodePinMismatch)

// ErrAlreadyVerified rejects verification flows for confirmed addresses
var ErrAlreadyVerified = goerrors.New("email is already confirmed", goerrors.CategoryConflict).
	WithTextCode(TextCodeAlreadyVerified)

// ErrUsernameTaken rejects registrations reusing an existing username
var ErrUsernameTaken = goerrors.New("this username is already taken", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken)

// ErrNotificationFailed reports an undelivered out of band message
var ErrNotificationFailed = goerrors.New("failed to send notification email", goerrors.CategoryOperation).
	WithTextCode(TextCodeNotificationFailed)

// ErrPasswordResetRejected is deliberately generic so callers cannot probe
// which addresses exist or are confirmed.
var ErrPasswordResetRejected = goerrors.New("please try another email address", goerrors.CategoryValidation).
	WithTextCode(TextCodeResetRejected)

// ErrMissingSigningKey is a process wide configuration failure. It must stop
// startup, it is never a per request condition.
var ErrMissingSigningKey = goerrors.New("token signing key is not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeSigningKeyMissing)

// ErrTokenExpired is returned for tokens outside their validity window
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for tokens we could not parse or verify
var ErrTokenMalformed = goerrors.New("token is malformed", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrNoEmptyString rejects empty passwords before hashing
var ErrNoEmptyString = goerrors.New("value must not be empty", goerrors.CategoryBadInput)

// HasTextCode reports whether err carries the given text code
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if HasTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
