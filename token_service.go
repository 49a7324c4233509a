package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// TokenService mints and validates the signed tokens returned by Login
type TokenService interface {
	Generate(identity Identity) (string, time.Time, error)
	Validate(tokenString string) (*JWTClaims, error)
}

type tokenService struct {
	signingKey      []byte
	signingMethod   jwt.SigningMethod
	issuer          string
	audience        []string
	tokenExpiration time.Duration
	now             func() time.Time
}

// TokenServiceOption configures a tokenService
type TokenServiceOption func(*tokenService)

// WithTokenClock overrides the time source, used in tests
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(t *tokenService) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTokenService builds a TokenService from the given config. A
// missing signing key is a configuration fault and fails construction,
// it is never deferred to request time.
func NewTokenService(cfg Config, opts ...TokenServiceOption) (TokenService, error) {
	if cfg == nil || cfg.GetSigningKey() == "" {
		return nil, ErrMissingSigningKey
	}

	method := jwt.GetSigningMethod(cfg.GetSigningMethod())
	if method == nil {
		method = jwt.SigningMethodHS256
	}

	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, goerrors.New("unsupported signing method: "+cfg.GetSigningMethod(), goerrors.CategoryInternal).
			WithTextCode("UNSUPPORTED_SIGNING_METHOD")
	}

	expiration := time.Duration(cfg.GetTokenExpiration()) * time.Hour
	if expiration <= 0 {
		expiration = 24 * time.Hour
	}

	t := &tokenService{
		signingKey:      []byte(cfg.GetSigningKey()),
		signingMethod:   method,
		issuer:          cfg.GetIssuer(),
		audience:        cfg.GetAudience(),
		tokenExpiration: expiration,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

// Generate mints a signed token for the identity and returns it along
// with its expiration instant
func (t *tokenService) Generate(identity Identity) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.tokenExpiration)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID(),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings(t.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:               identity.ID(),
		PreferredUsername: identity.Username(),
		EmailAddress:      identity.Email(),
		RoleRefs:          identity.Roles(),
	}
	claims.ensureTokenID()

	signed, err := jwt.NewWithClaims(t.signingMethod, claims).SignedString(t.signingKey)
	if err != nil {
		return "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, expiresAt, nil
}

// Validate parses and verifies a token string, returning its claims
func (t *tokenService) Validate(tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{t.signingMethod.Alg()}),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	if len(t.audience) > 0 {
		opts = append(opts, jwt.WithAudience(t.audience[0]))
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return t.signingKey, nil
	}, opts...)

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrTokenMalformed
		default:
			return nil, goerrors.Wrap(err, goerrors.CategoryAuth, "token validation failed").
				WithCode(goerrors.CodeUnauthorized)
		}
	}

	if !token.Valid {
		return nil, goerrors.New("invalid token", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	return claims, nil
}
