package identity

import (
	"context"
	"reflect"
	"time"
)

// Auther authenticates credentials and mints tokens
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Authenticator. Construction fails if
// the config is missing the signing key.
func NewAuthenticator(provider IdentityProvider, cfg Config) (*Auther, error) {
	tokenService, err := NewTokenService(cfg)
	if err != nil {
		return nil, err
	}

	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		logger:       &defLogger{},
		activitySink: noopActivitySink{},
	}, nil
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithTokenService swaps the token service, used in tests
func (s *Auther) WithTokenService(svc TokenService) *Auther {
	if svc != nil {
		s.tokenService = svc
	}
	return s
}

// TokenService returns the TokenService instance used by this
// Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials and returns a signed token along with
// its expiration
func (s *Auther) Login(ctx context.Context, identifier, password string) (string, time.Time, error) {
	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("Login verify identity error: %v", err)
		recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Actor:     ActorRef{Type: "unknown"},
			Metadata: map[string]any{
				"identifier": identifier,
				"error":      err.Error(),
			},
		})
		return "", time.Time{}, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("Login identity is nil or zero value")
		return "", time.Time{}, ErrIdentityNotFound
	}

	token, expiresAt, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("Login token generation error: %v", err)
		return "", time.Time{}, err
	}

	recordActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		Actor:     ActorRef{Type: "user", ID: identity.ID()},
		UserID:    identity.ID(),
	})

	return token, expiresAt, nil
}

// IdentityFromToken validates a token and returns the identity its
// claims describe
func (s *Auther) IdentityFromToken(ctx context.Context, token string) (Identity, error) {
	claims, err := s.tokenService.Validate(token)
	if err != nil {
		return nil, err
	}

	return claims, nil
}

var _ Authenticator = (*Auther)(nil)
