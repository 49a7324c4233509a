package identity

import (
	"context"

	"github.com/goliatone/go-identity/middleware/jwtware"
	"github.com/goliatone/go-router"
)

// ValidationListener aliases the jwtware listener so consumers can use
// identity helpers directly.
type ValidationListener = jwtware.ValidationListener

// ValidatorAdapter bridges the identity TokenValidator to the
// middleware's local mirror interface.
type ValidatorAdapter struct {
	validator TokenValidator
}

// NewValidatorAdapter wraps a TokenValidator for jwtware consumption
func NewValidatorAdapter(validator TokenValidator) *ValidatorAdapter {
	return &ValidatorAdapter{validator: validator}
}

func (a *ValidatorAdapter) Validate(tokenString string) (jwtware.AuthClaims, error) {
	claims, err := a.validator.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// ContextEnricherAdapter adapts jwtware.AuthClaims to identity
// AuthClaims and stores them in the standard context for downstream
// usage.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}

	return WithClaimsContext(c, authClaims)
}

// ProtectedRoute builds the JWT middleware from the identity config
// and token validator. An optional role restricts the route further.
func ProtectedRoute(cfg Config, validator TokenValidator, requiredRole string) router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		AuthScheme:      cfg.GetAuthScheme(),
		TokenValidator:  NewValidatorAdapter(validator),
		RequiredRole:    requiredRole,
		ContextEnricher: ContextEnricherAdapter,
	})
}

// RegisterValidationListeners appends listeners to a jwtware.Config in
// a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}
