package identity

// TokenValidator validates a raw token string and returns the claims
// it carries. TokenService satisfies it, middleware consumes it.
type TokenValidator interface {
	Validate(tokenString string) (*JWTClaims, error)
}

// TokenValidatorFunc adapts a plain function to TokenValidator
type TokenValidatorFunc func(tokenString string) (*JWTClaims, error)

func (f TokenValidatorFunc) Validate(tokenString string) (*JWTClaims, error) {
	return f(tokenString)
}
