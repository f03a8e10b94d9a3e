package auth

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned when a token does not verify.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrTokenExpired is returned when a bearer token is past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)

// Principal identifies the caller of an authenticated request.
type Principal struct {
	Subject string   `json:"subject"`
	Method  string   `json:"method"`
	Scopes  []string `json:"scopes,omitempty"`
}

// HasScope reports whether p was granted scope.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// Verifier validates a bearer token. Middleware depends on this contract
// rather than on a specific scheme.
type Verifier interface {
	Verify(token string) (Principal, error)
}

// VerifierFunc adapts an ordinary function to Verifier.
type VerifierFunc func(token string) (Principal, error)

// Verify implements Verifier.
func (f VerifierFunc) Verify(token string) (Principal, error) { return f(token) }

// Any returns a Verifier that accepts a token when one of verifiers does.
// An expired-token error wins over a generic rejection so clients see why.
func Any(verifiers ...Verifier) Verifier {
	return VerifierFunc(func(token string) (Principal, error) {
		err := ErrInvalidCredentials
		for _, v := range verifiers {
			p, vErr := v.Verify(token)
			if vErr == nil {
				return p, nil
			}
			if errors.Is(vErr, ErrTokenExpired) {
				err = vErr
			}
		}
		return Principal{}, err
	})
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the Principal stored by the auth middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
