package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload accepted by JWTVerifier.
type Claims struct {
	gojwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

// JWTVerifier verifies HMAC-signed bearer tokens.
type JWTVerifier struct {
	cfg    JWTConfig
	method gojwt.SigningMethod
}

// NewJWTVerifier creates a verifier from cfg.
func NewJWTVerifier(cfg JWTConfig) (*JWTVerifier, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("auth.jwt: %w", err)
	}
	return &JWTVerifier{cfg: cfg, method: signingMethod(cfg.Method)}, nil
}

// Verify parses token and checks signature, expiry, issuer and audience.
func (v *JWTVerifier) Verify(token string) (Principal, error) {
	claims := &Claims{}
	parsed, err := gojwt.ParseWithClaims(token, claims, v.keyFunc, v.parserOptions()...)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return Principal{}, ErrTokenExpired
		}
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	if !parsed.Valid {
		return Principal{}, ErrInvalidCredentials
	}
	p := Principal{Subject: claims.Subject, Method: "jwt"}
	if claims.Scope != "" {
		p.Scopes = strings.Fields(claims.Scope)
	}
	return p, nil
}

// Issue signs a token for subject with the configured TTL. Used by the
// token subcommand and tests.
func (v *JWTVerifier) Issue(subject string, scopes ...string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    v.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(v.cfg.TTL)),
		},
		Scope: strings.Join(scopes, " "),
	}
	if v.cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{v.cfg.Audience}
	}
	signed, err := gojwt.NewWithClaims(v.method, claims).SignedString([]byte(v.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("auth.jwt: sign token: %w", err)
	}
	return signed, nil
}

func (v *JWTVerifier) keyFunc(token *gojwt.Token) (interface{}, error) {
	if token.Method.Alg() != v.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	return []byte(v.cfg.Secret), nil
}

func (v *JWTVerifier) parserOptions() []gojwt.ParserOption {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{v.method.Alg()}),
		gojwt.WithLeeway(v.cfg.Leeway),
	}
	if v.cfg.Issuer != "" {
		opts = append(opts, gojwt.WithIssuer(v.cfg.Issuer))
	}
	if v.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(v.cfg.Audience))
	}
	return opts
}

func signingMethod(m string) gojwt.SigningMethod {
	switch m {
	case "HS384":
		return gojwt.SigningMethodHS384
	case "HS512":
		return gojwt.SigningMethodHS512
	default:
		return gojwt.SigningMethodHS256
	}
}
