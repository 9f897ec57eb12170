package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// JWTVerifier verifies HS256 tokens minted by the storefront's own auth service.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// JWTOption customises a JWTVerifier.
type JWTOption func(*JWTVerifier)

// WithIssuer requires the iss claim to match.
func WithIssuer(issuer string) JWTOption {
	return func(v *JWTVerifier) {
		v.issuer = strings.TrimSpace(issuer)
	}
}

// WithJWTClock overrides the clock used for expiry checks.
func WithJWTClock(now func() time.Time) JWTOption {
	return func(v *JWTVerifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewJWTVerifier constructs a verifier for secret.
func NewJWTVerifier(secret string, opts ...JWTOption) (*JWTVerifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: jwt secret is required")
	}
	v := &JWTVerifier{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// Verify implements TokenVerifier.
func (v *JWTVerifier) Verify(_ context.Context, token string) (Claims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithoutClaimsValidation())
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	now := v.now().Unix()
	if !claims.VerifyExpiresAt(now, false) {
		return Claims{}, ErrTokenExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return Claims{}, fmt.Errorf("%w: token not yet valid", ErrTokenInvalid)
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return Claims{}, fmt.Errorf("%w: issuer mismatch", ErrTokenInvalid)
	}

	subject, _ := claims["sub"].(string)
	return Claims{Subject: subject, Values: map[string]any(claims)}, nil
}

// Sign mints a token carrying claims. Local tooling and tests use it to produce bearer tokens.
func (v *JWTVerifier) Sign(claims map[string]any) (string, error) {
	mapClaims := jwt.MapClaims{}
	for k, val := range claims {
		mapClaims[k] = val
	}
	if v.issuer != "" {
		if _, ok := mapClaims["iss"]; !ok {
			mapClaims["iss"] = v.issuer
		}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString(v.secret)
}
