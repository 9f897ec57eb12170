package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/skm-mango/storefront/internal/platform/httpx"
)

const (
	defaultRoleClaim     = "role"
	defaultFallbackRole  = RoleUser
	defaultVerifyTimeout = 5 * time.Second
)

var (
	// ErrTokenExpired signals an expired bearer token.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals a bearer token that failed verification.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// Claims is the verified content of a bearer token.
type Claims struct {
	Subject string
	Values  map[string]any
}

// TokenVerifier verifies bearer tokens issued by the external auth service.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Authenticator turns verified bearer tokens into request identities.
type Authenticator struct {
	verifier     TokenVerifier
	roleClaim    string
	fallbackRole string
	timeout      time.Duration
}

// Option customises an Authenticator.
type Option func(*Authenticator)

// WithRoleClaim overrides the claim that carries the role.
func WithRoleClaim(claim string) Option {
	return func(a *Authenticator) {
		if claim = strings.TrimSpace(claim); claim != "" {
			a.roleClaim = claim
		}
	}
}

// WithFallbackRole sets the role assumed when the token has none.
func WithFallbackRole(role string) Option {
	return func(a *Authenticator) {
		if role = normaliseRole(role); role != "" {
			a.fallbackRole = role
		}
	}
}

// WithVerificationTimeout bounds verifier calls.
func WithVerificationTimeout(d time.Duration) Option {
	return func(a *Authenticator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// NewAuthenticator constructs an Authenticator around verifier.
func NewAuthenticator(verifier TokenVerifier, opts ...Option) *Authenticator {
	a := &Authenticator{
		verifier:     verifier,
		roleClaim:    defaultRoleClaim,
		fallbackRole: defaultFallbackRole,
		timeout:      defaultVerifyTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// RequireAuth verifies the bearer token and, when roles are given, requires one of them.
// Missing or invalid tokens yield 401; a valid token lacking the role yields 403.
func (a *Authenticator) RequireAuth(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := extractBearerToken(r.Header.Get("Authorization"))
			if !ok {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authorization header missing or invalid", http.StatusUnauthorized))
				return
			}
			if a == nil || a.verifier == nil {
				httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authorization service unavailable", http.StatusUnauthorized))
				return
			}

			verifyCtx, cancel := context.WithTimeout(ctx, a.timeout)
			claims, err := a.verifier.Verify(verifyCtx, token)
			cancel()
			if err != nil {
				writeVerificationError(ctx, w, err)
				return
			}

			identity := a.identityFromClaims(claims)
			if identity.UID == "" {
				httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "token subject missing", http.StatusUnauthorized))
				return
			}
			if len(allowedRoles) > 0 && !identity.HasAnyRole(allowedRoles...) {
				httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient role", http.StatusForbidden))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func (a *Authenticator) identityFromClaims(claims Claims) *Identity {
	identity := &Identity{
		UID:   strings.TrimSpace(claims.Subject),
		Name:  claimString(claims.Values, "name"),
		Email: claimString(claims.Values, "email"),
		Phone: claimString(claims.Values, "phone_number"),
		Roles: rolesFromClaim(claims.Values[a.roleClaim]),
	}
	if identity.Phone == "" {
		identity.Phone = claimString(claims.Values, "phone")
	}
	if len(identity.Roles) == 0 && a.fallbackRole != "" {
		identity.Roles = []string{a.fallbackRole}
	}
	return identity
}

func rolesFromClaim(raw any) []string {
	var values []string
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		values = []string{v}
	case map[string]any:
		for key, flag := range v {
			if cast.ToBool(flag) {
				values = append(values, key)
			}
		}
	default:
		values = cast.ToStringSlice(v)
	}

	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		role := normaliseRole(value)
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}

func claimString(claims map[string]any, key string) string {
	if claims == nil {
		return ""
	}
	if v, ok := claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func extractBearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeVerificationError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, ErrTokenExpired) {
		httpx.WriteError(ctx, w, httpx.NewError("token_expired", "token expired", http.StatusUnauthorized))
		return
	}
	httpx.WriteError(ctx, w, httpx.NewError("invalid_token", "token verification failed", http.StatusUnauthorized))
}
