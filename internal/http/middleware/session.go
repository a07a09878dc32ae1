package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lifemap/lifemap-api/internal/identity"
	"github.com/lifemap/lifemap-api/pkg/logging"
)

// TokenVerifier turns a bearer token issued by the identity provider into
// the caller's identity.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// SessionClaims are the claims read from session tokens.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity prefers the email claim and falls back to the subject.
func (c *SessionClaims) Identity() (string, error) {
	if email := strings.TrimSpace(c.Email); email != "" {
		return email, nil
	}
	if sub := strings.TrimSpace(c.Subject); sub != "" {
		return sub, nil
	}
	return "", errors.New("token carries no email or subject")
}

// HMACVerifier verifies HS256 session tokens with a shared secret.
type HMACVerifier struct {
	secret string
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: secret}
}

func (v *HMACVerifier) Verify(_ context.Context, tokenString string) (string, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, hmacKey(v.secret), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}
	if !token.Valid {
		return "", errors.New("session: invalid token")
	}
	return claims.Identity()
}

// SessionIdentity resolves the caller identity from a bearer token. Requests
// without a token pass through anonymously; a token that fails verification
// is rejected with 401. A nil verifier disables the middleware.
func SessionIdentity(verifier TokenVerifier, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := verifier.Verify(r.Context(), tokenString)
			if err != nil {
				logger.Warn("session token rejected", "error", err, "path", r.URL.Path)
				writeAuthError(w, http.StatusUnauthorized, "invalid session")
				return
			}
			next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
		})
	}
}
