package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cvaas/quest-engine/internal/config"
	"github.com/cvaas/quest-engine/internal/models"
)

// Claims are the bearer token claims issued by the auth provider
type Claims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware verifies HS256 bearer tokens and attaches a Principal
type AuthMiddleware struct {
	secret   []byte
	issuer   string
	audience string
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(cfg config.AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// Authenticate verifies the token from the Authorization header. The
// access_token query parameter is accepted for websocket upgrades, where
// browsers cannot set headers.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing_token", "provide Authorization header with Bearer token")
			return
		}

		principal, err := m.Verify(token)
		if err != nil {
			slog.Warn("invalid bearer token", "error", err, "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
			return
		}

		slog.Debug("authenticated request", "user", principal.MaskedUserID(), "role", principal.Role)

		ctx := ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Verify parses a token and returns the principal it names
func (m *AuthMiddleware) Verify(token string) (*models.Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	return models.NewPrincipal(claims.Subject, claims.Email, models.Role(claims.Role)), nil
}

// RequirePermission returns middleware that checks for specific permission
func (m *AuthMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
				return
			}

			if !principal.HasPermission(permission) {
				slog.Warn("permission denied",
					"user", principal.MaskedUserID(),
					"role", principal.Role,
					"required", permission,
				)
				respondError(w, http.StatusForbidden, "permission_denied",
					"missing required permission: "+permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SignToken issues an HS256 token in the format Authenticate accepts. It is
// used for local development and tests.
func SignToken(cfg config.AuthConfig, userID, email string, role models.Role, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", fmt.Errorf("jwt secret is not configured")
	}

	now := time.Now()
	claims := Claims{
		Role:  string(role),
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.Audience}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// extractToken extracts the bearer token from request headers
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}
		return ""
	}

	if websocketUpgrade(r) {
		return r.URL.Query().Get("access_token")
	}
	return ""
}

func websocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
