package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AdminPasswordEnvKey is the environment variable name for admin password
	AdminPasswordEnvKey = "RANSTAT_ADMIN_PASSWORD"
	// AuthHeader is the header name for JWT authentication
	AuthHeader = "Authorization"
	// TokenExpiry is the JWT token expiry duration
	TokenExpiry = 7 * 24 * time.Hour // 7 days

	tokenIssuer = "ranstat-admin"
)

// AuthMiddleware provides JWT authentication for write endpoints.
// An empty password disables authentication
type AuthMiddleware struct {
	password string
	now      func() time.Time
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(password string) *AuthMiddleware {
	return &AuthMiddleware{
		password: password,
		now:      time.Now,
	}
}

// IsEnabled returns true if authentication is enabled
func (m *AuthMiddleware) IsEnabled() bool {
	return m.password != ""
}

// GenerateToken generates a JWT token
func (m *AuthMiddleware) GenerateToken() (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenExpiry)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.password))
}

// ValidateToken validates a JWT token
func (m *AuthMiddleware) ValidateToken(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(m.password), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(m.now))

	return err == nil && token.Valid
}

// Wrap wraps a handler with JWT authentication; usable as chi middleware
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.IsEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get(AuthHeader)
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if !m.ValidateToken(strings.TrimPrefix(authHeader, "Bearer ")) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// VerifyPassword checks if the provided password is correct
func (m *AuthMiddleware) VerifyPassword(password string) bool {
	if !m.IsEnabled() {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(m.password), []byte(password)) == 1
}
