package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cognobserve/labeling/internal/assessment"
)

type contextKey string

const (
	UserContextKey     contextKey = "user"
	IdentityContextKey contextKey = "identity"
)

// UserClaims are the reviewer claims issued by the web app
type UserClaims struct {
	jwt.RegisteredClaims
	Email             string   `json:"email"`
	Emails            []string `json:"emails,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
}

// Identity maps the claims to the reviewer identity used for author matching.
// The username falls back to the subject.
func (c *UserClaims) Identity() assessment.Identity {
	id := assessment.Identity{Username: c.PreferredUsername}
	if id.Username == "" {
		id.Username = c.Subject
	}
	seen := make(map[string]bool)
	for _, e := range append([]string{c.Email}, c.Emails...) {
		e = strings.TrimSpace(e)
		if e == "" || seen[strings.ToLower(e)] {
			continue
		}
		seen[strings.ToLower(e)] = true
		id.Emails = append(id.Emails, e)
	}
	return id
}

// JWTAuth validates HS256 Bearer tokens signed with secret (required)
func JWTAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, `{"error":"Missing authorization header"}`, http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				http.Error(w, `{"error":"Invalid authorization header format"}`, http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(parts[1], &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				http.Error(w, `{"error":"Invalid token"}`, http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*UserClaims)
			if !ok || claims.Subject == "" {
				http.Error(w, `{"error":"Invalid token claims"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims.Subject)
			ctx = context.WithValue(ctx, IdentityContextKey, claims.Identity())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID gets the user ID from context
func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(UserContextKey).(string); ok {
		return userID
	}
	return ""
}

// GetIdentity gets the reviewer identity from context
func GetIdentity(ctx context.Context) (assessment.Identity, bool) {
	id, ok := ctx.Value(IdentityContextKey).(assessment.Identity)
	return id, ok
}
