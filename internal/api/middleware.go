package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

type contextKey string

const subjectKey contextKey = "subject"

// AdminRole is the value of the "role" claim admin routes require.
const AdminRole = "admin"

// AdminAuth rejects requests without a valid HS256 bearer token carrying
// role=admin. The token subject is stored in the request context.
func AdminAuth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(tokenStr) == "" {
				respondWithError(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			claims, err := parseToken(strings.TrimSpace(tokenStr), secret)
			if err != nil {
				zap.L().Debug("rejected admin token", zap.Error(err))
				respondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			if role, _ := claims["role"].(string); role != AdminRole {
				respondWithError(w, http.StatusForbidden, "Admin role required")
				return
			}

			sub, _ := claims["sub"].(string)
			ctx := context.WithValue(r.Context(), subjectKey, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject returns the authenticated token subject, if any.
func Subject(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey).(string)
	return sub
}

func parseToken(tokenStr string, secret []byte) (jwt.MapClaims, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret not configured")
	}
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
