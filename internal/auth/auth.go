package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sendrec/framereview/internal/httputil"
	"github.com/sendrec/framereview/internal/validate"
)

type contextKey string

const userIDKey contextKey = "userID"

// Verifier authenticates reviewers from bearer access tokens.
type Verifier struct {
	jwtSecret string
}

func NewVerifier(jwtSecret string) *Verifier {
	return &Verifier{jwtSecret: jwtSecret}
}

func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		tokenStr, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := ValidateToken(v.jwtSecret, tokenStr)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		if claims.TokenType != "access" {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid token type")
			return
		}
		if claims.UserID == "" {
			httputil.WriteError(w, http.StatusUnauthorized, "token has no reviewer")
			return
		}
		if msg := validate.UUID(claims.UserID, "token reviewer"); msg != "" {
			httputil.WriteError(w, http.StatusUnauthorized, msg)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), claims.UserID)))
	})
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
