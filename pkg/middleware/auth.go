package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminRole is the role claim an admin token must carry.
const AdminRole = "admin"

// tokenLeeway absorbs clock skew between the issuer and this service.
const tokenLeeway = 30 * time.Second

// AdminAuth returns middleware that admits only requests carrying an
// HMAC-signed JWT bearer token with an expiry and role "admin". An empty
// secret disables the protected routes entirely: every request gets 403.
func AdminAuth(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tokenLeeway),
	)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "admin endpoints are disabled")
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing authorization header")
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || tokenString == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid authorization header format")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return key, nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "invalid admin token",
					slog.String("path", r.URL.Path),
					slog.String("error", errString(err)),
				)
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
				return
			}

			if role, _ := claims["role"].(string); role != AdminRole {
				sub, _ := claims.GetSubject()
				logger.WarnContext(r.Context(), "admin role required",
					slog.String("path", r.URL.Path),
					slog.String("subject", sub),
				)
				writeError(w, r, http.StatusForbidden, "FORBIDDEN", "admin role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func errString(err error) string {
	if err != nil {
		return err.Error()
	}
	return ""
}
