package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const uidKey contextKey = "uid"

// DevUserHeader carries the supervisor id when DEV_AUTH is enabled.
const DevUserHeader = "X-User-ID"

// TokenValidator verifies HS256 access tokens issued by the identity
// provider. The supervisor id is the token subject.
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator returns a validator for tokens signed with secret.
func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{secret: []byte(secret)}
}

// Validate parses tokenString and returns its subject.
func (v *TokenValidator) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "Token inválido ou expirado"}
	}
	if !token.Valid || claims.Subject == "" {
		return "", &domain.ErrUnauthorized{Message: "Token inválido"}
	}
	return claims.Subject, nil
}

// UIDAuthMiddleware authenticates the supervisor and injects its uid into the
// request context. With devAuth, the X-User-ID header is accepted in place of
// a token.
func UIDAuthMiddleware(validator *TokenValidator, devAuth bool, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if uid := strings.TrimSpace(r.Header.Get(DevUserHeader)); devAuth && uid != "" {
					next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), uidKey, uid)))
					return
				}
				logger.Warn("auth: missing token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de autenticação não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("auth: invalid token format",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}
			if validator == nil {
				writeError(w, http.StatusUnauthorized, "Autenticação por token desabilitada")
				return
			}

			uid, err := validator.Validate(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), uidKey, uid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UIDFromContext extracts the authenticated supervisor id from context.
func UIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(uidKey).(string)
	return v
}
