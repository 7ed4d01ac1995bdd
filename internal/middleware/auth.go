package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/service"
	"stellar-pets-api/pkg/apierror"
	"stellar-pets-api/pkg/response"
)

// TokenDataKey is the key for storing token data in request context.
const TokenDataKey contextKey = "token_data"

// DevOwnerHeader asserts a caller identity without a token. Development only.
const DevOwnerHeader = "X-Debug-Owner"

// TokenValidator resolves a session token.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*model.TokenData, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Tokens TokenValidator
	// AllowDevHeader honours DevOwnerHeader. Never enable outside development.
	AllowDevHeader bool
	Logger         logrus.FieldLogger
}

// NewAuthMiddleware resolves the session token into the caller identity.
//
// Requests without credentials pass through anonymously; the ledgers reject
// owner-scoped mutations for them. A presented but invalid token is a 401.
func NewAuthMiddleware(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token != "" && cfg.Tokens != nil {
				tokenData, err := cfg.Tokens.ValidateToken(r.Context(), token)
				if err != nil {
					response.Error(w, apierror.Unauthorized("Invalid or expired token"))
					return
				}

				ctx := context.WithValue(r.Context(), TokenDataKey, tokenData)
				ctx = service.WithCaller(ctx, tokenData.Owner)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if cfg.AllowDevHeader {
				if owner := r.Header.Get(DevOwnerHeader); owner != "" {
					if cfg.Logger != nil {
						cfg.Logger.WithField("owner", owner).Debug("caller asserted via dev header")
					}
					next.ServeHTTP(w, r.WithContext(service.WithCaller(r.Context(), owner)))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tokenFromRequest reads X-Token, falling back to a bearer Authorization header.
func tokenFromRequest(r *http.Request) string {
	if token := r.Header.Get("X-Token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// TokenFromRequest is exported for handlers that act on the presented token.
func TokenFromRequest(r *http.Request) string {
	return tokenFromRequest(r)
}

// GetTokenDataFromContext retrieves token data from request context.
func GetTokenDataFromContext(ctx context.Context) *model.TokenData {
	if data, ok := ctx.Value(TokenDataKey).(*model.TokenData); ok {
		return data
	}
	return nil
}
