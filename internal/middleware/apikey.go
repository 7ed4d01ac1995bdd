package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"stellar-pets-api/pkg/apierror"
	"stellar-pets-api/pkg/response"
)

// RequireAPIKey guards operator endpoints with a static key sent as X-API-Key.
// With no keys configured every request is refused.
func RequireAPIKey(keys []string) func(http.Handler) http.Handler {
	valid := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			valid = append(valid, k)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(valid) == 0 {
				response.Error(w, apierror.Forbidden("admin API is disabled"))
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				response.Error(w, apierror.Unauthorized("X-API-Key header required"))
				return
			}
			if !isValidKey(apiKey, valid) {
				response.Error(w, apierror.Unauthorized("Invalid API key"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isValidKey checks if the provided key is in the valid keys list.
func isValidKey(key string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}
