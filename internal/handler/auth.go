package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stellar-pets-api/internal/middleware"
	"stellar-pets-api/internal/model"
	"stellar-pets-api/internal/service"
	"stellar-pets-api/pkg/apierror"
	"stellar-pets-api/pkg/response"
)

// TokenIssuer is the wallet authentication flow used by AuthHandler.
type TokenIssuer interface {
	IssueChallenge(ctx context.Context, owner string) (model.Challenge, error)
	GenerateToken(ctx context.Context, owner, nonce, signatureHex string) (string, model.TokenData, error)
	RevokeToken(ctx context.Context, token string) error
	RefreshToken(ctx context.Context, token string) (*model.TokenData, error)
}

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	tokens TokenIssuer
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(tokens TokenIssuer) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// ChallengeRequest represents the request body for a challenge.
type ChallengeRequest struct {
	Owner string `json:"owner"`
}

// TokenRequest represents the request body for token generation.
type TokenRequest struct {
	Owner     string `json:"owner"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// TokenResponse represents the response for token generation.
type TokenResponse struct {
	Token     string    `json:"token"`
	Owner     string    `json:"owner"`
	ExpiresAt time.Time `json:"expires_at"`
	ExpiresIn int       `json:"expires_in"`
}

// Challenge handles POST /auth/challenge
func (h *AuthHandler) Challenge(w http.ResponseWriter, r *http.Request) {
	var req ChallengeRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	ch, err := h.tokens.IssueChallenge(r.Context(), req.Owner)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}
	response.OK(w, ch)
}

// GenerateToken handles POST /auth/token
func (h *AuthHandler) GenerateToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if apiErr := decodeJSON(w, r, &req); apiErr != nil {
		response.Error(w, apiErr)
		return
	}

	var missing []apierror.FieldError
	for _, f := range []struct{ name, value string }{
		{"owner", req.Owner},
		{"nonce", req.Nonce},
		{"signature", req.Signature},
	} {
		if f.value == "" {
			missing = append(missing, apierror.FieldError{Field: f.name, Message: "is required"})
		}
	}
	if len(missing) > 0 {
		response.Error(w, apierror.ValidationError("", missing...))
		return
	}

	token, data, err := h.tokens.GenerateToken(r.Context(), req.Owner, req.Nonce, req.Signature)
	if err != nil {
		response.Error(w, ledgerError(err))
		return
	}

	response.OK(w, TokenResponse{
		Token:     token,
		Owner:     data.Owner,
		ExpiresAt: data.ExpiresAt,
		ExpiresIn: int(data.ExpiresAt.Sub(data.CreatedAt).Seconds()),
	})
}

// RevokeToken handles POST /auth/revoke
func (h *AuthHandler) RevokeToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	if err := h.tokens.RevokeToken(r.Context(), token); err != nil {
		response.Error(w, apierror.InternalError("failed to revoke token"))
		return
	}

	response.OK(w, map[string]string{"status": "revoked"})
}

// RefreshToken handles POST /auth/refresh
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token == "" {
		response.Error(w, apierror.BadRequest("X-Token header required"))
		return
	}

	data, err := h.tokens.RefreshToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			response.Error(w, apierror.Unauthorized("Invalid or expired token"))
			return
		}
		response.Error(w, apierror.InternalError("failed to refresh token"))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":     "refreshed",
		"expires_at": data.ExpiresAt,
		"expires_in": int(time.Until(data.ExpiresAt).Seconds()),
	})
}
