package service

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"stellar-pets-api/internal/cache"
	"stellar-pets-api/internal/logger"
	"stellar-pets-api/internal/model"
	"stellar-pets-api/pkg/uid"
)

const (
	// TokenPrefix is the prefix for all session tokens
	TokenPrefix = "spt_"

	// DefaultTokenTTL is the default token lifetime (1 hour)
	DefaultTokenTTL = 1 * time.Hour

	// DefaultChallengeTTL is how long a challenge may be answered.
	DefaultChallengeTTL = 5 * time.Minute

	tokenKeyPrefix     = "token:"
	challengeKeyPrefix = "challenge:"
)

// TokenService issues wallet challenges and the session tokens that answer them.
//
// An owner proves control of its key by signing the challenge nonce (the hex string
// as bytes) with ed25519. A challenge can be redeemed once.
type TokenService struct {
	cache        cache.Cache
	challengeTTL time.Duration
	tokenTTL     time.Duration
	now          func() time.Time
	log          *logrus.Entry
}

// TokenOptions configures lifetimes. Zero values use the defaults.
type TokenOptions struct {
	ChallengeTTL time.Duration
	TokenTTL     time.Duration
}

// NewTokenService creates a new token service.
func NewTokenService(c cache.Cache, opts TokenOptions, log logrus.FieldLogger) *TokenService {
	if opts.ChallengeTTL <= 0 {
		opts.ChallengeTTL = DefaultChallengeTTL
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	return &TokenService{
		cache:        c,
		challengeTTL: opts.ChallengeTTL,
		tokenTTL:     opts.TokenTTL,
		now:          time.Now,
		log:          logger.Component(log, "token_service"),
	}
}

// IssueChallenge creates a nonce the owner must sign.
func (s *TokenService) IssueChallenge(ctx context.Context, owner string) (model.Challenge, error) {
	if err := ValidateOwner(owner); err != nil {
		return model.Challenge{}, err
	}

	nonce, err := uid.RandomHex(32)
	if err != nil {
		return model.Challenge{}, fmt.Errorf("failed to generate challenge: %w", err)
	}

	ch := model.Challenge{
		Owner:     owner,
		Nonce:     nonce,
		ExpiresAt: s.now().Add(s.challengeTTL),
	}
	data, err := json.Marshal(ch)
	if err != nil {
		return model.Challenge{}, fmt.Errorf("failed to serialize challenge: %w", err)
	}
	if err := s.cache.Set(ctx, challengeKey(owner, nonce), data, s.challengeTTL); err != nil {
		return model.Challenge{}, fmt.Errorf("failed to store challenge: %w", err)
	}
	return ch, nil
}

// GenerateToken redeems a signed challenge for a session token.
func (s *TokenService) GenerateToken(ctx context.Context, owner, nonce, signatureHex string) (string, model.TokenData, error) {
	pub, err := ownerPublicKey(owner)
	if err != nil {
		return "", model.TokenData{}, err
	}

	raw, err := s.cache.Take(ctx, challengeKey(owner, nonce))
	if errors.Is(err, cache.ErrCacheMiss) {
		return "", model.TokenData{}, fmt.Errorf("%w: challenge not found or expired", ErrUnauthorized)
	}
	if err != nil {
		return "", model.TokenData{}, fmt.Errorf("failed to load challenge: %w", err)
	}

	var ch model.Challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		return "", model.TokenData{}, fmt.Errorf("failed to parse challenge: %w", err)
	}
	if ch.Owner != owner || s.now().After(ch.ExpiresAt) {
		return "", model.TokenData{}, fmt.Errorf("%w: challenge not found or expired", ErrUnauthorized)
	}

	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return "", model.TokenData{}, fmt.Errorf("%w: malformed signature", ErrUnauthorized)
	}
	if !ed25519.Verify(pub, []byte(nonce), sig) {
		return "", model.TokenData{}, fmt.Errorf("%w: signature does not match owner", ErrUnauthorized)
	}

	suffix, err := uid.RandomHex(32)
	if err != nil {
		return "", model.TokenData{}, fmt.Errorf("failed to generate token: %w", err)
	}
	token := TokenPrefix + suffix

	data := model.TokenData{Owner: owner, CreatedAt: s.now()}
	data.ExpiresAt = data.CreatedAt.Add(s.tokenTTL)
	if err := s.store(ctx, token, data); err != nil {
		return "", model.TokenData{}, err
	}

	s.log.WithFields(logrus.Fields{"owner": owner, "expires": data.ExpiresAt}).Info("issued session token")
	return token, data, nil
}

// ValidateToken checks if a token is valid and returns its data.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrUnauthorized)
	}
	if !strings.HasPrefix(token, TokenPrefix) {
		return nil, fmt.Errorf("%w: invalid token format", ErrUnauthorized)
	}

	raw, err := s.cache.Get(ctx, tokenKey(token))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("%w: token not found or expired", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var data model.TokenData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse token data: %w", err)
	}

	if s.now().After(data.ExpiresAt) {
		_ = s.cache.Delete(ctx, tokenKey(token))
		return nil, fmt.Errorf("%w: token expired", ErrUnauthorized)
	}

	return &data, nil
}

// RevokeToken deletes a token.
func (s *TokenService) RevokeToken(ctx context.Context, token string) error {
	return s.cache.Delete(ctx, tokenKey(token))
}

// RefreshToken extends the lifetime of a valid token.
func (s *TokenService) RefreshToken(ctx context.Context, token string) (*model.TokenData, error) {
	data, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	data.ExpiresAt = s.now().Add(s.tokenTTL)
	if err := s.store(ctx, token, *data); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *TokenService) store(ctx context.Context, token string, data model.TokenData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize token data: %w", err)
	}
	if err := s.cache.Set(ctx, tokenKey(token), raw, s.tokenTTL); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func tokenKey(token string) string {
	return tokenKeyPrefix + token
}

func challengeKey(owner, nonce string) string {
	return challengeKeyPrefix + owner + ":" + nonce
}
