package service

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"
)

// AuthGate proves the caller controls an owner identity.
type AuthGate interface {
	RequireAuth(ctx context.Context, owner string) error
}

type callerKey struct{}

// WithCaller returns a context carrying the authenticated owner identity.
func WithCaller(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, callerKey{}, owner)
}

// CallerFrom returns the authenticated owner identity, if any.
func CallerFrom(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(callerKey{}).(string)
	return owner, ok && owner != ""
}

// ContextGate authorizes an operation when the caller in the context is the owner.
type ContextGate struct{}

// RequireAuth fails with ErrUnauthorized on a missing or different caller.
func (ContextGate) RequireAuth(ctx context.Context, owner string) error {
	caller, ok := CallerFrom(ctx)
	if !ok {
		return fmt.Errorf("%w: no authenticated caller", ErrUnauthorized)
	}
	if caller != owner {
		return fmt.Errorf("%w: caller does not control %s", ErrUnauthorized, owner)
	}
	return nil
}

// ValidateOwner checks that owner is a lowercase hex ed25519 public key.
func ValidateOwner(owner string) error {
	if len(owner) != 2*ed25519.PublicKeySize {
		return fmt.Errorf("%w: owner must be %d hex characters", ErrInvalidInput, 2*ed25519.PublicKeySize)
	}
	if owner != strings.ToLower(owner) {
		return fmt.Errorf("%w: owner must be lowercase hex", ErrInvalidInput)
	}
	if _, err := hex.DecodeString(owner); err != nil {
		return fmt.Errorf("%w: owner is not hex", ErrInvalidInput)
	}
	return nil
}

// ownerPublicKey decodes a validated owner identity.
func ownerPublicKey(owner string) (ed25519.PublicKey, error) {
	if err := ValidateOwner(owner); err != nil {
		return nil, err
	}
	raw, _ := hex.DecodeString(owner)
	return ed25519.PublicKey(raw), nil
}

var _ AuthGate = ContextGate{}
