package model

import "time"

// TokenData contains the data stored with a session token.
type TokenData struct {
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Challenge is a single-use nonce an owner must sign to obtain a session token.
type Challenge struct {
	Owner     string    `json:"owner"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}
