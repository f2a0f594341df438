package models

import (
	"time"
)

type Session struct {
	ID            string    `json:"session_id"`
	Token         string    `json:"token"`
	PlayerName    string    `json:"player_name"`
	Currency      string    `json:"currency"`
	WalletAddress string    `json:"wallet_address"`
	Demo          bool      `json:"demo"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (s *Session) IsTokenExpired() bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(s.ExpiresAt)
}
