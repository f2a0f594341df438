package models

import (
	"fmt"
)

type PlayerStatus string

const (
	StatusOffline PlayerStatus = "OFFLINE"
	StatusOnline  PlayerStatus = "ONLINE"
	StatusBetting PlayerStatus = "BETTING" // has an open bet on the current round
)

type Player struct {
	ID            string       `json:"id"`
	Token         string       `json:"token"`
	SessionID     string       `json:"session_id"`
	Name          string       `json:"name"`
	Currency      string       `json:"currency"`
	WalletAddress string       `json:"wallet_address"` // deposit source on the settlement rail
	Status        PlayerStatus `json:"status"`
}

// This map will hold the valid status transitions.
var validStatusTransitions = map[PlayerStatus]map[PlayerStatus]bool{
	StatusOffline: {
		StatusOnline: true,
	},
	StatusOnline: {
		StatusOffline: true,
		StatusBetting: true,
	},
	StatusBetting: {
		StatusOnline:  true,
		StatusOffline: true,
	},
}

// This updates and checks that our player status is the right one.
func (p *Player) UpdatePlayerStatus(newStatus PlayerStatus) error {
	if p.Status == newStatus {
		return nil
	}
	if !validStatusTransitions[p.Status][newStatus] {
		return fmt.Errorf("invalid status transition from %s to %s", p.Status, newStatus)
	}
	p.Status = newStatus
	return nil
}
