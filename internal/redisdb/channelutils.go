package redisdb

import "github.com/Lavizord/crash-server/internal/models"

// EventsChannel is the public fan-out channel every connected client
// listens on.
const EventsChannel = "crash:events"

// Worker queues between wsapi and the crashworker.
const (
	PlaceBetQueue = "crash:place_bet"
	CashOutQueue  = "crash:cash_out"
)

func GetPlayerPubSubChannel(player models.Player) string {
	return "player:" + player.ID
}

func GetPlayerPubSubChannelByID(playerID string) string {
	return "player:" + playerID
}
