package handlers

import (
	"encoding/json"
	"log"
	"time"

	"github.com/Lavizord/crash-server/internal/messages"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/redisdb"
)

func handleMessages(client *Client) {
	defer client.Conn.Close()

	client.Conn.SetReadDeadline(time.Now().Add(pongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := client.Conn.ReadMessage()
		if err != nil {
			handleClientDisconnect(client)
			break
		}

		message, err := messages.ParseMessage(msg)
		if err != nil {
			msg, _ = messages.GenerateGenericMessage("error", "Invalid message format."+err.Error())
			client.WriteChan <- msg
			continue
		}
		if message.Command == "ping" {
			msg := messages.MessageSimple{
				Command: "pong",
			}
			msgBytes, _ := json.Marshal(msg)
			client.WriteChan <- msgBytes
		}

		routeMessages(message, client)
	}
}

func routeMessages(message *messages.Message[json.RawMessage], client *Client) {
	// Directly route to the right handler based on the command
	switch message.Command {
	case "place_bet":
		handlePlaceBet(message, client)

	case "cash_out":
		handleCashOut(client)

	case "get_balance":
		handleGetBalance(client)

	case "history":
		handleHistory(client)
	}
}

// handlePlaceBet queues the bet command for the crashworker. The reply
// comes back asynchronously on the player channel as a bet_result.
func handlePlaceBet(message *messages.Message[json.RawMessage], client *Client) {
	var amount float64
	if err := json.Unmarshal(message.Value, &amount); err != nil {
		msg, _ := messages.GenerateGenericMessage("invalid", "Handle Place Bet - JSON Unmarshal Error.")
		client.WriteChan <- msg
		return
	}
	if amount <= 0 {
		msg, _ := messages.GenerateGenericMessage("invalid", "Handle Place Bet - amount must be positive.")
		client.WriteChan <- msg
		return
	}
	req := messages.PlaceBetRequest{
		UserID:     client.Player.ID,
		SessionID:  client.Player.SessionID,
		PlayerName: client.Player.Name,
		Amount:     amount,
	}
	data, _ := json.Marshal(req)
	if err := redisClient.RPushGeneric(redisdb.PlaceBetQueue, data); err != nil {
		log.Printf("Error pushing bet to Redis place bet queue: %v\n", err)
		msg, _ := messages.GenerateGenericMessage("error", "error pushing bet to crashworker.")
		client.WriteChan <- msg
		return
	}
	client.Player.UpdatePlayerStatus(models.StatusBetting)
	redisClient.UpdatePlayer(client.Player)
}

func handleCashOut(client *Client) {
	req := messages.CashOutRequest{
		UserID:    client.Player.ID,
		SessionID: client.Player.SessionID,
	}
	data, _ := json.Marshal(req)
	if err := redisClient.RPushGeneric(redisdb.CashOutQueue, data); err != nil {
		log.Printf("Error pushing cash out to Redis queue: %v\n", err)
		msg, _ := messages.GenerateGenericMessage("error", "error pushing cash out to crashworker.")
		client.WriteChan <- msg
		return
	}
}

func handleGetBalance(client *Client) {
	balance, err := ledgerClient.GetBalance(client.Player.ID)
	if err != nil {
		log.Printf("Error fetching ledger balance for %s: %v\n", client.Player.ID, err)
		msg, _ := messages.GenerateGenericMessage("error", "error fetching balance.")
		client.WriteChan <- msg
		return
	}
	msg, err := messages.GenerateBalanceUpdateMessage(balance)
	if err != nil {
		log.Printf("Error generating balance update: %v\n", err)
		return
	}
	client.WriteChan <- msg
}

func handleHistory(client *Client) {
	if msg := buildCrashHistoryMessage(); msg != nil {
		client.WriteChan <- msg
	}
}

// buildCrashHistoryMessage assembles the public tape of recent crash
// points from the Redis list.
func buildCrashHistoryMessage() []byte {
	raw, err := redisClient.GetCrashHistory()
	if err != nil {
		log.Printf("[wsapi] - Failed to fetch crash history: %v\n", err)
		return nil
	}
	entries := make([]messages.CrashHistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry messages.CrashHistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	msg, err := messages.GenerateCrashHistoryMessage(entries)
	if err != nil {
		log.Printf("[wsapi] - Failed to generate crash history message: %v\n", err)
		return nil
	}
	return msg
}

func handleClientDisconnect(client *Client) {
	clientsMutex.Lock()
	delete(clients, client.Player.ID)
	clientsMutex.Unlock()
	// Unsubscribe from Redis channels
	unsubscribeFromPlayerChannel(client)
	client.Player.UpdatePlayerStatus(models.StatusOffline)
	redisClient.UpdatePlayer(client.Player)
	client.closeWrite()
}
