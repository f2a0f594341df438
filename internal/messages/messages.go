package messages

import (
	"encoding/json"
	"fmt"

	"github.com/Lavizord/crash-server/internal/models"
)

type Message[T any] struct {
	Command string `json:"command"`
	Value   T      `json:"value,omitempty"`
}

type MessageSimple struct {
	Command string `json:"command"`
}

type GenericMessage struct {
	MessageType string `json:"message_type"`
	Message     string `json:"message"`
}

func EncodeMessage[T any](command string, value T) ([]byte, error) {
	msg := Message[T]{Command: command, Value: value}
	return json.Marshal(msg)
}

func DecodeRawMessage(data []byte) (*Message[json.RawMessage], error) {
	var msg Message[json.RawMessage]
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("[Message Parser - DecodeRawMessage] invalid message format: %w", err)
	}
	return &msg, nil
}

// Decode a Fully Typed Message
func DecodeTypedMessage[T any](data []byte) (*Message[T], error) {
	var msg Message[T]
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("[Message Parser - DecodeTypedMessage] invalid message format: %w", err)
	}
	return &msg, nil
}

func NewMessage[T any](command string, value T) ([]byte, error) {
	if !validCommands[command] {
		return nil, fmt.Errorf("[Message Parser - New Message] invalid command: %s", command)
	}
	message := map[string]interface{}{
		"command": command,
		"value":   value,
	}
	return json.Marshal(message)
}

func GenerateGenericMessage(msgtype string, msg string) ([]byte, error) {
	genericMsg := GenericMessage{
		MessageType: msgtype,
		Message:     msg,
	}
	return NewMessage("message", genericMsg)
}

// ParseMessage validates an inbound client message and its value shape
// before it is routed anywhere.
func ParseMessage(msgBytes []byte) (*Message[json.RawMessage], error) {
	msg, err := DecodeRawMessage(msgBytes)
	if err != nil {
		return nil, err
	}
	if !validCommands[msg.Command] {
		return nil, fmt.Errorf("[Message Parser] invalid command: %s", msg.Command)
	}

	// This switch is just to make sure we propperly serialize our value.
	switch msg.Command {
	case "place_bet":
		var value float64
		if err := json.Unmarshal(msg.Value, &value); err != nil {
			return nil, fmt.Errorf("[Message Parser] invalid value format for %s: %w", msg.Command, err)
		}
	}
	return msg, nil
}

// PlaceBetRequest travels on the crash:place_bet Redis queue from wsapi
// to the crashworker.
type PlaceBetRequest struct {
	UserID     string  `json:"user_id"`
	SessionID  string  `json:"session_id"`
	PlayerName string  `json:"player_name"`
	Amount     float64 `json:"amount"` // display units
}

// CashOutRequest travels on the crash:cash_out Redis queue.
type CashOutRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// BetResult is the structured reply published to the player channel for
// both place_bet and cash_out.
type BetResult struct {
	Success    bool    `json:"success"`
	Reason     string  `json:"reason,omitempty"`
	Balance    float64 `json:"balance,omitempty"` // display units
	Multiplier float64 `json:"multiplier,omitempty"`
	Payout     float64 `json:"payout,omitempty"` // display units
}

type ConnectedValue struct {
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Money      float64 `json:"money"`
	Status     string  `json:"status"`
}

func GenerateConnectedMessage(player models.Player, balance int64) ([]byte, error) {
	connectInfo := ConnectedValue{
		PlayerID:   player.ID,
		PlayerName: player.Name,
		Money:      models.ToUnits(balance),
		Status:     string(player.Status),
	}
	return NewMessage("connected", connectInfo)
}

func GenerateBetResultMessage(command string, result BetResult) ([]byte, error) {
	return NewMessage(command, result)
}

func GenerateBalanceUpdateMessage(balanceMicros int64) ([]byte, error) {
	return NewMessage("balance_update", models.ToUnits(balanceMicros))
}

// Helper function to marshal a value and ignore errors
func MustMarshal(v interface{}) json.RawMessage {
	bytes, _ := json.Marshal(v)
	return bytes
}
