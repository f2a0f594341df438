package messages

// validCommands is the allow-list for everything that crosses the
// websocket or a Redis queue. Client-to-server commands and
// server-to-client events share the same envelope.
var validCommands = map[string]bool{
	// client -> server
	"place_bet":   true,
	"cash_out":    true,
	"get_balance": true,
	"history":     true,
	"ping":        true,

	// server -> client
	"pong":            true,
	"connected":       true,
	"message":         true,
	"balance_update":  true,
	"bet_result":      true,
	"cash_out_result": true,
	"round_started":   true,
	"countdown":       true,
	"round_tick":      true,
	"bet_placed":      true,
	"cashed_out":      true,
	"round_crashed":   true,
	"crash_history":   true,
}
