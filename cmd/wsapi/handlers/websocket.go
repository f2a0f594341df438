package handlers

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Lavizord/crash-server/internal/config"
	"github.com/Lavizord/crash-server/internal/ledgercli"
	"github.com/Lavizord/crash-server/internal/messages"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/redisdb"

	"github.com/gorilla/websocket"
)

var redisClient *redisdb.RedisClient
var ledgerClient *ledgercli.Client

var (
	clients      = make(map[string]*Client) // Store connected clients by player ID
	clientsMutex = sync.Mutex{}             // Protects the map
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait    = 10 * time.Second
	pongWait     = 3 * time.Second
	pingInterval = 2 * time.Second // must be < pongWait
)

func init() {
	config.LoadConfig()
	redisAddr := config.Cfg.Redis.Addr
	client, err := redisdb.NewRedisClient(redisAddr)
	if err != nil {
		log.Fatalf("[Redis] Error initializing Redis client: %v", err)
	}
	redisClient = client
	ledgerClient = ledgercli.NewClient(config.Cfg.Ledger.BaseUrl, config.Cfg.Ledger.APIKey)
	go subscribeToEventsChannel() // Global round events, fanned out to every active ws connection.
}

// Client is one live websocket connection. All writes go through
// WriteChan so the write pump is the only goroutine touching the conn.
type Client struct {
	Player    *models.Player
	Conn      *websocket.Conn
	WriteChan chan []byte
	closeOnce sync.Once
}

func (c *Client) startWritePump(onClose func()) {
	go func() {
		pingTicker := time.NewTicker(pingInterval)
		defer func() {
			pingTicker.Stop()
			c.Conn.Close()
			onClose()
		}()
		for {
			select {
			case msg, ok := <-c.WriteChan:
				c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				if !ok {
					c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-pingTicker.C:
				c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()
}

func (c *Client) closeWrite() {
	c.closeOnce.Do(func() {
		close(c.WriteChan)
	})
}

func HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	sessionID := r.URL.Query().Get("sessionid")
	currency := r.URL.Query().Get("currency")
	session, err := FetchAndValidateSession(token, sessionID, currency)
	if err != nil {
		http.Error(w, fmt.Sprintf("Unauthorized: token[%v], sessionid[%v], currency[%v]", token, sessionID, currency), http.StatusUnauthorized)
		if session != nil {
			redisClient.RemoveSession(session.ID)
		}
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Failed to upgrade:", err)
		return
	}

	existingPlayer, _ := redisClient.GetPlayer(sessionID)
	if existingPlayer != nil && existingPlayer.Status != models.StatusOffline {
		log.Println("Session with active player")
		conn.Close()
		return
	}

	player := &models.Player{
		ID:            sessionID, // player id = session id
		Token:         session.Token,
		SessionID:     session.ID,
		Name:          session.PlayerName,
		Currency:      currency,
		WalletAddress: session.WalletAddress,
		Status:        models.StatusOnline,
	}
	redisClient.AddPlayer(player)

	client := &Client{
		Player:    player,
		Conn:      conn,
		WriteChan: make(chan []byte, 64),
	}
	client.startWritePump(func() {
		handleClientDisconnect(client)
	})

	clientsMutex.Lock()
	clients[player.ID] = client
	clientsMutex.Unlock()

	subscriptionReady := make(chan bool)
	go subscribeToPlayerChannel(client, subscriptionReady)
	<-subscriptionReady // Wait for the subscription to be ready

	balance, err := ledgerClient.GetBalance(player.ID)
	if err != nil {
		log.Printf("Failed to fetch ledger balance: %v", err)
		handleClientDisconnect(client)
		return
	}
	msg, err := messages.GenerateConnectedMessage(*player, balance)
	if err != nil {
		log.Printf("Failed to generate connected message: %v", err)
		handleClientDisconnect(client)
		return
	}
	client.WriteChan <- msg

	// New connections get the recent crash tape up front so the client
	// can draw the history strip without a separate request.
	if historyMsg := buildCrashHistoryMessage(); historyMsg != nil {
		client.WriteChan <- historyMsg
	}

	go handleMessages(client)
}

func subscribeToPlayerChannel(client *Client, ready chan bool) {
	redisClient.Subscribe(redisdb.GetPlayerPubSubChannel(*client.Player), func(message string) {
		if message == fmt.Sprintf("disconnect:%s", client.Player.ID) {
			log.Printf("[wsapi] - Disconnecting player: %s", client.Player.ID)
			client.Conn.Close()
			handleClientDisconnect(client)
		} else {
			client.WriteChan <- []byte(message)
		}
	})
	ready <- true // Notify that the subscription is ready
}

func subscribeToEventsChannel() {
	redisClient.Subscribe(redisdb.EventsChannel, func(message string) {
		if _, err := messages.ParseMessage([]byte(message)); err != nil {
			log.Println("[wsapi] - Failed to parse broadcast message:", err)
			return
		}
		clientsMutex.Lock()
		defer clientsMutex.Unlock()
		for _, client := range clients {
			select {
			case client.WriteChan <- []byte(message):
			default:
				// slow consumer, the round stream must not block the hub
			}
		}
	})
}

func unsubscribeFromPlayerChannel(client *Client) {
	redisClient.Unsubscribe(redisdb.GetPlayerPubSubChannel(*client.Player))
}

func FetchAndValidateSession(token, sessionID, currency string) (*models.Session, error) {
	session, err := redisClient.GetSessionByID(sessionID)
	if err != nil {
		log.Printf("[FetchAndValidateSession] - Error fetching session from Redis: %v\n", err)
		return nil, fmt.Errorf("[Session] - failed to fetch session: %v", err)
	}
	if session.Currency != currency {
		log.Printf("[FetchAndValidateSession] - Currency mismatch: expected %s, got %s\n", currency, session.Currency)
		return nil, fmt.Errorf("[Session] - currency mismatch: expected %s, got %s", currency, session.Currency)
	}
	if session.Token != token {
		log.Printf("[FetchAndValidateSession] - Token mismatch\n")
		return nil, fmt.Errorf("[Session] - token mismatch")
	}
	if session.Demo {
		return session, nil
	}
	if session.IsTokenExpired() {
		log.Printf("[FetchAndValidateSession] - Token expired\n")
		return nil, fmt.Errorf("[Session] - token expired")
	}
	return session, nil
}
