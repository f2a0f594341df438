package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Lavizord/crash-server/internal/config"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/postgrescli"
	"github.com/Lavizord/crash-server/internal/redisdb"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

var pid int
var postgresClient *postgrescli.PostgresCli
var redisClient *redisdb.RedisClient
var name = "restapiworker"

func init() {
	pid = os.Getpid()
	config.LoadConfig()

	redisAddr := config.Cfg.Redis.Addr
	client, err := redisdb.NewRedisClient(redisAddr)
	if err != nil {
		log.Fatalf("[%s-Redis] Error initializing Redis client: %v\n", name, err)
	}
	redisClient = client

	sqlcliente, err := postgrescli.NewPostgresCli(
		config.Cfg.Postgres.User,
		config.Cfg.Postgres.Password,
		config.Cfg.Postgres.DBName,
		config.Cfg.Postgres.Host,
		config.Cfg.Postgres.Port,
	)
	if err != nil {
		log.Fatalf("[%s-PostgreSQL] Error initializing POSTGRES client: %v\n", name, err)
	}
	postgresClient = sqlcliente
}

type sessionRequest struct {
	PlayerName    string `json:"player_name"`
	Currency      string `json:"currency"`
	WalletAddress string `json:"wallet_address"`
	Demo          bool   `json:"demo"`
}

type sessionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Token     string `json:"token,omitempty"`
}

// sessionHandler issues a playable session. The ws connection presents
// the returned id and token as query params.
func sessionHandler(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, sessionResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}
	if req.PlayerName == "" || req.Currency == "" {
		respondWithJSON(w, http.StatusBadRequest, sessionResponse{
			Success: false,
			Message: "Player name and currency are required",
		})
		return
	}

	session := &models.Session{
		ID:            models.GenerateUUID(),
		Token:         models.GenerateUUID(),
		PlayerName:    req.PlayerName,
		Currency:      req.Currency,
		WalletAddress: req.WalletAddress,
		Demo:          req.Demo,
		CreatedAt:     time.Now().UTC(),
		ExpiresAt:     time.Now().UTC().Add(12 * time.Hour),
	}
	if err := redisClient.AddSession(session); err != nil {
		respondWithJSON(w, http.StatusInternalServerError, sessionResponse{
			Success: false,
			Message: fmt.Sprintf("Failed to store session: %v", err),
		})
		return
	}
	respondWithJSON(w, http.StatusOK, sessionResponse{
		Success:   true,
		SessionID: session.ID,
		Token:     session.Token,
	})
}

type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

func adminLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if req.User != config.Cfg.Admin.User || req.Password != config.Cfg.Admin.Password {
		respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}
	claims := jwt.MapClaims{
		"sub": req.User,
		"exp": time.Now().Add(8 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Cfg.Admin.JWTSecret))
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to sign token"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"token": signed})
}

// adminAuth wraps the protected endpoints with bearer token validation.
func adminAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "Missing bearer token"})
			return
		}
		tokenStr := strings.TrimPrefix(auth, "Bearer ")
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(config.Cfg.Admin.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			respondWithJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid token"})
			return
		}
		next(w, r)
	}
}

// houseHandler exposes the live engine state for the operator
// dashboard: tier, custody balance, the current round and open stake.
func houseHandler(w http.ResponseWriter, r *http.Request) {
	state, err := redisClient.GetCurrentState()
	if err != nil {
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"error": fmt.Sprintf("No live state: %v", err)})
		return
	}
	respondWithJSON(w, http.StatusOK, state)
}

func roundsHandler(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	rounds, err := postgresClient.FetchRecentRounds(limit)
	if err != nil {
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{"error": fmt.Sprintf("Failed to fetch rounds: %v", err)})
		return
	}
	respondWithJSON(w, http.StatusOK, rounds)
}

func pendingDepositsHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]int64{
		"pending_deposits": redisClient.CountPendingDeposits(),
	})
}

// Utility function to respond with JSON
func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func main() {
	router := mux.NewRouter()
	router.HandleFunc("/session", sessionHandler).Methods("POST")
	router.HandleFunc("/admin/login", adminLoginHandler).Methods("POST")
	router.HandleFunc("/admin/house", adminAuth(houseHandler)).Methods("GET")
	router.HandleFunc("/admin/rounds", adminAuth(roundsHandler)).Methods("GET")
	router.HandleFunc("/admin/deposits/pending", adminAuth(pendingDepositsHandler)).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)

	port := 8090
	if ports := config.Cfg.Services["restapiworker"].Ports; len(ports) > 0 {
		port = ports[0]
	}
	addr := fmt.Sprintf(":%d", port)
	log.Printf("Server started on %s", addr)
	log.Fatal(http.ListenAndServe(addr, handler))
}
