package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Lavizord/crash-server/internal/models"
)

func (r *RedisClient) AddSession(session *models.Session) error {
	ctx := context.Background()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[RedisClient] (Session) - failed to serialize session: %v", err)
	}
	// Use pipeline for atomic operations
	pipe := r.Client.TxPipeline()
	// 1. Store session data
	sessionKey := fmt.Sprintf("session:%s", session.ID)
	pipe.HSet(ctx, sessionKey, map[string]interface{}{
		"id":          session.ID,
		"token":       session.Token,
		"player_name": session.PlayerName,
		"currency":    session.Currency,
		"created_at":  session.CreatedAt.Format(time.RFC3339),
		"data":        string(data),
	})
	// 2. Create token->ID mapping to help fetch session by token
	tokenKey := fmt.Sprintf("session_token:%s", session.Token)
	pipe.Set(ctx, tokenKey, session.ID, 0)
	// Execute all operations atomically
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("[RedisClient] (Session) - failed to store session: %v", err)
	}
	return nil
}

func (r *RedisClient) RemoveSession(sessionID string) error {
	ctx := context.Background()
	sessionKey := fmt.Sprintf("session:%s", sessionID)

	token, err := r.Client.HGet(ctx, sessionKey, "token").Result()
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to retrieve session metadata: %v", err)
	}

	pipe := r.Client.TxPipeline()
	pipe.Del(ctx, sessionKey)
	pipe.Del(ctx, fmt.Sprintf("session_token:%s", token))
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to delete session data: %v", err)
	}
	return nil
}

func (r *RedisClient) GetSessionByID(sessionID string) (*models.Session, error) {
	ctx := context.Background()
	sessionKey := fmt.Sprintf("session:%s", sessionID)

	fields, err := r.Client.HMGet(ctx, sessionKey, "data").Result()
	if err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to retrieve session %s: %v", sessionID, err)
	}
	if fields[0] == nil {
		return nil, fmt.Errorf("[RedisClient] - session data not found for %s", sessionID)
	}

	var session models.Session
	data, ok := fields[0].(string)
	if !ok {
		return nil, fmt.Errorf("[RedisClient] - session data is not a valid string")
	}
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to unmarshal session data: %v", err)
	}
	return &session, nil
}

func (r *RedisClient) GetSessionByToken(token string) (*models.Session, error) {
	ctx := context.Background()
	tokenKey := fmt.Sprintf("session_token:%s", token)
	sessionID, err := r.Client.Get(ctx, tokenKey).Result()
	if err != nil {
		return nil, fmt.Errorf("[RedisClient] - session not found for token: %s", token)
	}
	return r.GetSessionByID(sessionID)
}
