package redisdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Lavizord/crash-server/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	currentStateKey  = "crash:current_state"
	snapshotKey      = "crash:snapshot"
	crashHistoryKey  = "crash:history"
	historyKeepCount = 50
)

// CurrentState is the live view of the engine, written by the
// crashworker on every state change and read by the admin api. It is a
// cache of in-memory state, never the source of truth for settlement.
type CurrentState struct {
	Round *models.Round      `json:"round,omitempty"`
	House *models.HouseState `json:"house"`
	Bets  []*models.Bet      `json:"bets,omitempty"`
}

func (r *RedisClient) SaveCurrentState(state *CurrentState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to serialize current state: %v", err)
	}
	return r.Client.Set(context.Background(), currentStateKey, data, 0).Err()
}

func (r *RedisClient) GetCurrentState() (*CurrentState, error) {
	data, err := r.Client.Get(context.Background(), currentStateKey).Result()
	if err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to get current state: %v", err)
	}
	var state CurrentState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to deserialize current state: %v", err)
	}
	return &state, nil
}

// SaveSnapshot persists the recovery snapshot written on shutdown.
func (r *RedisClient) SaveSnapshot(data []byte) error {
	return r.Client.Set(context.Background(), snapshotKey, data, 0).Err()
}

func (r *RedisClient) LoadSnapshot() ([]byte, error) {
	data, err := r.Client.Get(context.Background(), snapshotKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to load snapshot: %v", err)
	}
	return data, nil
}

func (r *RedisClient) ClearSnapshot() error {
	return r.Client.Del(context.Background(), snapshotKey).Err()
}

// PushCrashHistory keeps the short public tape of recent crash points.
func (r *RedisClient) PushCrashHistory(sequence int, crashPoint float64) error {
	entry, err := json.Marshal(map[string]interface{}{
		"sequence":    sequence,
		"crash_point": crashPoint,
	})
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to serialize history entry: %v", err)
	}
	ctx := context.Background()
	pipe := r.Client.TxPipeline()
	pipe.LPush(ctx, crashHistoryKey, entry)
	pipe.LTrim(ctx, crashHistoryKey, 0, historyKeepCount-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisClient) GetCrashHistory() ([]string, error) {
	entries, err := r.Client.LRange(context.Background(), crashHistoryKey, 0, historyKeepCount-1).Result()
	if err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to get crash history: %v", err)
	}
	return entries, nil
}

func (r *RedisClient) GetCrashHistoryCount() int {
	count, err := r.Client.LLen(context.Background(), crashHistoryKey).Result()
	if err != nil {
		return 0
	}
	return int(count)
}
