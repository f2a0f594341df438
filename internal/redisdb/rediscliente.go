package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Lavizord/crash-server/internal/models"

	"github.com/redis/go-redis/v9"
)

type RedisClient struct {
	Client        *redis.Client
	Subscriptions map[string]*redis.PubSub // Stores active subscriptions per channel
	mu            sync.Mutex
}

func NewRedisClient(addr string) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	// check connection
	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to connect to Redis at %s: %w", addr, err)
	}
	return &RedisClient{
		Client:        client,
		Subscriptions: make(map[string]*redis.PubSub),
	}, nil
}

// RPushGeneric - Push a raw payload onto a worker queue.
func (r *RedisClient) RPushGeneric(queue string, data []byte) error {
	return r.Client.RPush(context.Background(), queue, string(data)).Err()
}

// BLPopGeneric - Block on a worker queue until a payload arrives.
func (r *RedisClient) BLPopGeneric(queue string, timeoutSecond int) ([]string, error) {
	result, err := r.Client.BLPop(context.Background(), time.Duration(timeoutSecond)*time.Second, queue).Result()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *RedisClient) Publish(channel string, message []byte) error {
	err := r.Client.Publish(context.Background(), channel, message).Err()
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to publish message: %w", err)
	}
	return nil
}

func (r *RedisClient) PublishToPlayerID(playerID string, message string) error {
	return r.Client.Publish(context.Background(), "player:"+playerID, message).Err()
}

func (r *RedisClient) Subscribe(channel string, messageHandler func(string)) {
	r.mu.Lock()
	if _, exists := r.Subscriptions[channel]; exists {
		r.mu.Unlock()
		log.Println("Already subscribed to", channel)
		return
	}
	pubsub := r.Client.Subscribe(context.Background(), channel)
	r.Subscriptions[channel] = pubsub
	r.mu.Unlock()

	go func() {
		for msg := range pubsub.Channel() {
			messageHandler(msg.Payload)
		}
	}()
}

func (r *RedisClient) Unsubscribe(channel string) {
	r.mu.Lock()
	pubsub, exists := r.Subscriptions[channel]
	if !exists {
		r.mu.Unlock()
		log.Println("Not subscribed to", channel)
		return
	}
	delete(r.Subscriptions, channel)
	r.mu.Unlock()

	if err := pubsub.Unsubscribe(context.Background(), channel); err != nil {
		log.Println("Error unsubscribing from", channel, ":", err)
	}
}

func (r *RedisClient) StartSessionCleanup(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			r.cleanupExpiredSessions()
		}
	}()
}

func (r *RedisClient) cleanupExpiredSessions() {
	ctx := context.Background()
	iter := r.Client.Scan(ctx, 0, "session:*", 0).Iterator()

	for iter.Next(ctx) {
		sessionKey := iter.Val()
		data, err := r.Client.HGet(ctx, sessionKey, "data").Result()
		if err != nil {
			log.Printf("[RedisClient] (Session) - Failed to fetch session data: %v\n", err)
			continue
		}
		var session models.Session
		if err := json.Unmarshal([]byte(data), &session); err != nil {
			log.Printf("[RedisClient] (Session) - Failed to deserialize session: %v\n", err)
			continue
		}
		if session.IsTokenExpired() {
			parts := strings.Split(sessionKey, ":")
			if len(parts) > 1 {
				r.RemoveSession(parts[1])
			}
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[RedisClient] (Session) - Error iterating Redis keys: %v\n", err)
	}
}
