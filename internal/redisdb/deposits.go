package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
)

const pendingDepositsKey = "crash:pending_deposits"

// PendingDeposit is an on-chain deposit whose source address did not
// match any registered user yet. It is parked here until the owning
// user registers their wallet address.
type PendingDeposit struct {
	FromAddress  string `json:"from_address"`
	AmountMicros int64  `json:"amount_micros"`
	TxRef        string `json:"tx_ref"`
}

func (r *RedisClient) ParkPendingDeposit(dep PendingDeposit) error {
	data, err := json.Marshal(dep)
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to serialize pending deposit: %v", err)
	}
	return r.Client.RPush(context.Background(), pendingDepositsKey, string(data)).Err()
}

func (r *RedisClient) PendingDeposits() ([]PendingDeposit, error) {
	entries, err := r.Client.LRange(context.Background(), pendingDepositsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("[RedisClient] - failed to list pending deposits: %v", err)
	}
	deposits := make([]PendingDeposit, 0, len(entries))
	for _, entry := range entries {
		var dep PendingDeposit
		if err := json.Unmarshal([]byte(entry), &dep); err != nil {
			continue
		}
		deposits = append(deposits, dep)
	}
	return deposits, nil
}

func (r *RedisClient) RemovePendingDeposit(dep PendingDeposit) error {
	data, err := json.Marshal(dep)
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to serialize pending deposit: %v", err)
	}
	removed, err := r.Client.LRem(context.Background(), pendingDepositsKey, 1, string(data)).Result()
	if err != nil {
		return fmt.Errorf("[RedisClient] - failed to remove pending deposit: %v", err)
	}
	if removed == 0 {
		return fmt.Errorf("[RedisClient] - pending deposit not found: %s", dep.TxRef)
	}
	return nil
}

func (r *RedisClient) CountPendingDeposits() int64 {
	count, err := r.Client.LLen(context.Background(), pendingDepositsKey).Result()
	if err != nil {
		return 0
	}
	return count
}
