package engine

import (
	"encoding/json"
	"fmt"

	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/postgrescli"
	"github.com/Lavizord/crash-server/internal/redisdb"
	"github.com/Lavizord/crash-server/logger"
)

// Storage wires the engine's Store to redis (live cache, snapshot,
// crash tape) and postgres (archive, snapshot mirror).
type Storage struct {
	Redis    *redisdb.RedisClient
	Postgres *postgrescli.PostgresCli
}

func NewStorage(redisClient *redisdb.RedisClient, pgClient *postgrescli.PostgresCli) *Storage {
	return &Storage{Redis: redisClient, Postgres: pgClient}
}

func (s *Storage) SaveState(state *redisdb.CurrentState) error {
	return s.Redis.SaveCurrentState(state)
}

func (s *Storage) ArchiveRound(round models.Round, bets []*models.Bet, reason string) error {
	return s.Postgres.SaveRound(round, bets, reason)
}

func (s *Storage) SaveTransaction(tx models.Transaction) error {
	return s.Postgres.SaveTransaction(tx)
}

// SaveSnapshot writes the recovery snapshot to redis and mirrors it to
// postgres. Redis is the one that must land; the mirror is best effort.
func (s *Storage) SaveSnapshot(snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("[Storage] - failed to serialize snapshot: %v", err)
	}
	if err := s.Redis.SaveSnapshot(data); err != nil {
		return err
	}
	if err := s.Postgres.SaveSystemState(data); err != nil {
		logger.Default.Warnf("[Storage] - failed to mirror snapshot to postgres: %v", err)
	}
	return nil
}

// LoadSnapshot reads the snapshot from redis, falling back to the
// postgres mirror when redis lost it.
func (s *Storage) LoadSnapshot() (*Snapshot, error) {
	data, err := s.Redis.LoadSnapshot()
	if err != nil {
		return nil, err
	}
	if data == nil {
		data, _, err = s.Postgres.FetchSystemState()
		if err != nil || data == nil {
			return nil, err
		}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("[Storage] - failed to parse snapshot: %v", err)
	}
	return &snap, nil
}

func (s *Storage) ClearSnapshot() error {
	return s.Redis.ClearSnapshot()
}

func (s *Storage) PushCrashHistory(sequence int, crashPoint float64) error {
	return s.Redis.PushCrashHistory(sequence, crashPoint)
}
