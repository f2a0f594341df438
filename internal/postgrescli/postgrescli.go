package postgrescli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Lavizord/crash-server/internal/models"

	_ "github.com/lib/pq"
)

type PostgresCli struct {
	DB *sql.DB
}

func NewPostgresCli(user, password, dbname, host, port string) (*PostgresCli, error) {
	connStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable", user, password, dbname, host, port)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// Ping to make sure the connection is valid
	err = db.Ping()
	if err != nil {
		return nil, err
	}

	return &PostgresCli{DB: db}, nil
}

// Close method to close the database connection
func (pc *PostgresCli) Close() {
	pc.DB.Close()
}

// SaveRound archives a finished round together with its bets. Bets go
// in as JSONB; the seed is stored so any player can re-derive the base
// draw after the fact.
func (pc *PostgresCli) SaveRound(round models.Round, bets []*models.Bet, reason string) error {
	betsJSON, err := json.Marshal(bets)
	if err != nil {
		return fmt.Errorf("error marshalling bets: %w", err)
	}

	query := `
		INSERT INTO rounds (
			ID, Sequence, Seed, SeedHash, StartTime, CrashedAt, CrashPoint, TotalStake, PlayerCount, Bets, EndReason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	var roundID string
	err = pc.DB.QueryRow(
		query,
		round.ID,
		round.Sequence,
		round.Seed,
		round.SeedHash,
		round.StartTime,
		round.CrashedAt,
		round.CrashPoint,
		round.TotalStake,
		round.PlayerCount,
		betsJSON,
		reason,
	).Scan(&roundID)
	if err != nil {
		return fmt.Errorf("error inserting round: %w", err)
	}
	return nil
}

func (pc *PostgresCli) SaveTransaction(transaction models.Transaction) error {
	query := `
		INSERT INTO transactions (
			TransactionID, UserID, SessionID, Type, Amount, Currency, RoundID, Status, Description, FinalBalance, Multiplier, Timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING TransactionID
	`

	var transactionID string
	err := pc.DB.QueryRow(
		query,
		transaction.ID,
		transaction.UserID,
		transaction.SessionID,
		transaction.Type,
		transaction.Amount,
		transaction.Currency,
		transaction.RoundID,
		transaction.Status,
		transaction.Description,
		transaction.FinalBalance,
		transaction.Multiplier,
		transaction.Timestamp,
	).Scan(&transactionID)
	if err != nil {
		return fmt.Errorf("error inserting transaction: %w", err)
	}
	return nil
}

// SaveSystemState mirrors the recovery snapshot into the singular
// system-state row, keyed for most-recent retrieval on restart.
func (pc *PostgresCli) SaveSystemState(snapshot []byte) error {
	query := `
		INSERT INTO system_state (ID, Snapshot, SavedAt)
		VALUES (1, $1, $2)
		ON CONFLICT (ID) DO UPDATE SET Snapshot = $1, SavedAt = $2
	`
	_, err := pc.DB.Exec(query, snapshot, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("error upserting system state: %w", err)
	}
	return nil
}

func (pc *PostgresCli) FetchSystemState() ([]byte, time.Time, error) {
	var snapshot []byte
	var savedAt time.Time
	err := pc.DB.QueryRow(`SELECT Snapshot, SavedAt FROM system_state WHERE ID = 1`).Scan(&snapshot, &savedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, fmt.Errorf("error fetching system state: %w", err)
	}
	return snapshot, savedAt, nil
}

type RoundSummary struct {
	ID          string    `json:"id"`
	Sequence    int       `json:"sequence"`
	CrashPoint  float64   `json:"crash_point"`
	TotalStake  int64     `json:"total_stake"`
	PlayerCount int       `json:"player_count"`
	EndReason   string    `json:"end_reason"`
	CrashedAt   time.Time `json:"crashed_at"`
}

// FetchRecentRounds serves the admin view of the archive.
func (pc *PostgresCli) FetchRecentRounds(limit int) ([]RoundSummary, error) {
	rows, err := pc.DB.Query(`
		SELECT ID, Sequence, CrashPoint, TotalStake, PlayerCount, EndReason, CrashedAt
		FROM rounds
		ORDER BY CrashedAt DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("error fetching recent rounds: %w", err)
	}
	defer rows.Close()

	var out []RoundSummary
	for rows.Next() {
		var s RoundSummary
		if err := rows.Scan(&s.ID, &s.Sequence, &s.CrashPoint, &s.TotalStake, &s.PlayerCount, &s.EndReason, &s.CrashedAt); err != nil {
			return nil, fmt.Errorf("error scanning round row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
