package main

import (
	"log"
	"os"
	"time"

	"github.com/Lavizord/crash-server/internal/config"
	"github.com/Lavizord/crash-server/internal/ledgercli"
	"github.com/Lavizord/crash-server/internal/messages"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/redisdb"
	"github.com/Lavizord/crash-server/internal/settlementrail"
)

var pid int
var redisClient *redisdb.RedisClient
var ledgerClient *ledgercli.Client
var railClient *settlementrail.Client
var name = "DepositWorker"

func init() {
	pid = os.Getpid()
	config.LoadConfig()
	redisAddr := config.Cfg.Redis.Addr
	client, err := redisdb.NewRedisClient(redisAddr)
	if err != nil {
		log.Fatalf("[%s-Redis] Error initializing Redis client: %v\n", name, err)
	}
	redisClient = client

	ledgerClient = ledgercli.NewClient(config.Cfg.Ledger.BaseUrl, config.Cfg.Ledger.APIKey)
	railClient = settlementrail.NewClient(config.Cfg.Rail.BaseUrl, config.Cfg.Rail.APIKey)
}

func main() {
	poll := time.Duration(config.Cfg.Rail.PollSeconds) * time.Second
	if poll <= 0 {
		poll = 15 * time.Second
	}
	log.Printf("[%s-%d] - Polling settlement rail every %s...\n", name, pid, poll)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		pollRail()
		retryParkedDeposits()
		<-ticker.C
	}
}

// pollRail pulls unacknowledged deposits off the rail and credits the
// matching player on the ledger. Deposits from unknown addresses are
// parked in Redis and retried until the address gets registered.
func pollRail() {
	deposits, err := railClient.PendingDeposits()
	if err != nil {
		log.Printf("[%s-%d] - (Poll Rail) - Error fetching pending deposits: %v\n", name, pid, err)
		return
	}
	for _, dep := range deposits {
		userID, err := railClient.ResolveAddress(dep.FromAddress)
		if err != nil {
			log.Printf("[%s-%d] - (Poll Rail) - Error resolving address %s: %v\n", name, pid, dep.FromAddress, err)
			continue
		}
		if userID == "" {
			log.Printf("[%s-%d] - (Poll Rail) - No owner for address %s, parking deposit %s\n", name, pid, dep.FromAddress, dep.TxRef)
			if err := redisClient.ParkPendingDeposit(redisdb.PendingDeposit{
				FromAddress:  dep.FromAddress,
				AmountMicros: dep.AmountMicros,
				TxRef:        dep.TxRef,
			}); err != nil {
				log.Printf("[%s-%d] - (Poll Rail) - Error parking deposit %s: %v\n", name, pid, dep.TxRef, err)
				continue
			}
			ackDeposit(dep.TxRef)
			continue
		}
		if creditDeposit(userID, dep.AmountMicros, dep.TxRef) {
			ackDeposit(dep.TxRef)
		}
	}
}

// retryParkedDeposits reattempts address resolution for deposits that
// arrived before their sender registered.
func retryParkedDeposits() {
	parked, err := redisClient.PendingDeposits()
	if err != nil {
		log.Printf("[%s-%d] - (Retry Parked) - Error listing parked deposits: %v\n", name, pid, err)
		return
	}
	for _, dep := range parked {
		userID, err := railClient.ResolveAddress(dep.FromAddress)
		if err != nil || userID == "" {
			continue
		}
		if creditDeposit(userID, dep.AmountMicros, dep.TxRef) {
			if err := redisClient.RemovePendingDeposit(dep); err != nil {
				log.Printf("[%s-%d] - (Retry Parked) - Error removing parked deposit %s: %v\n", name, pid, dep.TxRef, err)
			}
		}
	}
}

// creditDeposit moves the deposit onto the player's ledger balance. The
// rail tx ref doubles as the idempotency key, a replay is a no-op.
func creditDeposit(userID string, amountMicros int64, txRef string) bool {
	newBalance, err := ledgerClient.AtomicAdjustBalance(userID, amountMicros, models.TxDeposit, "", txRef)
	if err != nil {
		log.Printf("[%s-%d] - (Credit Deposit) - Error crediting %d to %s (tx %s): %v\n", name, pid, amountMicros, userID, txRef, err)
		return false
	}
	log.Printf("[%s-%d] - (Credit Deposit) - Credited %d micros to %s, balance now %d\n", name, pid, amountMicros, userID, newBalance)

	// If the player is connected, push the fresh balance.
	msg, err := messages.GenerateBalanceUpdateMessage(newBalance)
	if err == nil {
		redisClient.Publish(redisdb.GetPlayerPubSubChannelByID(userID), msg)
	}
	return true
}

func ackDeposit(txRef string) {
	if err := railClient.AckDeposit(txRef); err != nil {
		log.Printf("[%s-%d] - (Ack Deposit) - Error acking %s: %v\n", name, pid, txRef, err)
	}
}
