package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lavizord/crash-server/internal/config"
	"github.com/Lavizord/crash-server/internal/engine"
	"github.com/Lavizord/crash-server/internal/ledgercli"
	"github.com/Lavizord/crash-server/internal/messages"
	"github.com/Lavizord/crash-server/internal/models"
	"github.com/Lavizord/crash-server/internal/postgrescli"
	"github.com/Lavizord/crash-server/internal/redisdb"
)

var pid int
var redisClient *redisdb.RedisClient
var postgresClient *postgrescli.PostgresCli
var ledgerClient *ledgercli.Client
var eng *engine.Engine
var name = "CrashWorker"

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

	ledgerClient = ledgercli.NewClient(config.Cfg.Ledger.BaseUrl, config.Cfg.Ledger.APIKey)
}

func main() {
	cfg := engineConfig()
	storage := engine.NewStorage(redisClient, postgresClient)
	eng = engine.New(cfg, ledgerClient, storage, redisClient)

	if err := eng.RefreshHouseBalance(); err != nil {
		log.Printf("[%s-%d] - Initial house balance fetch failed, starting on cache: %v\n", name, pid, err)
	}
	if err := eng.Restore(time.Now()); err != nil {
		log.Printf("[%s-%d] - Snapshot restore failed: %v\n", name, pid, err)
	}

	go processPlaceBets()
	go processCashOuts()
	go refreshHouseBalance(cfg.HouseBalanceTTL)
	go tickLoop(cfg.TickInterval)

	log.Printf("[%s-%d] - Round engine running, waiting for bet commands...\n", name, pid)
	waitForShutdown()
}

// engineConfig starts from the engine defaults and applies the service
// overrides from the deploy config.
func engineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	svc, ok := config.Cfg.Services["crashworker"]
	if !ok {
		return cfg
	}
	if svc.TickMs > 0 {
		cfg.TickInterval = time.Duration(svc.TickMs) * time.Millisecond
	}
	if svc.WaitingSeconds > 0 {
		cfg.WaitingTicks = int(time.Duration(svc.WaitingSeconds) * time.Second / cfg.TickInterval)
	}
	if svc.HouseAccount != "" {
		cfg.HouseAccount = svc.HouseAccount
	}
	return cfg
}

func tickLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for now := range ticker.C {
		eng.Tick(now)
	}
}

func refreshHouseBalance(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		if err := eng.RefreshHouseBalance(); err != nil {
			log.Printf("[%s-%d] - (House Balance) - %v\n", name, pid, err)
		}
	}
}

func processPlaceBets() {
	for {
		betData, err := redisClient.BLPopGeneric(redisdb.PlaceBetQueue, 0) // Block
		if err != nil {
			log.Printf("[%s-%d] - (Process Place Bets) - Error retrieving bet data: %v\n", name, pid, err)
			continue
		}
		if len(betData) < 2 {
			log.Printf("[%s-%d] - (Process Place Bets) - Unexpected BLPop result: %+v\n", name, pid, betData)
			continue
		}

		var req messages.PlaceBetRequest
		if err := json.Unmarshal([]byte(betData[1]), &req); err != nil {
			log.Printf("[%s-%d] - (Process Place Bets) - JSON Unmarshal Error: %v\n", name, pid, err)
			continue
		}

		newBalance, err := eng.PlaceBet(req.UserID, req.PlayerName, models.ToMicros(req.Amount))
		result := messages.BetResult{Success: err == nil}
		if err != nil {
			result.Reason = engine.ReasonFor(err)
			log.Printf("[%s-%d] - (Process Place Bets) - Rejected bet from %s: %v\n", name, pid, req.UserID, err)
		} else {
			result.Balance = models.ToUnits(newBalance)
		}
		publishToPlayer(req.UserID, "bet_result", result)
	}
}

func processCashOuts() {
	for {
		cashData, err := redisClient.BLPopGeneric(redisdb.CashOutQueue, 0) // Block
		if err != nil {
			log.Printf("[%s-%d] - (Process Cash Outs) - Error retrieving cash out data: %v\n", name, pid, err)
			continue
		}
		if len(cashData) < 2 {
			log.Printf("[%s-%d] - (Process Cash Outs) - Unexpected BLPop result: %+v\n", name, pid, cashData)
			continue
		}

		var req messages.CashOutRequest
		if err := json.Unmarshal([]byte(cashData[1]), &req); err != nil {
			log.Printf("[%s-%d] - (Process Cash Outs) - JSON Unmarshal Error: %v\n", name, pid, err)
			continue
		}

		payout, multiplier, newBalance, err := eng.CashOut(req.UserID)
		result := messages.BetResult{Success: err == nil}
		if err != nil {
			result.Reason = engine.ReasonFor(err)
			log.Printf("[%s-%d] - (Process Cash Outs) - Rejected cash out from %s: %v\n", name, pid, req.UserID, err)
		} else {
			result.Balance = models.ToUnits(newBalance)
			result.Multiplier = multiplier
			result.Payout = models.ToUnits(payout)
		}
		publishToPlayer(req.UserID, "cash_out_result", result)
	}
}

func publishToPlayer(userID, command string, result messages.BetResult) {
	msg, err := messages.GenerateBetResultMessage(command, result)
	if err != nil {
		log.Printf("[%s-%d] - Failed to generate %s message: %v\n", name, pid, command, err)
		return
	}
	if err := redisClient.Publish(redisdb.GetPlayerPubSubChannelByID(userID), msg); err != nil {
		log.Printf("[%s-%d] - Failed to publish %s to player %s: %v\n", name, pid, command, userID, err)
	}
}

// waitForShutdown blocks on SIGINT/SIGTERM, then freezes the engine and
// persists the recovery snapshot before exiting.
func waitForShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Printf("[%s-%d] - Received %s, persisting shutdown snapshot...\n", name, pid, sig)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := eng.Shutdown(ctx); err != nil {
		log.Printf("[%s-%d] - Shutdown snapshot failed: %v\n", name, pid, err)
		os.Exit(1)
	}
	postgresClient.Close()
	log.Printf("[%s-%d] - Shutdown complete.\n", name, pid)
}
