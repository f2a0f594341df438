package config

import (
	"encoding/json"
	"log"
	"os"
)

/*
	{
	"redis": {
		"addr": "redis:6379",
		"db": 0
	},
	"postgres": {
		"user": "crash",
		"password": "crash",
		"dbname": "crash",
		"host": "postgres",
		"port": "5432"
	},
	"ledger": {
		"base_url": "http://ledger:9000",
		"api_key": "..."
	},
	"rail": {
		"base_url": "http://chain-gateway:9100",
		"api_key": "...",
		"poll_seconds": 15
	},
	"admin": {
		"user": "admin",
		"password": "...",
		"jwt_secret": "..."
	},
	"services": {
		"wsapi": { "ports": [8080, 8081] },
		"restapiworker": { "ports": [8090] },
		"crashworker": {
			"tick_ms": 100,					// lifecycle tick while a round is ACTIVE
			"waiting_seconds": 10,			// betting window before lift-off
			"house_account": "house"
		},
		"depositworker": {}
	}
	}
*/

type Config struct {
	Redis struct {
		Addr string `json:"addr"`
		DB   int    `json:"db"`
	} `json:"redis"`
	Postgres struct {
		User     string `json:"user"`
		Password string `json:"password"`
		DBName   string `json:"dbname"`
		Host     string `json:"host"`
		Port     string `json:"port"`
	} `json:"postgres"`
	Ledger struct {
		BaseUrl string `json:"base_url"`
		APIKey  string `json:"api_key"`
	} `json:"ledger"`
	Rail struct {
		BaseUrl     string `json:"base_url"`
		APIKey      string `json:"api_key"`
		PollSeconds int    `json:"poll_seconds"`
	} `json:"rail"`
	Admin struct {
		User      string `json:"user"`
		Password  string `json:"password"`
		JWTSecret string `json:"jwt_secret"`
	} `json:"admin"`
	Services map[string]struct {
		Ports          []int  `json:"ports,omitempty"`
		TickMs         int    `json:"tick_ms,omitempty"`
		WaitingSeconds int    `json:"waiting_seconds,omitempty"`
		HouseAccount   string `json:"house_account,omitempty"`
	} `json:"services"`
}

// Global config instance
var Cfg Config

func LoadConfig() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("[config.go] - CONFIG_PATH not set")
	}

	file, err := os.Open(configPath)
	if err != nil {
		log.Fatalf("[config.go] - Error opening config file: %v", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&Cfg); err != nil {
		log.Fatalf("[config.go] - Error decoding JSON: %v", err)
	}
}
