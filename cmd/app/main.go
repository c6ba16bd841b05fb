package main

import (
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"WhaleTrail/internal/di"
	"WhaleTrail/pkg/config"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	// Secrets (wallet key, RPC endpoints) come from the environment; .env is
	// optional and only used for local runs.
	_ = godotenv.Load()

	// Load config
	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s rpc=%s tracked_whales=%d", cfg.Environment, cfg.Solana.RPCURL, len(cfg.Whale.TrackedAddresses))

	// Wire DI: Initialize all dependencies
	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
