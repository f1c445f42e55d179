package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"parlour/internal/auth"
	"parlour/internal/config"
	"parlour/internal/logger"
	"parlour/internal/seed"
	"parlour/internal/store"
)

// Seeder loads the demo accounts, staff and tasks into the configured store.
func main() {
	configFile := flag.String("config", "", "optional YAML config file")
	reset := flag.Bool("reset", false, "purge every record before seeding")
	flag.Parse()

	cfg := config.Load(*configFile)
	logger.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	url := cfg.MongoURI
	if cfg.StoreBackend == "postgres" {
		url = cfg.DatabaseURL
	}
	st, err := store.Open(ctx, cfg.StoreBackend, url, cfg.MongoDB)
	if err != nil {
		slog.Error("store connect failed", "err", err)
		os.Exit(1)
	}
	defer st.Close(context.Background())

	res, err := seed.Run(ctx, st, auth.NewHasher(cfg.BcryptCost), *reset)
	if err != nil {
		slog.Error("seed failed", "err", err)
		os.Exit(1)
	}
	if res.Skipped {
		slog.Info("nothing to do; rerun with -reset to replace existing data")
	}
}
