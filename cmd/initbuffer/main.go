// Command initbuffer fills the window of each monitor from its first result
// pages without sending notifications.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bike_monitor/internal/app"
	"bike_monitor/internal/config"
	"bike_monitor/internal/storage"
)

func main() {
	force := flag.Bool("force", false, "seed windows that already hold listings")
	flag.Parse()

	config.LoadDotEnv()

	log, closeLog, err := app.NewLogger(os.Getenv("LOG_LEVEL"), "")
	if err != nil {
		slog.Error("create logger", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	centralPath := os.Getenv("CENTRAL_CONFIG")
	if centralPath == "" {
		centralPath = "configs/centralized-config.json"
	}
	paths := flag.Args()
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	monitorCfgs, err := app.LoadMonitors(paths, centralPath)
	if err != nil {
		log.Error("load monitor configs", "paths", paths, "error", err)
		os.Exit(1)
	}

	env := app.Env{Config: &config.Config{ChromeBin: os.Getenv("CHROME_BIN")}, HTTP: app.NewHTTPClient()}
	if usesDatabase(monitorCfgs) {
		dbPath := os.Getenv("DATABASE_PATH")
		if dbPath == "" {
			dbPath = "./data/monitor.db"
		}
		store, err := storage.NewSQLite(dbPath)
		if err != nil {
			log.Error("open database", "path", dbPath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = store.Close() }()
		env.Store = store
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	failed := 0
	for _, mc := range monitorCfgs {
		m, err := app.NewMonitor(ctx, mc, env, log)
		if err != nil {
			log.Error("create monitor", "monitor", mc.Name, "error", err)
			failed++
			continue
		}
		if size := m.Status().WindowSize; size > 0 && !*force {
			log.Info("window already seeded, skipping", "monitor", mc.Name, "size", size)
			continue
		}
		n, err := m.Seed(ctx)
		if err != nil {
			log.Error("seed window", "monitor", mc.Name, "error", err)
			failed++
			continue
		}
		log.Info("window seeded", "monitor", mc.Name, "added", n)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

func usesDatabase(cfgs []*config.Monitor) bool {
	for _, c := range cfgs {
		if c.SnapshotBackend == config.BackendSQLite {
			return true
		}
	}
	return false
}
