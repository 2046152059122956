package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"bike_monitor/internal/app"
	"bike_monitor/internal/bot"
	"bike_monitor/internal/classifier"
	"bike_monitor/internal/config"
	"bike_monitor/internal/metrics"
	"bike_monitor/internal/scheduler"
	"bike_monitor/internal/storage"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log, closeLog, err := app.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		slog.Error("create logger", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	loc, _ := cfg.Location()

	central, err := config.LoadCentral(cfg.CentralConfigPath)
	if err != nil {
		log.Error("load central config", "path", cfg.CentralConfigPath, "error", err)
		os.Exit(1)
	}
	intervals, err := central.Timing.Intervals()
	if err != nil {
		log.Error("build interval table", "error", err)
		os.Exit(1)
	}

	paths := os.Args[1:]
	if len(paths) == 0 {
		paths = []string{"configs"}
	}
	monitorCfgs, err := app.LoadMonitors(paths, cfg.CentralConfigPath)
	if err != nil {
		log.Error("load monitor configs", "paths", paths, "error", err)
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	met := metrics.New()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	env := app.Env{
		Config:     cfg,
		Central:    central,
		Store:      store,
		Notifier:   b,
		Metrics:    met,
		Classifier: classifier.NewOpenAI(cfg.OpenAIKey, app.ClassifierSettings(central), log),
		Location:   loc,
		HTTP:       app.NewHTTPClient(),
	}

	monitors := make([]scheduler.Monitor, 0, len(monitorCfgs))
	for _, mc := range monitorCfgs {
		m, err := app.NewMonitor(ctx, mc, env, log)
		if err != nil {
			log.Error("create monitor", "monitor", mc.Name, "error", err)
			os.Exit(1)
		}
		if mc.InitBuffer && m.Status().WindowSize == 0 {
			if _, err := m.Seed(ctx); err != nil {
				log.Warn("seed window, first cycle will seed instead", "monitor", mc.Name, "error", err)
			}
		}
		monitors = append(monitors, m)
	}

	sched := scheduler.New(monitors, intervals, log)
	sched.SetDelays(central.Timing.MonitorDelayDuration(), central.Timing.StartupDelayDuration())
	b.SetController(sched)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, met.Handler(), log); err != nil {
				log.Error("metrics server", "error", err)
			}
		}()
	}

	log.Info("starting monitor", "monitors", len(monitors), "central_config", central.Path)
	b.Announce(ctx, bot.FormatStartup(sched.Statuses(), time.Now().In(loc)))

	go sched.Run(ctx)

	b.Run(ctx)

	b.Announce(context.WithoutCancel(ctx), bot.FormatShutdown(time.Now().In(loc)))
	log.Info("monitor stopped")
}
