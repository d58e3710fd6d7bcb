package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/chaynik/teabot/pkg/bot"
	"github.com/chaynik/teabot/pkg/caption"
	"github.com/chaynik/teabot/pkg/logging"
	"github.com/chaynik/teabot/pkg/policy"
	"github.com/chaynik/teabot/pkg/stats"
	"github.com/chaynik/teabot/pkg/store"
	"github.com/chaynik/teabot/pkg/version"
)

func main() {
	configPath := flag.String("config", "teabot.yaml", "YAML configuration file path")
	dbPath := flag.String("db", "", "SQLite database file path (overrides config)")
	metricsAddr := flag.String("metrics", "", "HTTP bind address for Prometheus /metrics (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: "+logging.LevelNames()+" (overrides config)")
	logFormat := flag.String("log-format", "", "Log format: text or json (overrides config)")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Full())
		return
	}

	cfg, err := bot.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	// Configure structured logging
	if err := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("load timezone", "err", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()

	st, err := store.New(cfg.DBPath, loc, clock)
	if err != nil {
		slog.Error("open database", "err", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	rules := cfg.Rules(loc)
	engine := policy.New(rules, st, clock)
	reporter := stats.New(rules, st, clock)

	b, err := bot.New(cfg, bot.Dependencies{
		Engine:   engine,
		Reporter: reporter,
		Quotes:   caption.LoadQuotes(cfg.QuotesFile),
	})
	if err != nil {
		slog.Error("start bot", "err", err)
		os.Exit(1)
	}

	slog.Info("starting TeaBot", "version", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Run(ctx); err != nil {
		slog.Error("bot error", "err", err)
		os.Exit(1)
	}
}
