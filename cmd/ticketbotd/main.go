package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	apiPkg "github.com/marti95432/discordbot/internal/api"
	"github.com/marti95432/discordbot/internal/archive"
	"github.com/marti95432/discordbot/internal/config"
	"github.com/marti95432/discordbot/internal/connector"
	"github.com/marti95432/discordbot/internal/connector/discord"
	"github.com/marti95432/discordbot/internal/dispatch"
	"github.com/marti95432/discordbot/internal/flow"
	"github.com/marti95432/discordbot/internal/lifecycle"
	"github.com/marti95432/discordbot/internal/logbuf"
	"github.com/marti95432/discordbot/internal/scheduler"
	"github.com/marti95432/discordbot/internal/telemetry"
	"github.com/marti95432/discordbot/internal/ticket"
	"github.com/marti95432/discordbot/pkg/protocol"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "Path to a YAML or JSON config file (default: environment)")
	envFile := flag.String("env-file", ".env", "Environment file loaded before reading variables")
	verbose := flag.BoolP("verbose", "v", false, "Verbose logging")
	flag.Parse()

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(logbuf.DefaultSize)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv(*envFile)
	}
	if err != nil {
		var cerr *config.ConfigurationError
		if errors.As(err, &cerr) {
			fmt.Fprintln(os.Stderr, cerr.Error())
		}
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("ticketbotd starting", "version", version, "guild", cfg.Discord.GuildID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, telemetry.Options{
		Enabled:     cfg.Telemetry.Enabled,
		Stdout:      cfg.Telemetry.Stdout,
		ServiceName: "ticketbotd",
		Version:     version,
	})
	if err != nil {
		logger.Error("failed to init telemetry", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	// 1. Ticket ledger, lives as long as the process
	ledger, err := ticket.NewMemoryStore()
	if err != nil {
		logger.Error("failed to open ticket ledger", "error", err)
		os.Exit(1)
	}
	defer ledger.Close()

	// 2. Flow, lifecycle, archive, dispatch. The connector is the guild;
	// it is created first with a handler that forwards to the dispatcher.
	sessions := flow.NewStore(cfg.Tickets.SessionTTL)

	var d *dispatch.Dispatcher
	conn, err := discord.New(discord.Config{
		Token:    cfg.Discord.Token,
		GuildID:  cfg.Discord.GuildID,
		Commands: dispatch.Commands(),
	}, func(ctx context.Context, in protocol.Interaction, r connector.Responder) {
		d.Handle(ctx, in, r)
	}, logger)
	if err != nil {
		logger.Error("failed to init discord connector", "error", err)
		os.Exit(1)
	}

	manager := lifecycle.New(conn, lifecycle.Options{
		SupportRoleID: cfg.Tickets.SupportRoleID,
		ContainerID:   cfg.Tickets.CategoryID,
		Logger:        logger,
	})
	archiver := archive.New(conn, manager, archive.Options{
		LogChannelID: cfg.Tickets.LogChannelID,
		Logger:       logger,
	})
	d = dispatch.New(dispatch.Deps{
		Sessions:  sessions,
		Lifecycle: manager,
		Archiver:  archiver,
		Ledger:    ledger,
		Logger:    logger,
		Tracer:    telemetry.Tracer("dispatch"),
	}, dispatch.Options{
		FAQChannelID: cfg.Tickets.FAQChannelID,
		ConnectLink:  cfg.Tickets.ConnectLink,
	})

	// 3. Session sweep
	sched := scheduler.New(logger)
	if err := sched.AddJob("session-sweep", cfg.Tickets.SweepSchedule, func() { d.SweepSessions() }); err != nil {
		logger.Error("failed to schedule session sweep", "error", err)
		os.Exit(1)
	}
	go safeGo(logger, "scheduler", func() { sched.Start(ctx) })

	// 4. Gateway
	go safeGo(logger, "discord", func() {
		if err := conn.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("discord connector failed", "error", err)
			cancel()
		}
	})

	// 5. Admin API
	if cfg.API.Port != 0 {
		apiSrv := apiPkg.NewServer(apiPkg.Deps{
			Gateway:  conn,
			Tickets:  ledger,
			Sessions: d,
			Logs:     logBuf,
		}, apiPkg.Config{
			Host: cfg.API.Host,
			Port: cfg.API.Port,
			Key:  cfg.API.Key,
		}, logger)

		go safeGo(logger, "api-server", func() {
			if err := apiSrv.Start(ctx); err != nil {
				logger.Error("api server failed", "error", err)
			}
		})
	} else {
		logger.Info("api server disabled")
	}

	// 6. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("shutting down")
	}
	cancel()
	conn.Stop()
	logger.Info("ticketbotd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
