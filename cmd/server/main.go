package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/mmynk/rollcall/internal/autoreply"
	"github.com/mmynk/rollcall/internal/clock"
	"github.com/mmynk/rollcall/internal/config"
	"github.com/mmynk/rollcall/internal/roster"
	"github.com/mmynk/rollcall/internal/storage/sqlite"
	"github.com/mmynk/rollcall/internal/telegram"
	"github.com/mmynk/rollcall/internal/telemetry"
	"github.com/mmynk/rollcall/pkg/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		slog.Error("rollcall exited", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Parse("rollcall", args)
	if err != nil {
		return err
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.LogLevel))
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Environment,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(c); err != nil {
			logger.Warn("Failed to flush traces", "error", err)
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := clock.Real()

	// Initialize SQLite storage
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := sqlite.New(cfg.Database.Path, clk)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "database", cfg.Database.Path)

	publisher := newPublisher(cfg, logger)
	defer publisher.Close()

	dedupStore, closeDedup := newDedup(ctx, cfg, clk, logger)
	defer closeDedup()

	bot, updates, err := telegram.Connect(cfg.Telegram.Token, time.Duration(cfg.Telegram.PollTimeout)*time.Second, logger)
	if err != nil {
		return err
	}
	defer bot.StopReceivingUpdates()
	notifier := telegram.NewNotifier(bot)

	rosterSvc := roster.NewService(store, notifier, roster.Config{
		Clock:    clk,
		Location: loc,
		Commands: roster.Commands{
			Checkin: cfg.Commands.Checkin,
			Roster:  cfg.Commands.Roster,
		},
		Texts: roster.Texts{
			AlreadyCheckedIn: cfg.Messages.AlreadyCheckedIn,
			NobodyOnline:     cfg.Messages.NobodyOnline,
			RosterHeader:     cfg.Messages.RosterHeader,
			Expired:          cfg.Messages.Expired,
			DefaultCheckin:   cfg.Messages.DefaultCheckin,
			DefaultRosterRow: cfg.Messages.DefaultRosterRow,
			CaptchaPrompt:    cfg.Messages.CaptchaPrompt,
			CaptchaPassed:    cfg.Messages.CaptchaPassed,
		},
		Publisher: publisher,
		Logger:    logger.With("component", "roster"),
	})

	dispatcher := telegram.NewDispatcher(telegram.DispatcherConfig{
		Roster:   rosterSvc,
		Replies:  autoreply.NewResponder(store),
		Sender:   notifier,
		Dedup:    dedupStore,
		DedupTTL: cfg.Redis.DedupTTL,
		Logger:   logger.With("component", "telegram"),
	})

	srv := newHTTPServer(cfg, store, rosterSvc, clk, logger)

	errc := make(chan error, 2)
	go func() {
		logger.Info("Admin API starting", "address", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("Polling for updates", "timeout_s", cfg.Telegram.PollTimeout)
		errc <- dispatcher.Run(ctx, updates)
	}()

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Component failed", "error", err)
		}
		stop()
	}
	logger.Info("Shutting down")

	shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shCtx)
}
