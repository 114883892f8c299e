package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/reminderd/internal/ai"
	"github.com/example/reminderd/internal/backup"
	"github.com/example/reminderd/internal/bot"
	"github.com/example/reminderd/internal/config"
	"github.com/example/reminderd/internal/core"
	"github.com/example/reminderd/internal/database"
	"github.com/example/reminderd/internal/notify"
	"github.com/example/reminderd/internal/repository"
	"github.com/example/reminderd/internal/scheduler"
	"github.com/example/reminderd/internal/settings"
	"github.com/example/reminderd/internal/web"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", err)
	}
	if cfg.DatabaseURI == "" {
		fatal("DATABASE_URI is required", nil)
	}
	if cfg.SessionSecret == "" {
		fatal("SESSION_SECRET is required", nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer db.Close()
	slog.Info("connected to database")

	if err := db.Migrate(ctx); err != nil {
		fatal("failed to run migrations", err)
	}

	reminderRepo := repository.NewReminderRepository(db)
	executionRepo := repository.NewExecutionRepository(db)
	userRepo := repository.NewUserRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	eventRepo := repository.NewEventLogRepository(db)

	if err := web.EnsureDefaultUsers(ctx, userRepo); err != nil {
		fatal("failed to seed default users", err)
	}

	resolver := settings.NewResolver(settingRepo, settings.Static{
		TelegramToken: cfg.TelegramToken,
		ChatIDs:       cfg.ChatIDs,
	})
	telegram := notify.NewTelegram(resolver)
	coreSvc := core.NewService(reminderRepo, executionRepo)

	backups := backup.NewRunner(repository.NewSnapshotter(db), cfg.BackupDir, cfg.BackupKeep)

	sched := scheduler.New(reminderRepo, executionRepo, telegram, resolver, scheduler.Options{
		TickInterval:       cfg.SchedulerInterval,
		EscalationInterval: cfg.EscalationInterval,
		BackupInterval:     cfg.BackupInterval,
		Events:             eventRepo,
		Backups:            backups,
	})
	go sched.Start(ctx)

	// The bot needs a token at startup; without one only the web API and
	// scheduler run, and the bot can be enabled later with a restart.
	if token, err := resolver.TelegramToken(ctx); err != nil {
		fatal("failed to resolve telegram token", err)
	} else if token != "" {
		var aiClient *ai.Client
		if cfg.AIAPIKey != "" {
			aiClient = ai.New(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel)
			slog.Info("ai client initialized", "model", cfg.AIModel)
		} else {
			slog.Info("ai client not configured, free-text parsing disabled")
		}

		admin, err := userRepo.GetByUsername(ctx, "admin")
		if err != nil {
			fatal("failed to load admin user", err)
		}
		b, err := bot.New(token, coreSvc, resolver, aiClient, admin.ID)
		if err != nil {
			fatal("failed to create bot", err)
		}
		go func() {
			if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("bot stopped", "error", err)
			}
		}()
	} else {
		slog.Warn("telegram token not configured, bot disabled")
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: web.NewServer(coreSvc, userRepo, resolver, telegram, sched, cfg.SessionSecret),
	}
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig.String())
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}
}

func fatal(msg string, err error) {
	if err != nil {
		slog.Error(msg, "error", err)
	} else {
		slog.Error(msg)
	}
	os.Exit(1)
}
