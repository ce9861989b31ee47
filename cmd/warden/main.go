package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/warden/internal/bot"
	"github.com/iamwavecut/warden/internal/config"
	"github.com/iamwavecut/warden/internal/db/sqlite"
	handlers "github.com/iamwavecut/warden/internal/handlers/chat"
	"github.com/iamwavecut/warden/internal/i18n"
	"github.com/iamwavecut/warden/internal/infra"
	"github.com/iamwavecut/warden/internal/infrastructure/telegram"
	"github.com/iamwavecut/warden/internal/lifecycle"
	"github.com/iamwavecut/warden/internal/moderation"
	"github.com/iamwavecut/warden/internal/observability"
)

const stopTimeout = 30 * time.Second

func main() {
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))
	if !i18n.IsSupported(cfg.DefaultLanguage) {
		log.WithField("lang", cfg.DefaultLanguage).Warn("unsupported language, falling back to en")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		select {
		case <-infra.WatchExecutable(ctx):
			log.Warn("executable file was modified, shutting down")
			stop()
		case <-ctx.Done():
		}
	}()

	if err := run(ctx, cfg); err != nil {
		log.WithError(err).Fatalln("warden stopped with error")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing := observability.InitTracing("warden")
	audit, err := observability.NewAuditLogger()
	if err != nil {
		return fmt.Errorf("init audit logger: %w", err)
	}

	store, err := sqlite.NewSQLiteClient(ctx, cfg.DotPath, cfg.DBName)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	// Long polling holds the connection open for PollTimeoutSec on top of the call budget.
	httpClient := &http.Client{Timeout: cfg.Transport.PlatformTimeout + bot.PollTimeoutSec*time.Second}
	botAPI, err := api.NewBotAPIWithClient(cfg.TelegramAPIToken, api.APIEndpoint, httpClient)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("init bot api: %w", err)
	}
	botAPI.Debug = log.Level(cfg.LogLevel) == log.TraceLevel
	log.WithField("bot", botAPI.Self.UserName).Info("authorized")

	ops := telegram.NewOperations(botAPI, telegram.Options{
		StatusCacheTTL: cfg.Transport.MemberStatusCacheTTL,
		SendRatePerSec: cfg.Transport.SendRatePerSec,
	})
	tracker := moderation.NewFloodTracker(moderation.FloodConfig{
		Window:        cfg.Moderation.FloodWindow(),
		MaxMessages:   cfg.Moderation.FloodMaxMessage,
		RepeatMax:     cfg.Moderation.RepeatMax,
		IdleTTL:       cfg.Moderation.WindowIdleTTL,
		SweepInterval: cfg.Moderation.WindowSweepInterval,
	})
	engine := moderation.NewPunishmentEngine(ops, store, moderation.PunishmentConfig{
		CallTimeout: cfg.Transport.PlatformTimeout,
		Audit:       audit,
	})
	orchestrator := moderation.NewOrchestrator(
		ops,
		tracker,
		moderation.LinkDetector{Enabled: cfg.Moderation.LinkSpamEnabled},
		engine,
		cfg.Transport.PlatformTimeout,
	)

	service := bot.NewService(store, &cfg)
	processor := bot.NewUpdateProcessor(
		handlers.NewCommands(service, ops),
		handlers.NewGreeter(service, ops),
		handlers.NewGuard(service, orchestrator, ops),
	)
	dispatcher := bot.NewDispatcher(processor, cfg.Transport.Workers)

	runtime := lifecycle.NewRuntime(
		lifecycle.OnStop(func(context.Context) error { return store.Close() }),
		lifecycle.OnStop(shutdownTracing),
		lifecycle.OnStop(func(context.Context) error {
			_ = audit.Sync()
			return nil
		}),
		tracker,
		dispatcher,
	)
	if cfg.Transport.MetricsEnabled && cfg.Transport.MetricsAddr != "" {
		runtime.Register(observability.NewMetricsServer(cfg.Transport.MetricsAddr))
	}
	if cfg.Transport.WebhookPublicURL != "" {
		runtime.Register(bot.NewWebhookServer(botAPI, dispatcher, cfg.Transport.WebhookPublicURL, cfg.TelegramAPIToken, cfg.Transport.ListenAddr))
	} else {
		runtime.Register(bot.NewPoller(botAPI, dispatcher))
	}

	return runtime.Run(ctx, stopTimeout)
}
