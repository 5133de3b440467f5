package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/agent"
	"github.com/omriShneor/room_booking_agent/internal/auth"
	"github.com/omriShneor/room_booking_agent/internal/browser"
	"github.com/omriShneor/room_booking_agent/internal/cache"
	"github.com/omriShneor/room_booking_agent/internal/checkpoint"
	"github.com/omriShneor/room_booking_agent/internal/config"
	"github.com/omriShneor/room_booking_agent/internal/database"
	"github.com/omriShneor/room_booking_agent/internal/driver"
	"github.com/omriShneor/room_booking_agent/internal/history"
	"github.com/omriShneor/room_booking_agent/internal/llm"
	"github.com/omriShneor/room_booking_agent/internal/logging"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
	"github.com/omriShneor/room_booking_agent/internal/normalize"
	"github.com/omriShneor/room_booking_agent/internal/notify"
	"github.com/omriShneor/room_booking_agent/internal/probe"
	"github.com/omriShneor/room_booking_agent/internal/run"
	"github.com/omriShneor/room_booking_agent/internal/server"
	"github.com/omriShneor/room_booking_agent/internal/sse"
	"github.com/omriShneor/room_booking_agent/internal/submission"
	"github.com/omriShneor/room_booking_agent/internal/timeutil"
)

func main() {
	cfg := config.LoadFromEnv()
	logging.Init("room-booking-agent", cfg.AppEnv, cfg.LogLevel)

	for _, problem := range cfg.Validate() {
		log.Warn().Msg(problem)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		fatal("creating database", err)
	}
	defer db.Close()

	authService, err := auth.NewService(db, cfg.SecretKey)
	if err != nil {
		fatal("creating auth service", err)
	}
	if err := authService.CleanupExpiredSessions(); err != nil {
		log.Warn().Err(err).Msg("failed to clean up expired sessions")
	}

	ctx := context.Background()
	modelCache, closeCache := initCache(ctx, cfg)
	defer closeCache()

	loc, ok := timeutil.ResolveLocation(cfg.Timezone)
	if !ok {
		log.Warn().Str("timezone", cfg.Timezone).Msg("unknown timezone, using UTC")
	}
	normalizer := normalize.New(loc)

	llmClient := initLLM(cfg, modelCache)
	var chooser driver.OptionChooser
	if llmClient.IsConfigured() {
		chooser = llmClient
	}

	states := sse.NewStateManager()
	gates := checkpoint.NewChannel(cfg.CheckpointTimeout)
	gates.OnPrompt = func(p checkpoint.Prompt) {
		log.Info().Str("run_id", p.RunID).Str("kind", p.Kind).Msg(p.Message)
	}

	notifyService := initNotifyService(cfg)
	store := history.NewStore(cfg.HistoryFile)

	runner := run.NewRunner(run.Config{
		Agent: agent.New(llmClient, normalizer),
		Deps: run.Deps{
			Navigator:  navigate.New(2*time.Second, cfg.BrowserTimeout),
			Prober:     probe.New(),
			Driver:     driver.New(chooser),
			Submitter:  submission.NewSubmitter(cfg.SubmitWait),
			Classifier: submission.NewClassifier(),
			Gate:       gates,
			BaseURL:    cfg.MomentusBaseURL,
			EntryURL:   cfg.EntryURL(),
		},
		Launch:    launcher(cfg),
		History:   store,
		Notifier:  notifyService,
		Listeners: []run.Listener{run.AttemptRecorder{DB: db}, run.ProgressPublisher{States: states}},
	})

	srv := server.New(server.Config{
		DB:          db,
		AuthService: authService,
		Runner:      runner,
		States:      states,
		Gates:       gates,
		History:     store,
		Normalizer:  normalizer,
		EnvCredentials: navigate.Credentials{
			Username: cfg.MomentusUsername,
			Password: cfg.MomentusPassword,
		},
		EmailConfigured: notifyService.IsEmailAvailable(),
		SecureCookies:   cfg.AppEnv == "production",
		Port:            cfg.HTTPPort,
	})
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	waitForShutdown(srv)
}

func initDatabase(cfg *config.Config) (*database.DB, error) {
	return database.New(cfg.DBPath)
}

// initCache prefers redis and falls back to process memory
func initCache(ctx context.Context, cfg *config.Config) (cache.Cache, func()) {
	if cfg.RedisURL == "" {
		return cache.NewMemory(), func() {}
	}
	redisCache, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.CacheTTL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, caching model answers in memory")
		return cache.NewMemory(), func() {}
	}
	log.Info().Msg("Model answer cache configured (redis)")
	return redisCache, func() { redisCache.Close() }
}

func initLLM(cfg *config.Config, c cache.Cache) *llm.Client {
	client := llm.NewClient(llm.Config{
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.OpenAIModel,
		Temperature: cfg.OpenAITemperature,
		MaxTokens:   cfg.OpenAIMaxTokens,
		RateLimit:   cfg.OpenAIRateLimit,
		Cache:       c,
	})
	if !client.IsConfigured() {
		log.Warn().Msg("OPENAI_API_KEY not set, request extraction disabled")
	} else {
		log.Info().Str("model", cfg.OpenAIModel).Msg("Request extraction configured")
	}
	return client
}

func initNotifyService(cfg *config.Config) *notify.Service {
	var emailNotifier notify.Notifier
	if cfg.ResendAPIKey != "" {
		emailNotifier = notify.NewResendNotifier(cfg.ResendAPIKey, cfg.EmailFrom)
		if emailNotifier != nil && emailNotifier.IsConfigured() {
			log.Info().Msg("Email notification service configured (Resend)")
		}
	}
	return notify.NewService(emailNotifier, cfg.NotifyEmail)
}

func launcher(cfg *config.Config) run.Launcher {
	return func(ctx context.Context) (browser.Page, error) {
		sess, err := browser.Launch(browser.Config{
			Headless: cfg.BrowserHeadless,
			Timeout:  cfg.BrowserTimeout,
		})
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

func fatal(context string, err error) {
	log.Error().Err(err).Msgf("Error %s", context)
	os.Exit(1)
}

func waitForShutdown(srv *server.Server) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown")
	}
}
