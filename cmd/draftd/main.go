package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/draftworks/draftd/internal/catalog"
	"github.com/draftworks/draftd/internal/config"
	"github.com/draftworks/draftd/internal/engine"
	"github.com/draftworks/draftd/internal/events"
	"github.com/draftworks/draftd/internal/events/natspub"
	"github.com/draftworks/draftd/internal/gateway"
	"github.com/draftworks/draftd/internal/session"
	"github.com/draftworks/draftd/internal/storage/memory"
	"github.com/draftworks/draftd/internal/storage/postgres"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatal().Err(err).Str("level", cfg.LogLevel).Msg("invalid log level")
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sessionRepo session.Repository
		catalogRepo catalog.Repository
	)
	if cfg.DatabaseURL != "" {
		store, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer store.Close()
		if err := store.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		sessionRepo = store
		catalogRepo = store
		log.Info().Msg("using postgres storage")
	} else {
		store := memory.NewStore()
		sessionRepo = store
		catalogRepo = store
		log.Info().Msg("using in-memory storage")
	}

	sessions := session.NewApp(sessionRepo)
	catalogApp := catalog.NewApp(catalogRepo)

	manager := gateway.NewManager(nil)
	picks := gateway.NewPickRouter()

	publishers := events.Fanout{events.NewLogPublisher(), manager}
	if cfg.NATSURL != "" {
		np, err := natspub.Connect(ctx, cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer np.Close()
		publishers = append(publishers, np)
		log.Info().Str("nats_url", cfg.NATSURL).Msg("publishing events to NATS")
	}

	clock := clockwork.NewRealClock()
	sequencer := engine.NewSequencer(sessions, catalogApp, picks, manager, publishers, clock, cfg.PickTimeout)
	scheduler := engine.NewScheduler(sessions, sequencer, clock, cfg.PollInterval, cfg.BatchSize)

	server := &http.Server{
		Addr:        cfg.GatewayAddr,
		Handler:     gateway.Handler(manager, picks, cfg.AllowedOrigins),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	go func() {
		log.Info().Str("addr", server.Addr).Msg("gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("gateway server failed")
		}
	}()

	log.Info().
		Dur("poll_interval", cfg.PollInterval).
		Dur("pick_timeout", cfg.PickTimeout).
		Msg("starting draft scheduler")
	if err := scheduler.Run(ctx); err != nil {
		log.Error().Err(err).Msg("scheduler failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("gateway shutdown failed")
	}
	log.Info().Msg("draftd shutdown complete")
}
