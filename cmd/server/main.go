package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dkeye/voicerooms/internal/adapters/fanout"
	router "github.com/dkeye/voicerooms/internal/adapters/http"
	"github.com/dkeye/voicerooms/internal/adapters/rtc"
	sig "github.com/dkeye/voicerooms/internal/adapters/signal"
	"github.com/dkeye/voicerooms/internal/adapters/storage/memory"
	"github.com/dkeye/voicerooms/internal/adapters/storage/postgres"
	"github.com/dkeye/voicerooms/internal/app"
	"github.com/dkeye/voicerooms/internal/app/orch"
	"github.com/dkeye/voicerooms/internal/clock"
	"github.com/dkeye/voicerooms/internal/config"
	"github.com/dkeye/voicerooms/internal/core"
)

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Live audio rooms signaling server",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context())
		},
	})
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Mode != "debug" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

func migrate(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url is required for migrate")
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	return postgres.Migrate(ctx, pool)
}

func openStore(ctx context.Context, cfg *config.Config) (core.Store, error) {
	if cfg.Storage.Driver != "postgres" {
		log.Info().Str("module", "main").Msg("using in-memory storage")
		return memory.New(), nil
	}
	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return postgres.New(pool), nil
}

func serve(parent context.Context) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to open storage")
		return err
	}
	defer store.Close()

	grants, err := rtc.NewTokenIssuer(rtc.Options{
		URL:        cfg.Media.URL,
		APIKey:     cfg.Media.APIKey,
		APISecret:  cfg.Media.APISecret,
		TTL:        cfg.Media.GrantTTL,
		ICEServers: cfg.Media.ICEServers,
	})
	if err != nil {
		return err
	}

	clk := clock.Real()
	grace := app.NewGraceManager(clk, cfg.Rooms.GracePeriod)
	o := orch.New(store, grants, grace, clk, cfg.Rooms.MaxParticipants)

	bridge, degraded := fanout.Connect(ctx, fanout.Options{
		Driver:   cfg.Fanout.Driver,
		RedisURL: cfg.Fanout.RedisURL,
		NatsURL:  cfg.Fanout.NatsURL,
		Prefix:   cfg.Fanout.Prefix,
	})
	defer bridge.Close()
	if degraded {
		log.Warn().Str("module", "main").Msg("running without cross-instance fanout; grace periods and broadcasts are local to this instance")
	}

	limits := sig.NewRateLimiter(clk, cfg.Rate.Events, cfg.Rate.EventsWindow, cfg.Rate.Chat, cfg.Rate.ChatWindow)
	gw := sig.NewSignalWSController(o, app.NewRegistry(), bridge, limits, sig.Options{
		InstanceID:     uuid.NewString(),
		Prefix:         cfg.Fanout.Prefix,
		ReadLimit:      cfg.ReadLimit,
		PingPeriod:     cfg.PingPeriod,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	o.OnDetachedExpiry = gw.AnnounceExpiry
	if err := gw.Start(ctx); err != nil {
		log.Error().Err(err).Msg("fanout subscribe failed")
		return err
	}

	r := router.SetupRouter(ctx, cfg, o, gw)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Voice rooms server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	cleared := grace.Stop()
	log.Info().Int("grace_timers_cleared", cleared).Msg("Server exited gracefully")
	return nil
}
