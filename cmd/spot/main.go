package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/vuorinet/spot/pkg/cache"
	"github.com/vuorinet/spot/pkg/config"
	"github.com/vuorinet/spot/pkg/entsoe"
	"github.com/vuorinet/spot/pkg/logging"
	"github.com/vuorinet/spot/pkg/notify"
	"github.com/vuorinet/spot/pkg/scheduler"
	"github.com/vuorinet/spot/pkg/stream"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "spot.yaml", "path to the YAML configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		log.Fatal().Err(err).Msg("spot failed")
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(logging.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})
	logger := logging.NewLogger("main")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()

	clientLogger := logging.NewLogger("entsoe-client")
	client, err := entsoe.New(entsoe.Config{
		BaseURL:           cfg.Upstream.BaseURL,
		Token:             cfg.Upstream.Token,
		Area:              cfg.Upstream.Area,
		Market:            cfg.Upstream.Market,
		Location:          loc,
		Timeout:           cfg.Upstream.Timeout,
		RateLimitDelay:    cfg.Upstream.RateLimitDelay,
		PreferQuarterHour: cfg.Upstream.PreferQuarterHour,
		RequestsPerMinute: cfg.Upstream.RequestsPerMinute,
		Logger:            &clientLogger,
	})
	if err != nil {
		return fmt.Errorf("create ENTSO-E client: %w", err)
	}
	if client.Limiter().State().Unlimited() {
		logger.Warn().Msg("Upstream request pacing disabled")
	}

	store := cache.NewStore(loc)
	notifier := notify.New(cfg.Notify.Buffer, logging.NewLogger("notifier"))
	defer notifier.Close()

	schedulerLogger := logging.NewLogger("scheduler")
	refresher, err := scheduler.New(scheduler.Config{
		Location:              loc,
		BootstrapInitialDelay: cfg.Scheduler.BootstrapInitialDelay,
		BootstrapMaxDelay:     cfg.Scheduler.BootstrapMaxDelay,
		MidnightLead:          cfg.Scheduler.MidnightLead,
		Now:                   time.Now,
		Logger:                &schedulerLogger,
	}, client, store, notifier)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	if cfg.Redis.URL != "" {
		redisClient, err := connectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		relay := notify.NewRedisRelay(redisClient, notifier, cfg.Redis.Channel, logging.NewLogger("redis-relay"))
		go func() { _ = relay.Run(ctx) }()
	}

	streamCfg := stream.DefaultConfig(version)
	streamCfg.KeepAlive = cfg.Server.KeepAlive

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: newRouter(routerDeps{
			store:     store,
			refresher: refresher,
			limiter:   client.Limiter(),
			notifier:  notifier,
			streamCfg: streamCfg,
			version:   version,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		logger.Info().
			Str("area", cfg.Upstream.Area).
			Str("timezone", loc.String()).
			Msg("Populating price cache")
		if err := refresher.EnsurePopulated(ctx); err != nil {
			return
		}
		if err := refresher.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("Refresh loop failed")
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	notifier.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("HTTP server shutdown")
	}
	cancelLoop()
	<-loopDone
	return runErr
}

func connectRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	redisClient := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to Redis at %s: %w", opts.Addr, err)
	}
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
	return redisClient, nil
}
