package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/catalog-feed/internal/config"
	"github.com/Sternrassler/catalog-feed/internal/server"
	"github.com/Sternrassler/catalog-feed/pkg/client"
	"github.com/Sternrassler/catalog-feed/pkg/logging"
	"github.com/Sternrassler/catalog-feed/pkg/pagination"
	"github.com/Sternrassler/catalog-feed/pkg/translator"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(cfg.Logging("catalog-server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// app holds the wired components of one server process.
type app struct {
	redis      *redis.Client
	client     *client.Client
	translator *translator.Translator
	server     *server.Server
}

func (a *app) Close() {
	a.client.Close()
	if a.redis != nil {
		a.redis.Close()
	}
}

// connectRedis returns nil when Redis is not configured.
func connectRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts := cfg.RedisOptions()
	if opts == nil {
		return nil, nil
	}

	redisClient := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	return redisClient, nil
}

func newApp(cfg *config.Config, redisClient *redis.Client) (*app, error) {
	catalogClient, err := client.New(cfg.Client(redisClient))
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	tr := translator.New(catalogClient, cfg.Translator())

	srv := server.New(tr, redisClient, server.Config{
		Env:        cfg.Env,
		CORSOrigin: cfg.CORSOrigin,
	})

	return &app{
		redis:      redisClient,
		client:     catalogClient,
		translator: tr,
		server:     srv,
	}, nil
}

// warm fills the response cache for the leading pages of every feed.
func warm(ctx context.Context, cfg *config.Config, tr *translator.Translator, logger zerolog.Logger) {
	wcfg := cfg.Warmer()
	if wcfg.Pages == 0 {
		return
	}

	feeds := append([]string{""}, tr.Ranges().Tags()...)
	result, err := pagination.NewWarmer(tr, wcfg).Warm(ctx, feeds)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache warm-up interrupted")
		return
	}
	logger.Info().
		Int("warmed", result.Warmed).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Dur("duration", result.Duration).
		Msg("Cache warm-up finished")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	redisClient, err := connectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	if redisClient != nil {
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	} else {
		logger.Info().Msg("Redis disabled: upstream cache and error budget are off")
	}

	a, err := newApp(cfg, redisClient)
	if err != nil {
		if redisClient != nil {
			redisClient.Close()
		}
		return err
	}
	defer a.Close()

	if a.client.GetCache() == nil && cfg.Warm.Pages > 0 {
		logger.Warn().Msg("Cache warm-up skipped: no cache configured")
	} else {
		go warm(ctx, cfg, a.translator, logger)
	}

	ln, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Address(), err)
	}

	logger.Info().
		Str("addr", ln.Addr().String()).
		Str("env", cfg.Env).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("user_agent", cfg.Upstream.UserAgent).
		Msg("Starting catalog server")

	return serve(ctx, a.server.Handler(), ln, logger)
}

// serve runs the HTTP server on ln until ctx is done, then shuts it down.
func serve(ctx context.Context, handler http.Handler, ln net.Listener, logger zerolog.Logger) error {
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down catalog server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
