package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"feedback-hub/internal/auth"
	"feedback-hub/internal/config"
	"feedback-hub/internal/database"
	"feedback-hub/internal/metrics"
	"feedback-hub/internal/middleware"
	"feedback-hub/internal/policy"
	"feedback-hub/internal/repository"
	"feedback-hub/internal/repository/memory"
	mongorepo "feedback-hub/internal/repository/mongo"
	"feedback-hub/internal/repository/postgres"
	"feedback-hub/internal/rolecache"
	"feedback-hub/internal/router"
	"feedback-hub/internal/service"
	"feedback-hub/internal/utils"
	"feedback-hub/pkg/logger"
)

func main() {
	// config + logger
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	l := logger.New(cfg.Env, cfg.LogLevel, cfg.LogFormat)
	utils.SetVerboseErrors(!cfg.IsProduction())

	ctx := context.Background()

	// stores
	feedback, users, closeStores, err := openStores(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("store init failed")
	}
	defer closeStores()

	// auth
	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		l.Fatal().Err(err).Str("mode", cfg.AuthMode).Msg("token verifier init failed")
	}
	cache, closeCache, err := newRoleCache(ctx, cfg, l)
	if err != nil {
		l.Fatal().Err(err).Str("backend", cfg.RoleCacheBackend).Msg("role cache init failed")
	}
	defer closeCache()

	pol, err := policy.New(policy.DefaultTable())
	if err != nil {
		l.Fatal().Err(err).Msg("policy init failed")
	}

	m := metrics.New()
	dir := service.NewDirectory(users, m, l)

	// http
	r := router.New(router.Deps{
		Log:      l,
		Config:   cfg,
		Auth:     middleware.NewPipeline(verifier, dir, cache, pol, m),
		Feedback: service.NewFeedbackService(feedback, users, l),
		Users:    dir,
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		l.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error().Err(err).Msg("shutdown did not finish cleanly")
	}
	l.Info().Msg("shutdown complete")
}

func openStores(ctx context.Context, cfg config.Config, l zerolog.Logger) (repository.FeedbackRepository, repository.UserRepository, func(), error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return postgres.NewFeedbackRepo(pool), postgres.NewUserRepo(pool), pool.Close, nil

	case config.DriverMongo:
		client, db, err := database.OpenMongo(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, nil, err
		}
		closeFn := func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(c)
		}
		return mongorepo.NewFeedbackRepo(db), mongorepo.NewUserRepo(db), closeFn, nil

	default:
		l.Warn().Msg("using in-memory store; data is lost on restart")
		return memory.NewFeedbackRepo(), memory.NewUserRepo(), func() {}, nil
	}
}

func newVerifier(ctx context.Context, cfg config.Config) (auth.Verifier, error) {
	if cfg.AuthMode == config.AuthModeHMAC {
		return auth.NewHMACVerifier(cfg.HMACSecret, cfg.HMACIssuer, cfg.HMACAudience)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return auth.NewOIDCVerifier(ctx, auth.OIDCConfig{
		Issuer:   cfg.OIDCIssuer,
		Audience: cfg.OIDCAudience,
		ClientID: cfg.OIDCClientID,
		JWKSTTL:  cfg.JWKSCacheTTL,
		Client:   &http.Client{Timeout: 10 * time.Second},
	})
}

func newRoleCache(ctx context.Context, cfg config.Config, l zerolog.Logger) (rolecache.Cache, func(), error) {
	if cfg.RoleCacheBackend == config.CacheRedis {
		client, err := rolecache.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return rolecache.NewRedis(client, cfg.RoleCacheTTL, l), func() { _ = client.Close() }, nil
	}
	return rolecache.NewMemory(cfg.RoleCacheTTL, rolecache.SystemClock()), func() {}, nil
}
