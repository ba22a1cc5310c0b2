package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"rosterd/internal/auth/service"
	refreshtoken "rosterd/internal/auth/store/refresh-token"
	"rosterd/internal/directory"
	"rosterd/internal/directory/sheets"
	jwttoken "rosterd/internal/jwt_token"
	"rosterd/internal/platform/config"
	"rosterd/internal/platform/httpserver"
	"rosterd/internal/platform/logger"
	platformredis "rosterd/internal/platform/redis"
	httptransport "rosterd/internal/transport/http"
	"rosterd/pkg/platform/httputil"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("skipping .env file", "error", err)
	}

	cfg := config.FromEnv()
	log := logger.New(slog.LevelInfo)

	for _, name := range cfg.MissingSettings() {
		log.Warn("configuration missing, running with development defaults", "setting", name)
	}
	if cfg.JWTSigningKey == "" {
		// Tokens become worthless across restarts; fine for development only.
		cfg.JWTSigningKey = devSigningKey()
		log.Warn("generated ephemeral signing key, sessions will not survive restart")
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, db, err := buildRefreshStore(cfg, redisClient, log)
	if err != nil {
		log.Error("refresh store setup failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	tokens := jwttoken.New(cfg.JWTSigningKey, cfg.Issuer, cfg.AccessTokenTTL)
	auth := service.New(cfg.Operator, tokens, store, cfg.RefreshTokenTTL, log)

	var cache directory.Cache
	if redisClient != nil {
		cache = directory.NewRedisCache(redisClient.Client, cfg.DirectoryCacheTTL)
	} else {
		cache = directory.NewMemoryCache(cfg.DirectoryCacheTTL)
	}
	fetcher := sheets.New(cfg.DirectorySheetURL, cfg.DirectoryTimeout)
	dir := directory.NewService(fetcher, cache, log)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:          log,
		Auth:            auth,
		Directory:       dir,
		Verifier:        tokens,
		Cookies:         httputil.CookieWriter{Secure: cfg.SecureCookies},
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.CleanupInterval > 0 {
		go runCleanup(ctx, store, cfg.CleanupInterval, log)
	}

	log.Info("starting rosterd", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

// buildRefreshStore picks the refresh-token backend: postgres when a database
// URL is configured, redis when a redis URL is, memory otherwise. The returned
// *sql.DB is non-nil only for postgres and must be closed by the caller.
func buildRefreshStore(cfg config.Config, redisClient *platformredis.Client, log *slog.Logger) (service.RefreshTokenStore, *sql.DB, error) {
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store := refreshtoken.NewPostgresStore(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Bootstrap(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("using postgres refresh-token store")
		return store, db, nil
	}
	if redisClient != nil {
		log.Info("using redis refresh-token store")
		return refreshtoken.NewRedisStore(redisClient.Client), nil, nil
	}
	log.Info("using in-memory refresh-token store")
	return refreshtoken.NewInMemoryStore(), nil, nil
}

// runCleanup periodically sweeps expired refresh records. Lookup-time expiry
// already guarantees correctness; this only bounds storage growth.
func runCleanup(ctx context.Context, store service.RefreshTokenStore, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.DeleteExpiredAt(ctx, now)
			if err != nil {
				log.Warn("refresh-token sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				log.Info("swept expired refresh tokens", "removed", removed)
			}
		}
	}
}

func devSigningKey() string {
	buf := make([]byte, 32)
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
