package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/rollcall/internal/auth"
	"github.com/mmynk/rollcall/internal/clock"
	"github.com/mmynk/rollcall/internal/config"
	"github.com/mmynk/rollcall/internal/dedup"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/middleware"
	"github.com/mmynk/rollcall/internal/service"
	"github.com/mmynk/rollcall/internal/storage"
)

func newPublisher(cfg *config.Config, logger *slog.Logger) events.Publisher {
	if len(cfg.Kafka.Brokers) == 0 {
		return events.Nop{}
	}
	logger.Info("Publishing check-in events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	return events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
}

// newDedup returns the Redis-backed store when Redis is configured and
// reachable, and the in-process store otherwise.
func newDedup(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *slog.Logger) (dedup.Store, func()) {
	if cfg.Redis.Addr == "" {
		return dedup.NewMemory(clk), func() {}
	}

	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("Redis unavailable, deduplicating in memory", "addr", cfg.Redis.Addr, "error", err)
		_ = client.Close()
		return dedup.NewMemory(clk), func() {}
	}
	logger.Info("Deduplicating updates in Redis", "addr", cfg.Redis.Addr)
	return dedup.NewRedis(client), func() { _ = client.Close() }
}

func newHTTPServer(cfg *config.Config, store storage.Store, rosterSvc service.RosterReader, clk clock.Clock, logger *slog.Logger) *http.Server {
	if cfg.Admin.PasswordHash == "" || len(cfg.Admin.IDs) == 0 {
		logger.Warn("Admin login disabled: admin.ids or admin.password_hash not set")
	}
	jwtManager := auth.NewJWTManager(cfg.Admin.JWTSecret, cfg.Admin.TokenTTL, clk)
	rpcLogger := logger.With("component", "rpc")
	validate := middleware.ValidationInterceptor(service.NewValidator())
	logged := middleware.LoggingInterceptor(rpcLogger)

	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Register Connect services
	adminPath, adminHandler := service.NewAdminServiceHandler(
		service.NewAdminService(auth.NewPasswordAuthenticator(cfg.Admin.IDs, cfg.Admin.PasswordHash), jwtManager, rpcLogger),
		connect.WithInterceptors(logged, validate),
	)
	router.PathPrefix(adminPath).Handler(adminHandler)

	rosterPath, rosterHandler := service.NewRosterAdminServiceHandler(
		service.NewRosterAdminService(store, rosterSvc, clk, rpcLogger),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager), logged, validate),
	)
	router.PathPrefix(rosterPath).Handler(rosterHandler)

	handler := otelhttp.NewHandler(corsMiddleware(router), "rollcall.http")

	return &http.Server{
		Addr: cfg.HTTP.Addr,
		// Wrap with h2c for HTTP/2 without TLS
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
