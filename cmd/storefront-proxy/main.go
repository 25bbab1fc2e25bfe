// Command storefront-proxy fronts the storefront API with the client
// library: requests through /api/ get bearer auth, response caching, rate
// gating, and the refresh-and-replay protocol, plus Prometheus metrics on
// /metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verkado/storefront-client/pkg/api"
	"github.com/verkado/storefront-client/pkg/logging"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	baseURL := getEnv("STOREFRONT_BASE_URL", "")
	if baseURL == "" {
		logger.Fatal().Msg("STOREFRONT_BASE_URL is required")
	}
	port := getEnv("PORT", "8080")

	session := api.NewSession(
		getEnv("STOREFRONT_ACCESS_TOKEN", ""),
		getEnv("STOREFRONT_REFRESH_TOKEN", ""),
	)

	cfg := api.DefaultConfig(baseURL, session)

	if redisURL := getEnv("REDIS_URL", ""); redisURL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
		}
		cfg.Redis = redisClient
		logger.Info().Str("redis_url", redisURL).Msg("Connected to Redis")
	}

	client, err := api.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create storefront client")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/", proxyHandler(client, logger))

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("base_url", baseURL).
		Msg("Starting storefront proxy")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// proxyHandler forwards GET requests under /api/ to the storefront and
// re-wraps the result in the envelope shape.
func proxyHandler(client *api.Client, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		requestID := uuid.NewString()
		endpoint := strings.TrimPrefix(r.URL.Path, "/api/")

		reqLogger := logger.With().
			Str("request_id", requestID).
			Str("endpoint", endpoint).
			Logger()

		result, err := client.Get(r.Context(), endpoint, r.URL.Query())
		if err != nil {
			status := errorStatus(err)
			reqLogger.Warn().Err(err).Int("status", status).Msg("Proxy request failed")
			http.Error(w, err.Error(), status)
			return
		}

		env := map[string]any{"data": result.Data}
		if result.Pagination != nil {
			env["pagination"] = result.Pagination
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("X-Request-Id", requestID)
		if err := json.NewEncoder(w).Encode(env); err != nil {
			reqLogger.Warn().Err(err).Msg("Failed to write response")
		}

		reqLogger.Debug().Msg("Proxy request served")
	}
}

// errorStatus maps client errors onto proxy response codes.
func errorStatus(err error) int {
	var authErr *api.UnauthorizedError
	var srvErr *api.ServerError

	switch {
	case errors.As(err, &authErr):
		return http.StatusUnauthorized
	case errors.As(err, &srvErr):
		if srvErr.StatusCode >= 400 {
			return srvErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, api.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
