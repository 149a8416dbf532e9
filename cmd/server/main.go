// Command server starts the Clipstream API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"clipstream/internal/api"
	"clipstream/internal/auth"
	"clipstream/internal/media"
	"clipstream/internal/observability/logging"
	"clipstream/internal/server"
	"clipstream/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresConnectTimeout := flag.Duration("postgres-connect-timeout", 0, "timeout when opening a Postgres connection")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	accessSecret := flag.String("access-token-secret", "", "secret used to sign access tokens")
	refreshSecret := flag.String("refresh-token-secret", "", "secret used to sign refresh tokens")
	accessTTL := flag.Duration("access-token-ttl", 0, "lifetime of issued access tokens")
	refreshTTL := flag.Duration("refresh-token-ttl", 0, "lifetime of issued refresh tokens")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	corsOrigins := flag.String("cors-origins", "", "comma separated list of allowed CORS origins")
	mediaEndpoint := flag.String("media-endpoint", "", "object storage endpoint (e.g. http://127.0.0.1:9000)")
	mediaPublicEndpoint := flag.String("media-public-endpoint", "", "public endpoint used in media URLs")
	mediaBucket := flag.String("media-bucket", "", "object storage bucket name")
	mediaPrefix := flag.String("media-prefix", "", "object storage key prefix for uploads")
	mediaRegion := flag.String("media-region", "", "object storage region")
	mediaAccessKey := flag.String("media-access-key", "", "object storage access key")
	mediaSecretKey := flag.String("media-secret-key", "", "object storage secret key")
	mediaUseSSL := flag.Bool("media-use-ssl", false, "enable TLS for object storage requests")
	mediaTimeout := flag.Duration("media-timeout", 0, "timeout for object storage requests")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("CLIPSTREAM_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("CLIPSTREAM_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")

	tokens, err := auth.NewIssuer(auth.Config{
		AccessSecret:  []byte(firstNonEmpty(*accessSecret, os.Getenv("CLIPSTREAM_ACCESS_TOKEN_SECRET"))),
		RefreshSecret: []byte(firstNonEmpty(*refreshSecret, os.Getenv("CLIPSTREAM_REFRESH_TOKEN_SECRET"))),
		AccessTTL:     resolveDuration(*accessTTL, "CLIPSTREAM_ACCESS_TOKEN_TTL", 0),
		RefreshTTL:    resolveDuration(*refreshTTL, "CLIPSTREAM_REFRESH_TOKEN_TTL", 0),
	})
	if err != nil {
		logger.Error("failed to configure token issuer", "error", err)
		os.Exit(1)
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("CLIPSTREAM_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}

	var store storage.Repository
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("CLIPSTREAM_DATA"))
		store, err = storage.NewStorage(dataFile)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		store, err = storage.NewPostgresRepository(storage.PostgresConfig{
			DSN:             postgresDefaultDSN,
			MaxConnections:  int32(resolveInt(*postgresMaxConns, "CLIPSTREAM_POSTGRES_MAX_CONNS")),
			MinConnections:  int32(resolveInt(*postgresMinConns, "CLIPSTREAM_POSTGRES_MIN_CONNS")),
			MaxConnLifetime: resolveDuration(*postgresMaxConnLifetime, "CLIPSTREAM_POSTGRES_MAX_CONN_LIFETIME", 0),
			MaxConnIdleTime: resolveDuration(*postgresMaxConnIdle, "CLIPSTREAM_POSTGRES_MAX_CONN_IDLE", 0),
			ConnectTimeout:  resolveDuration(*postgresConnectTimeout, "CLIPSTREAM_POSTGRES_CONNECT_TIMEOUT", 0),
			ApplicationName: firstNonEmpty(*postgresAppName, os.Getenv("CLIPSTREAM_POSTGRES_APP_NAME")),
		})
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	uploader := media.NewUploader(media.Config{
		Endpoint:       firstNonEmpty(*mediaEndpoint, os.Getenv("CLIPSTREAM_MEDIA_ENDPOINT")),
		PublicEndpoint: firstNonEmpty(*mediaPublicEndpoint, os.Getenv("CLIPSTREAM_MEDIA_PUBLIC_ENDPOINT")),
		Bucket:         firstNonEmpty(*mediaBucket, os.Getenv("CLIPSTREAM_MEDIA_BUCKET")),
		Prefix:         firstNonEmpty(*mediaPrefix, os.Getenv("CLIPSTREAM_MEDIA_PREFIX")),
		Region:         firstNonEmpty(*mediaRegion, os.Getenv("CLIPSTREAM_MEDIA_REGION")),
		AccessKey:      firstNonEmpty(*mediaAccessKey, os.Getenv("CLIPSTREAM_MEDIA_ACCESS_KEY")),
		SecretKey:      firstNonEmpty(*mediaSecretKey, os.Getenv("CLIPSTREAM_MEDIA_SECRET_KEY")),
		UseSSL:         resolveBool(*mediaUseSSL, "CLIPSTREAM_MEDIA_USE_SSL"),
		RequestTimeout: resolveDuration(*mediaTimeout, "CLIPSTREAM_MEDIA_TIMEOUT", 0),
	})
	if !uploader.Enabled() {
		logger.Warn("object storage not configured, uploads disabled")
	}

	handler := api.NewHandler(store, tokens, uploader, logger)

	listenAddr := firstNonEmpty(*addr, os.Getenv("CLIPSTREAM_ADDR"))
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("CLIPSTREAM_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("CLIPSTREAM_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "CLIPSTREAM_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "CLIPSTREAM_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "CLIPSTREAM_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "CLIPSTREAM_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("CLIPSTREAM_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("CLIPSTREAM_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*redisTimeout, "CLIPSTREAM_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		CORS: server.CORSConfig{
			AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("CLIPSTREAM_CORS_ORIGINS"))),
		},
		Logger:      logger,
		AuditLogger: auditLogger,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Clipstream API listening", "addr", listenAddr, "storage", driver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errs:
		logger.Error("server error", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if closer, ok := store.(interface{ Close() }); ok {
		closer.Close()
	}

	logger.Info("server stopped")
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if postgresDSN != "" {
		return "postgres", nil
	}
	return "json", nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("CLIPSTREAM_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	return fallback
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
