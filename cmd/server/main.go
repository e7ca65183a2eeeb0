// Command server starts the Seedvault API HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"seedvault/internal/api"
	"seedvault/internal/auth"
	"seedvault/internal/mail"
	"seedvault/internal/models"
	"seedvault/internal/notify"
	"seedvault/internal/observability/logging"
	"seedvault/internal/observability/metrics"
	"seedvault/internal/server"
	"seedvault/internal/storage"
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
	postgresHealthInterval := flag.Duration("postgres-health-interval", 0, "interval between Postgres health checks")
	postgresAcquireTimeout := flag.Duration("postgres-acquire-timeout", 0, "timeout when acquiring a Postgres connection from the pool")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory or postgres)")
	sessionPostgresDSN := flag.String("session-postgres-dsn", "", "Postgres DSN for the session store")
	sessionTTL := flag.Duration("session-ttl", 0, "lifetime of issued session tokens")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	uploadDir := flag.String("upload-dir", "", "directory for torrent and NFO artifacts")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	redisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	redisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	redisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for Redis operations")
	mailQueueDriver := flag.String("mail-queue-driver", "", "mail queue driver (memory or redis)")
	mailRedisAddr := flag.String("mail-queue-redis-addr", "", "Redis address for mail queue transport")
	mailRedisAddrs := flag.String("mail-queue-redis-addrs", "", "comma separated Redis addresses for mail queue transport")
	mailRedisUsername := flag.String("mail-queue-redis-username", "", "Redis username for mail queue")
	mailRedisPassword := flag.String("mail-queue-redis-password", "", "Redis password for mail queue")
	mailRedisStream := flag.String("mail-queue-redis-stream", "", "Redis stream key for mail queue events")
	mailRedisGroup := flag.String("mail-queue-redis-group", "", "Redis consumer group for mail queue")
	corsOrigins := flag.String("cors-allowed-origins", "", "comma separated origins allowed to call the API cross-site")
	flag.Parse()

	logger := logging.Init(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("SEEDVAULT_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("SEEDVAULT_LOG_FORMAT")),
	})
	auditLogger := logging.WithComponent(logger, "audit")
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("SEEDVAULT_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("SEEDVAULT_ADDR"))

	tlsCertPath := firstNonEmpty(*tlsCert, os.Getenv("SEEDVAULT_TLS_CERT"))
	tlsKeyPath := firstNonEmpty(*tlsKey, os.Getenv("SEEDVAULT_TLS_KEY"))

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver := resolveStorageDriver(*storageDriver, os.Getenv("SEEDVAULT_STORAGE_DRIVER"), postgresDefaultDSN)
	if serverMode == "production" {
		if err := validateProductionDatastore(driver, postgresDefaultDSN); err != nil {
			logger.Error("production datastore validation failed", "error", err)
			os.Exit(1)
		}
	}

	var (
		store              storage.Repository
		storagePostgresDSN string
		err                error
	)
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("SEEDVAULT_DATA"))
		store, err = storage.NewJSONRepository(dataFile)
	case "postgres":
		storagePostgresDSN = postgresDefaultDSN
		if storagePostgresDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		var pgOptions []storage.Option
		maxConns := resolveInt(*postgresMaxConns, "SEEDVAULT_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "SEEDVAULT_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolLimits(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "SEEDVAULT_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "SEEDVAULT_POSTGRES_MAX_CONN_IDLE", 0)
		healthInterval := resolveDuration(*postgresHealthInterval, "SEEDVAULT_POSTGRES_HEALTH_INTERVAL", 0)
		if maxLifetime > 0 || maxIdle > 0 || healthInterval > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval))
		}
		acquireTimeout := resolveDuration(*postgresAcquireTimeout, "SEEDVAULT_POSTGRES_ACQUIRE_TIMEOUT", 0)
		if acquireTimeout > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresAcquireTimeout(acquireTimeout))
		}
		appName := firstNonEmpty(*postgresAppName, os.Getenv("SEEDVAULT_POSTGRES_APP_NAME"))
		if appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		store, err = storage.NewPostgresRepository(storagePostgresDSN, pgOptions...)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionConfig, err := resolveSessionStoreConfig(
		*sessionStoreDriver,
		os.Getenv("SEEDVAULT_SESSION_STORE"),
		driver,
		storagePostgresDSN,
		*sessionPostgresDSN,
		os.Getenv("SEEDVAULT_SESSION_POSTGRES_DSN"),
	)
	if err != nil {
		logger.Error("failed to resolve session store", "error", err)
		os.Exit(1)
	}

	var (
		sessionStore  auth.SessionStore
		sessionCloser func(context.Context) error
	)
	switch sessionConfig.Driver {
	case "memory":
		sessionStore = auth.NewMemorySessionStore()
	case "postgres":
		pgStore, err := auth.NewPostgresSessionStore(sessionConfig.DSN)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		sessionStore = pgStore
		sessionCloser = func(ctx context.Context) error { return pgStore.Close(ctx) }
	default:
		logger.Error("unsupported session store driver", "driver", sessionConfig.Driver)
		os.Exit(1)
	}

	ttl := resolveDuration(*sessionTTL, "SEEDVAULT_SESSION_TTL", 24*time.Hour)
	sessions := auth.NewSessionManager(ttl, auth.WithStore(sessionStore))

	mailQueueCfg := notify.RedisQueueConfig{
		Addr:     firstNonEmpty(*mailRedisAddr, os.Getenv("SEEDVAULT_MAIL_QUEUE_REDIS_ADDR")),
		Addrs:    splitAndTrim(firstNonEmpty(*mailRedisAddrs, os.Getenv("SEEDVAULT_MAIL_QUEUE_REDIS_ADDRS"))),
		Username: firstNonEmpty(*mailRedisUsername, os.Getenv("SEEDVAULT_MAIL_QUEUE_REDIS_USERNAME")),
		Password: firstNonEmpty(*mailRedisPassword, os.Getenv("SEEDVAULT_MAIL_QUEUE_REDIS_PASSWORD")),
		Stream:   firstNonEmpty(*mailRedisStream, os.Getenv("SEEDVAULT_MAIL_QUEUE_REDIS_STREAM")),
		Group:    firstNonEmpty(*mailRedisGroup, os.Getenv("SEEDVAULT_MAIL_QUEUE_REDIS_GROUP")),
	}
	queue, err := configureMailQueue(firstNonEmpty(*mailQueueDriver, os.Getenv("SEEDVAULT_MAIL_QUEUE_DRIVER")), mailQueueCfg, logger)
	if err != nil {
		logger.Error("failed to configure mail queue", "error", err)
		os.Exit(1)
	}

	mailer := mail.NewSMTPMailer(func() models.SMTPSettings {
		return store.GetSiteConfig().SMTP
	})

	handler := api.NewHandler(store, sessions)
	handler.Logger = logging.WithComponent(logger, "api")
	handler.Notifier = notify.NewNotifier(store, queue, logging.WithComponent(logger, "notify"))
	handler.Mailer = mailer
	handler.UploadDir = firstNonEmpty(*uploadDir, os.Getenv("SEEDVAULT_UPLOAD_DIR"))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	sessionPurgeStop := startSessionPurgeWorker(workerCtx, logging.WithComponent(logger, "session-purger"), sessions, 15*time.Minute)
	defer sessionPurgeStop()
	go notify.NewWorker(queue, mailer, logging.WithComponent(logger, "mail-worker")).Run(workerCtx)

	rateCfg := server.RateLimitConfig{
		GlobalRPS:     resolveFloat(*globalRPS, "SEEDVAULT_RATE_GLOBAL_RPS"),
		GlobalBurst:   resolveInt(*globalBurst, "SEEDVAULT_RATE_GLOBAL_BURST"),
		LoginLimit:    resolveInt(*loginLimit, "SEEDVAULT_RATE_LOGIN_LIMIT"),
		LoginWindow:   resolveDuration(*loginWindow, "SEEDVAULT_RATE_LOGIN_WINDOW", time.Minute),
		RedisAddr:     firstNonEmpty(*redisAddr, os.Getenv("SEEDVAULT_RATE_REDIS_ADDR")),
		RedisPassword: firstNonEmpty(*redisPassword, os.Getenv("SEEDVAULT_RATE_REDIS_PASSWORD")),
		RedisTimeout:  resolveDuration(*redisTimeout, "SEEDVAULT_RATE_REDIS_TIMEOUT", 2*time.Second),
	}

	corsCfg := server.CORSConfig{
		AllowedOrigins: splitAndTrim(firstNonEmpty(*corsOrigins, os.Getenv("SEEDVAULT_CORS_ALLOWED_ORIGINS"))),
	}

	srv, err := server.New(handler, server.Config{
		Addr:        listenAddr,
		TLS:         server.TLSConfig{CertFile: tlsCertPath, KeyFile: tlsKeyPath},
		RateLimit:   rateCfg,
		CORS:        corsCfg,
		Logger:      logger,
		AuditLogger: auditLogger,
		Metrics:     recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Seedvault API listening", "addr", listenAddr, "mode", serverMode)
		if tlsCertPath != "" && tlsKeyPath != "" {
			logger.Info("TLS enabled", "cert_file", tlsCertPath)
		}
		logger.Info("metrics endpoint available", "path", "/metrics")
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

	workerCancel()
	sessionPurgeStop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}

	if closer, ok := store.(interface{ Close(context.Context) error }); ok {
		if err := closer.Close(ctx); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	} else if closer, ok := store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Warn("failed to close datastore", "error", err)
		}
	}

	if sessionCloser != nil {
		if err := sessionCloser(ctx); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

type sessionStoreConfig struct {
	Driver string
	DSN    string
}

func resolveSessionStoreConfig(flagDriver, envDriver, storageDriver, storageDSN, flagDSN, envDSN string) (sessionStoreConfig, error) {
	driver := strings.ToLower(strings.TrimSpace(flagDriver))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envDriver))
	}

	sessionDSN := strings.TrimSpace(firstNonEmpty(flagDSN, envDSN))
	if driver == "" {
		switch {
		case sessionDSN != "":
			driver = "postgres"
		case storageDriver == "postgres":
			driver = "postgres"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "", "memory":
		return sessionStoreConfig{Driver: "memory"}, nil
	case "postgres":
		if sessionDSN == "" {
			sessionDSN = strings.TrimSpace(storageDSN)
		}
		if sessionDSN == "" {
			return sessionStoreConfig{}, fmt.Errorf("postgres session store selected without DSN")
		}
		return sessionStoreConfig{Driver: "postgres", DSN: sessionDSN}, nil
	default:
		return sessionStoreConfig{}, fmt.Errorf("unsupported session store driver %q", driver)
	}
}

func configureMailQueue(driver string, cfg notify.RedisQueueConfig, logger *slog.Logger) (notify.Queue, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "redis":
		if len(cfg.Addrs) == 0 && strings.TrimSpace(cfg.Addr) == "" {
			return nil, fmt.Errorf("redis addr is required for mail queue")
		}
		cfg.Logger = logging.WithComponent(logger, "mail-queue")
		queue, err := notify.NewRedisQueue(cfg)
		if err != nil {
			return nil, err
		}
		return queue, nil
	case "", "memory":
		return notify.NewMemoryQueue(128), nil
	default:
		return nil, fmt.Errorf("unsupported mail queue driver %q", driver)
	}
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) string {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres"
	}
	return "json"
}

func validateProductionDatastore(driver, resolvedPostgresDSN string) error {
	if driver != "postgres" {
		return fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	if strings.TrimSpace(resolvedPostgresDSN) == "" {
		return fmt.Errorf("postgres storage selected without DSN")
	}
	return nil
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
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("SEEDVAULT_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
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
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
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
	if fallback > 0 {
		return fallback
	}
	return 0
}
