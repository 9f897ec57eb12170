package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/skm-mango/storefront/internal/di"
	"github.com/skm-mango/storefront/internal/handlers"
	"github.com/skm-mango/storefront/internal/platform/auth"
	"github.com/skm-mango/storefront/internal/platform/config"
	"github.com/skm-mango/storefront/internal/platform/events"
	pfirestore "github.com/skm-mango/storefront/internal/platform/firestore"
	"github.com/skm-mango/storefront/internal/platform/idempotency"
	"github.com/skm-mango/storefront/internal/platform/observability"
	"github.com/skm-mango/storefront/internal/repositories"
	firestoreRepo "github.com/skm-mango/storefront/internal/repositories/firestore"
	"github.com/skm-mango/storefront/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")

	secretsDir := strings.TrimSpace(os.Getenv("API_SECRETS_DIR"))
	if secretsDir == "" {
		secretsDir = config.DefaultSecretsDir
	}
	cfg, err := config.Load(ctx, config.WithSecretResolver(config.FileSecretResolver(secretsDir)))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	buildInfo := buildInfoFromEnv(cfg, startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	pubsubClient, err := newPubSubClient(ctx, cfg.PubSub)
	if err != nil {
		logger.Fatal("failed to initialise pubsub client", zap.Error(err))
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logger.Warn("pubsub close error", zap.Error(err))
		}
	}()
	topic := pubsubClient.Topic(cfg.PubSub.Topic)
	defer topic.Stop()
	publisher, err := events.NewPubSubPublisher(topic)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}

	checks := []repositories.DependencyCheck{{Name: "pubsub", Optional: true, Check: publisher.Ping}}

	idempotencyLogger := logger.Named("idempotency")
	var idempotencyStore idempotency.Store
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	if addr := strings.TrimSpace(cfg.Redis.Addr); addr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
		redisStore, err := idempotency.NewRedisStore(redisClient)
		if err != nil {
			logger.Fatal("failed to initialise redis idempotency store", zap.Error(err))
		}
		idempotencyStore = redisStore
		checks = append(checks, repositories.DependencyCheck{Name: "redis", Check: redisStore.Ping})
	} else {
		idempotencyLogger.Warn("API_REDIS_ADDR not set; idempotency keys are kept in memory")
		memoryStore := idempotency.NewMemoryStore()
		idempotencyStore = memoryStore
		go idempotency.RunCleanup(cleanupCtx, memoryStore, cfg.Idempotency.CleanupInterval, cfg.Idempotency.CleanupBatchSize, idempotencyLogger)
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, checks...)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry,
		di.WithEvents(publisher),
		di.WithLogger(logger.Named("services")),
		di.WithBuildInfo(buildInfo),
	)
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("repository close error", zap.Error(err))
		}
	}()

	verifier, err := newTokenVerifier(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise token verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(verifier, auth.WithRoleClaim(cfg.Auth.RoleClaim))

	svc := container.Services
	catalogHandlers := handlers.NewCatalogHandlers(svc.Catalog)
	settingsHandlers := handlers.NewSettingsHandlers(svc.Settings)
	addressHandlers := handlers.NewAddressHandlers(svc.Addresses)
	orderHandlers := handlers.NewOrderHandlers(svc.Orders, handlers.WithOrderIdempotency(
		idempotency.Middleware(
			idempotencyStore,
			idempotency.WithHeader(cfg.Idempotency.Header),
			idempotency.WithTTL(cfg.Idempotency.TTL),
			idempotency.WithLogger(idempotencyLogger),
		),
	))
	adminHandlers := handlers.NewAdminHandlers(catalogHandlers, handlers.NewAdminOrderHandlers(svc.Orders), settingsHandlers)

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(svc.System),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithPublicRoutes(func(r chi.Router) {
			catalogHandlers.Routes(r)
			settingsHandlers.Routes(r)
		}),
		handlers.WithMeRoutes(addressHandlers.Routes, authenticator.RequireAuth()),
		handlers.WithOrderRoutes(orderHandlers.Routes, authenticator.RequireAuth()),
		handlers.WithAdminRoutes(adminHandlers.Routes, authenticator.RequireAuth(auth.RoleStaff, auth.RoleAdmin)),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("storefront api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")
	cleanupCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func buildInfoFromEnv(cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(os.Getenv("API_BUILD_VERSION"))
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(os.Getenv("API_BUILD_COMMIT_SHA"))
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newPubSubClient(ctx context.Context, cfg config.PubSubConfig) (*pubsub.Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	var opts []option.ClientOption
	if host := strings.TrimSpace(cfg.EmulatorHost); host != "" {
		opts = append(opts,
			option.WithoutAuthentication(),
			option.WithEndpoint(host),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
	}
	return pubsub.NewClient(ctx, projectID, opts...)
}

func newTokenVerifier(ctx context.Context, cfg config.Config) (auth.TokenVerifier, error) {
	switch cfg.Auth.Mode {
	case "jwt":
		var opts []auth.JWTOption
		if issuer := strings.TrimSpace(cfg.Auth.JWTIssuer); issuer != "" {
			opts = append(opts, auth.WithIssuer(issuer))
		}
		return auth.NewJWTVerifier(cfg.Auth.JWTSecret, opts...)
	case "firebase", "":
		return auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firestore.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firebase.ProjectID)
}
