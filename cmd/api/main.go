package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/certification-service/internal/api/http"
	"github.com/spec-kit/certification-service/internal/api/http/handlers"
	"github.com/spec-kit/certification-service/internal/auth"
	"github.com/spec-kit/certification-service/internal/catalog"
	"github.com/spec-kit/certification-service/internal/certificate"
	"github.com/spec-kit/certification-service/internal/chat"
	"github.com/spec-kit/certification-service/internal/config"
	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/events"
	"github.com/spec-kit/certification-service/internal/notify"
	"github.com/spec-kit/certification-service/internal/observability"
	"github.com/spec-kit/certification-service/internal/persistence"
	"github.com/spec-kit/certification-service/internal/repository"
	"github.com/spec-kit/certification-service/internal/repository/memstore"
	"github.com/spec-kit/certification-service/internal/service"
	"github.com/spec-kit/certification-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var store repository.Store
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(pg.Pool, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		store = repository.NewPostgresStore(pg.Pool)
	} else {
		store = memstore.New(time.Now)
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	arango, err := persistence.NewArango(ctx, cfg.Arango, logger)
	if err != nil {
		logger.Fatal("failed to connect arangodb", zap.Error(err))
	}
	var standards catalog.Catalog = catalog.NewMemoryCatalog()
	if arango.Enabled() {
		standards = catalog.NewArangoCatalog(arango.DB, arango.Collection, logger)
	}

	var mirrors []events.Mirror
	var revocationCache auth.RevocationCache
	var history chat.History = chat.NewMemoryHistory(cfg.Chat.HistoryTTL, time.Now)
	if redis.Enabled() {
		mirrors = append(mirrors, events.NewRedisStreamPublisher(redis.Client, cfg.Notification.EventStream, logger))
		revocationCache = auth.NewRedisRevocationCache(redis.Client, cfg.Redis.KeyPrefix)
		history = chat.NewRedisHistory(redis.Client, cfg.Redis.KeyPrefix, cfg.Chat.HistoryTTL)
	}
	dispatcher := events.NewInMemoryDispatcher(mirrors...)

	sender := notify.NewSender(cfg.Notification, logger)
	worker.StartNotificationWorker(dispatcher, service.NewNotificationService(store, sender, logger, cfg.App.FrontendURL), metrics, logger)

	deps := service.Dependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	codec := auth.NewCodec(cfg.Auth.TokenSecret, nil)
	revocations := auth.NewRevocationList(store.RevokedTokens(), revocationCache, logger)

	authService := service.NewAuthService(service.AuthDependencies{
		Dependencies: deps,
		Tokens:       tokens,
		Codec:        codec,
		Revocations:  revocations,
		Config:       cfg.Auth,
	})
	invitationService := service.NewInvitationService(service.InvitationDependencies{
		Dependencies: deps,
		Codec:        codec,
		TTL:          cfg.Auth.InvitationTTL,
	})
	requestService := service.NewCreationRequestService(deps)
	directoryService := service.NewDirectoryService(deps)
	auditService := service.NewAuditService(service.AuditDependencies{Dependencies: deps, Catalog: standards})
	certificationService := service.NewCertificationService(service.CertificationDependencies{
		Dependencies: deps,
		Renderer:     certificate.NewPDFRenderer(cfg.Certificates.OutputDir),
	})
	standardsService := service.NewStandardsService(deps, standards)
	chatService := service.NewChatService(newChatDependencies(deps, cfg.Chat, history, logger))

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		created, err := authService.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.FullName, cfg.Admin.Password)
		if err != nil {
			logger.Fatal("failed to seed admin", zap.Error(err))
		}
		if created {
			logger.Info("seeded admin account", zap.String("email", cfg.Admin.Email))
		}
	}

	janitorDone := worker.StartRevokedTokenJanitor(ctx, store.RevokedTokens(), cfg.Auth.RevokedTokenSweepTTL, time.Now, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	checks := []handlers.Check{{Name: "store", Ping: store.Ping}}
	if redis.Enabled() {
		checks = append(checks, handlers.Check{Name: "redis", Ping: redis.Ping})
	}
	if arango.Enabled() {
		checks = append(checks, handlers.Check{Name: "arangodb", Ping: arango.Ping})
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:              handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks...),
		Auth:                handlers.NewAuthHandler(authService),
		Admin:               handlers.NewAdminHandler(requestService, directoryService),
		Organizations:       handlers.NewEntityHandler(domain.EntityOrganization, requestService, invitationService, directoryService),
		CertificationBodies: handlers.NewEntityHandler(domain.EntityCertificationBody, requestService, invitationService, directoryService),
		Audits:              handlers.NewAuditsHandler(auditService),
		Certifications:      handlers.NewCertificationsHandler(certificationService),
		Standards:           handlers.NewStandardsHandler(standardsService, chatService),
		AuthMiddleware:      auth.NewAuthMiddleware(tokens, revocations, store.Users()),
		Metrics:             metrics,
		RateLimit:           cfg.RateLimit,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancel()
	<-janitorDone
}

// newChatDependencies leaves the assistant unset when no API key is configured,
// which makes the chat endpoint answer 503.
func newChatDependencies(deps service.Dependencies, cfg config.ChatConfig, history chat.History, logger *zap.Logger) service.ChatDependencies {
	chatDeps := service.ChatDependencies{
		Dependencies: deps,
		History:      history,
		MaxTurns:     cfg.HistoryMaxTurns,
	}
	if cfg.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not provided; chat assistant disabled")
		return chatDeps
	}
	ids, err := chat.NewSessionIDs(cfg.NodeID)
	if err != nil {
		logger.Fatal("invalid chat node id", zap.Error(err))
	}
	chatDeps.Assistant = chat.NewOpenAIAssistant(cfg.APIKey, cfg.BaseURL, cfg.Model)
	chatDeps.SessionIDs = ids
	return chatDeps
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
