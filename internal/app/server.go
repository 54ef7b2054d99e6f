// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"shopfloor-service/internal/config"
	"shopfloor-service/internal/db"
	"shopfloor-service/internal/events"
	authHandler "shopfloor-service/internal/handlers/auth"
	eventsHandler "shopfloor-service/internal/handlers/events"
	factoryHandler "shopfloor-service/internal/handlers/factory"
	productionHandler "shopfloor-service/internal/handlers/production"
	scanHandler "shopfloor-service/internal/handlers/scan"
	"shopfloor-service/internal/middleware"
	"shopfloor-service/internal/obs"
	"shopfloor-service/internal/pkg/qrtoken"
	"shopfloor-service/internal/pkg/session"
	"shopfloor-service/internal/repository/postgres"
	assignmentUsecase "shopfloor-service/internal/service/assignment"
	auditUsecase "shopfloor-service/internal/service/audit"
	authUsecase "shopfloor-service/internal/service/auth"
	factoryUsecase "shopfloor-service/internal/service/factory"
	productionUsecase "shopfloor-service/internal/service/production"
	qrUsecase "shopfloor-service/internal/service/qr"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start(ctx context.Context) error {
	// ----- PostgreSQL -----
	pool, err := db.ConnectDB()
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	// ----- Redis (optional QR cache) -----
	var redisClient *redis.Client
	if s.cfg.RedisAddr != "" {
		redisClient, err = db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			DB:       0,
			PoolSize: 10,
		})
		if err != nil {
			log.Printf("[REDIS] connection failed, QR cache disabled: %v", err)
			redisClient = nil
		}
	}

	// ----- Logger -----
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	s.logger = logger

	// ----- Metrics -----
	obs.Init()

	// ----- Session Registry & Rate Limiter -----
	registry := session.NewRegistry(session.Config{
		MaxAge:           s.cfg.SessionMaxAge,
		IdleTimeout:      s.cfg.SessionIdle,
		RenewalThreshold: s.cfg.SessionRenewal,
		MaxPerUser:       s.cfg.SessionMaxPerUser,
		SweepInterval:    s.cfg.SessionSweep,
	}, logger)
	rateLimiter := session.NewRateLimiter()
	go registry.Run(ctx)
	go rateLimiter.Run(ctx, s.cfg.SessionSweep)
	go reportSessionGauge(ctx, registry)

	// ----- QR Codec -----
	if s.cfg.QRSecret == "" {
		return fmt.Errorf("QR_SIGNING_SECRET is required")
	}
	codec := qrtoken.NewCodec([]byte(s.cfg.QRSecret), "shopfloor")

	// ----- Repositories -----
	dbWrapper := postgres.NewDB(pool)
	userRepo := postgres.NewUserRepository(pool)
	factoryRepo := postgres.NewFactoryRepository(pool)
	assignmentRepo := postgres.NewAssignmentRepository(pool)
	productionRepo := postgres.NewProductionRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	// ----- Services (Usecases) -----
	auditWriter := auditUsecase.NewWriter(auditRepo, logger)
	qrService := qrUsecase.NewService(codec, redisClient, logger)
	authService := authUsecase.NewAuthService(
		userRepo,
		registry,
		rateLimiter,
		authUsecase.LoginPolicy{Window: s.cfg.LoginRateWindow, Max: int64(s.cfg.LoginRateMax)},
		auditWriter,
		logger,
	)
	resolverService := assignmentUsecase.NewService(
		dbWrapper,
		assignmentRepo,
		assignmentRepo,
		productionRepo,
		factoryRepo,
		auditWriter,
		logger,
	)
	factoryService := factoryUsecase.NewService(dbWrapper, factoryRepo, auditWriter, logger)
	productionService := productionUsecase.NewService(dbWrapper, productionRepo, assignmentRepo, auditWriter, logger)

	// ----- Change Feed -----
	broadcaster := events.NewBroadcaster(s.cfg.HeartbeatInterval, logger)
	go broadcaster.Run(ctx)

	listener := events.NewListener(pool, broadcaster, qrService, logger)
	listener.Start(ctx)

	// ----- Handlers -----
	authHandlerInst := authHandler.NewAuthHandler(authService, logger)
	scanHandlerInst := scanHandler.NewScanHandler(resolverService, qrService, logger)
	factoryHandlerInst := factoryHandler.NewFactoryHandler(factoryService, qrService)
	productionHandlerInst := productionHandler.NewProductionHandler(productionService)
	eventsHandlerInst := eventsHandler.NewEventsHandler(broadcaster, logger)

	// ----- Middlewares -----
	sessionMiddleware := middleware.NewSessionMiddleware(registry)

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
		obs.Instrument(),
		middleware.RateLimitMiddleware(rateLimiter, s.cfg.APIRateWindow, int64(s.cfg.APIRateMax)),
		sessionMiddleware.Resolve(),
	)

	// ----- Router -----
	handlers := &Handlers{
		AuthHandler:       authHandlerInst,
		ScanHandler:       scanHandlerInst,
		FactoryHandler:    factoryHandlerInst,
		ProductionHandler: productionHandlerInst,
		EventsHandler:     eventsHandlerInst,
		SessionMiddleware: sessionMiddleware,
	}
	SetupRouter(s.engine, logger, handlers)

	// ----- Start HTTP -----
	log.Printf("server running on %s", s.cfg.HTTPAddr)
	return s.engine.Run(s.cfg.HTTPAddr)
}

func reportSessionGauge(ctx context.Context, registry *session.Registry) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			obs.ActiveSessions.Set(float64(registry.Count()))
		}
	}
}
