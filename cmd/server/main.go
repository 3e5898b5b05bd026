package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/deskcore/backend/api/handler"
	"github.com/deskcore/backend/internal/config"
	"github.com/deskcore/backend/internal/infrastructure/blob"
	"github.com/deskcore/backend/internal/infrastructure/monitor"
	pgInfra "github.com/deskcore/backend/internal/infrastructure/postgres"
	redisInfra "github.com/deskcore/backend/internal/infrastructure/redis"
	"github.com/deskcore/backend/internal/middleware"
	"github.com/deskcore/backend/internal/router"
	"github.com/deskcore/backend/internal/services"
	"github.com/deskcore/backend/internal/services/lifecycle"
	"github.com/deskcore/backend/pkg/httpcontext"
	"github.com/deskcore/backend/pkg/logger"
	"github.com/deskcore/backend/pkg/security"
	"github.com/deskcore/backend/repository/postgres"
	redisRepo "github.com/deskcore/backend/repository/redis"
	"github.com/deskcore/backend/usecase"
	authUC "github.com/deskcore/backend/usecase/auth"
	datasetUC "github.com/deskcore/backend/usecase/dataset"
	ticketUC "github.com/deskcore/backend/usecase/ticket"
	userUC "github.com/deskcore/backend/usecase/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
		Service:  cfg.AppName,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pgInfra.Close(pool, zapLogger)
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis, zapLogger)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.RegisterCloser("redis", redisClient)

	blobStore, err := blob.Open(cfg.Blob.Path, cfg.Blob.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open blob store", zap.Error(err))
	}
	manager.RegisterCloser("blob_store", blobStore)

	mon := monitor.New(pool, redisClient, blobStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	ticketRepo := postgres.NewTicketRepository(pool)
	datasetRepo := postgres.NewDatasetRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	sessionRepo := redisRepo.NewSessionRepository(redisClient, cfg.Session.TTL)

	txManager := pgInfra.NewTxManager(pool)
	dispatcher := usecase.NewEventDispatcher(zapLogger)
	services.RegisterAuditHandlers(dispatcher, services.NewAuditWriter(auditRepo, zapLogger))

	issueToken := security.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL)

	authUseCase := authUC.New(userRepo, sessionRepo, txManager, dispatcher,
		security.HashPassword, security.VerifyPassword, issueToken, usecase.UTCNow, zapLogger)
	userUseCase := userUC.New(userRepo, txManager, dispatcher,
		security.HashPassword, usecase.UTCNow, zapLogger)
	ticketUseCase := ticketUC.New(ticketRepo, userRepo, blobStore, txManager, dispatcher,
		usecase.UTCNow, zapLogger, cfg.Upload.MaxSize)
	datasetUseCase := datasetUC.New(datasetRepo, userRepo, txManager, dispatcher,
		usecase.UTCNow, zapLogger)

	worker := services.NewFinetuneWorker(datasetUseCase, datasetRepo, nil, mon, zapLogger,
		services.FinetuneConfig{
			Interval:  cfg.Finetune.Interval,
			BatchSize: cfg.Finetune.BatchSize,
		})
	worker.Start()
	manager.Register("finetune_worker", func(ctx context.Context) error {
		worker.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger, cfg.Session.TTL),
		User:    apiHandler.NewUserHandler(userUseCase, ctxAdapter, zapLogger),
		Ticket:  apiHandler.NewTicketHandler(ticketUseCase, ctxAdapter, zapLogger),
		Dataset: apiHandler.NewDatasetHandler(datasetUseCase, ctxAdapter, zapLogger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		MaxRequestBodySize: int(cfg.Upload.MaxSize) + 1<<20,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
