package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/pantry-service/api/pantryv1"
	"github.com/fekuna/pantry-service/config"
	"github.com/fekuna/pantry-service/internal/health"
	"github.com/fekuna/pantry-service/internal/item"
	"github.com/fekuna/pantry-service/internal/ledger"
	"github.com/fekuna/pantry-service/internal/store/memory"
	"github.com/fekuna/pantry-service/internal/sync"
	"github.com/fekuna/pantry-service/internal/sync/idempotency"
	"github.com/fekuna/pantry-service/internal/watermark"
	"github.com/fekuna/pantry-service/pkg/cache"
	"github.com/fekuna/pantry-service/pkg/database/postgres"
	"github.com/fekuna/pantry-service/pkg/logger"
	"github.com/fekuna/pantry-service/pkg/middleware"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	itemRepoPkg "github.com/fekuna/pantry-service/internal/item/repository"
	itemUCPkg "github.com/fekuna/pantry-service/internal/item/usecase"

	ledgerH "github.com/fekuna/pantry-service/internal/ledger/handler"
	ledgerListenerPkg "github.com/fekuna/pantry-service/internal/ledger/listener"
	ledgerRepoPkg "github.com/fekuna/pantry-service/internal/ledger/repository"
	ledgerUCPkg "github.com/fekuna/pantry-service/internal/ledger/usecase"

	syncH "github.com/fekuna/pantry-service/internal/sync/handler"
	syncRepoPkg "github.com/fekuna/pantry-service/internal/sync/repository"
	syncUCPkg "github.com/fekuna/pantry-service/internal/sync/usecase"
)

func serveAction(_ *cli.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadEnv()
	if err != nil {
		return cli.Exit(fmt.Sprintf("load config: %v", err), 1)
	}

	// 2. Initialize Logger
	appLogger := newLogger(cfg)
	defer appLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var checks []health.Check

	// 3. Initialize Repositories
	var (
		itemRepo   item.Repository
		ledgerRepo ledger.Repository
		syncRepo   sync.Repository
	)
	switch cfg.Store.Driver {
	case "postgres":
		db, err := postgres.NewPostgres(postgresConfig(cfg))
		if err != nil {
			appLogger.Fatal("Could not connect to database", zap.Error(err))
		}
		defer db.Close()
		appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

		itemRepo = itemRepoPkg.NewPGRepository(db)
		ledgerRepo = ledgerRepoPkg.NewPGRepository(db)
		syncRepo = syncRepoPkg.NewPGRepository(db)
		checks = append(checks, health.Check{Name: "postgres", Ping: db.PingContext})
	case "memory":
		store := memory.New()
		itemRepo = store.Items()
		ledgerRepo = store.Ledger()
		syncRepo = store.Syncs()
		appLogger.Warn("Using in-memory store, data is lost on restart")
	default:
		return cli.Exit(fmt.Sprintf("unknown store driver %q", cfg.Store.Driver), 1)
	}

	// 4. Initialize Redis
	var redisClient *cache.RedisClient
	if cfg.Sync.IdempotencyDriver == "redis" || cfg.Listener.Enabled {
		redisClient, err = cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Fatal("Could not connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		checks = append(checks, health.Check{Name: "redis", Ping: redisClient.Ping})
	}

	// 5. Initialize Idempotency Store
	g, ctx := errgroup.WithContext(ctx)

	var ops idempotency.Store
	switch cfg.Sync.IdempotencyDriver {
	case "redis":
		ops = idempotency.NewRedisStore(redisClient, cfg.Sync.IdempotencyTTL)
	case "bolt":
		boltStore, err := idempotency.OpenBoltStore(cfg.Sync.BoltPath, cfg.Sync.IdempotencyTTL)
		if err != nil {
			appLogger.Fatal("Could not open idempotency store", zap.String("path", cfg.Sync.BoltPath), zap.Error(err))
		}
		defer boltStore.Close()
		ops = boltStore
		g.Go(func() error {
			purgeExpired(ctx, boltStore, cfg.Sync.PurgeInterval, appLogger)
			return nil
		})
	case "memory":
		ops = idempotency.NewMemoryStore(cfg.Sync.IdempotencyTTL)
	default:
		return cli.Exit(fmt.Sprintf("unknown idempotency driver %q", cfg.Sync.IdempotencyDriver), 1)
	}

	// 6. Initialize UseCases
	writes := watermark.NewTracker(cfg.Sync.CommitLag)
	itemUC := itemUCPkg.NewItemUseCase(itemRepo, writes, appLogger)
	ledgerUC := ledgerUCPkg.NewLedgerUseCase(ledgerRepo, itemRepo, writes, appLogger)
	syncUC := syncUCPkg.NewSyncUseCase(syncRepo, ledgerUC, itemUC, ops, writes, appLogger)

	// 7. Start Listener
	if cfg.Listener.Enabled {
		listener := ledgerListenerPkg.NewConsumptionListener(redisClient.Client, ledgerListenerPkg.Config{
			Stream:     cfg.Listener.Stream,
			Group:      cfg.Listener.Group,
			Consumer:   cfg.Listener.Consumer,
			Batch:      cfg.Listener.Batch,
			Block:      cfg.Listener.Block,
			RetryAfter: cfg.Listener.RetryAfter,
		}, ledgerUC, ops, appLogger)
		g.Go(func() error { return listener.Start(ctx) })
	}

	// 8. Start gRPC Server
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			middleware.ContextInterceptor(),
			middleware.LoggingInterceptor(appLogger),
		),
	)
	pantryv1.RegisterLedgerServiceServer(grpcServer, ledgerH.NewLedgerHandler(ledgerUC, appLogger))
	pantryv1.RegisterSyncServiceServer(grpcServer, syncH.NewSyncHandler(syncUC, appLogger))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", addr(cfg.Server.GRPCPort))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to listen: %v", err), 1)
	}
	g.Go(func() error {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.Server.GRPCPort))
		return grpcServer.Serve(lis)
	})

	// 9. Start Health Server
	httpServer := &http.Server{
		Addr:              addr(cfg.Server.HTTPPort),
		Handler:           health.Router(appLogger, checks...),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		appLogger.Info("Starting health server", zap.String("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful Shutdown
	g.Go(func() error {
		<-ctx.Done()
		appLogger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-shutdownCtx.Done():
			appLogger.Warn("Graceful stop timed out, forcing")
			grpcServer.Stop()
		}
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		appLogger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	appLogger.Info("Server stopped")
	return nil
}

func purgeExpired(ctx context.Context, store *idempotency.BoltStore, every time.Duration, log logger.ZapLogger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Purge()
			if err != nil {
				log.Error("Failed to purge idempotency records", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Debug("Purged idempotency records", zap.Int("count", n))
			}
		}
	}
}

func addr(port string) string {
	if !strings.HasPrefix(port, ":") && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
