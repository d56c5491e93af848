package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"bookshop-pos/config"
	"bookshop-pos/internal/api"
	"bookshop-pos/internal/broker"
	"bookshop-pos/internal/redisclient"
	"bookshop-pos/internal/service"
	"bookshop-pos/internal/store"
	"bookshop-pos/internal/util"
	"bookshop-pos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting bookshop service")

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	var tp *sdktrace.TracerProvider
	if cfg.Observ.JaegerEndpoint != "" {
		var err error
		tp, err = util.InitTracer(util.ServiceName, cfg.Observ.JaegerEndpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		util.ShutdownTracer(ctx, tp)
	}()

	db, err := store.NewStore(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	var locker service.TitleLocker = service.NewLocalLocker()
	if cfg.Redis.Enabled {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		defer redisClient.Close()
		locker = service.NewRedisLocker(redisClient, cfg.Redis.LockTTL)
		logger.Info("Redis connected, using distributed title locks", zap.String("addr", cfg.Redis.Addr))
	}

	var producer broker.Producer = broker.NopProducer{}
	if cfg.Kafka.Enabled {
		producer = broker.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicLedger)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	eventPublisher := broker.NewEventPublisher(producer)
	defer eventPublisher.Close()

	inventoryService := service.NewInventoryService(db, locker, eventPublisher, cfg.Business.AllowNegativeStock)

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	err = inventoryService.Seed(seedCtx)
	cancelSeed()
	if err != nil {
		return err
	}

	if cfg.Server.AdminToken == "" {
		logger.Warn("ADMIN_TOKEN is not set, admin endpoints are disabled")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(inventoryService, api.Options{
		AdminToken:     cfg.Server.AdminToken,
		RequestTimeout: cfg.Server.RequestTimeout,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})
	handler.SetupRoutes(router)

	corsHandler := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      corsHandler.Handler(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(nCtx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicLedger, cfg.Kafka.ConsumerGroup)
		auditWorker := worker.NewLedgerAuditWorker(consumer)
		g.Go(func() error {
			return auditWorker.Start(gCtx)
		})
		g.Go(func() error {
			<-gCtx.Done()
			return auditWorker.Stop()
		})
	}

	g.Go(func() error {
		<-gCtx.Done()

		if nCtx.Err() != nil {
			logger.Info("Shutting down server, reason: signal received")
		} else {
			logger.Info("Shutting down server, reason: component failed")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Server forced to shutdown", zap.Error(err))
			_ = srv.Close()
		}
		return nil
	})

	return g.Wait()
}
