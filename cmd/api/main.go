package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aniladanir/webhook-inbox/internal/cache"
	memoryCache "github.com/aniladanir/webhook-inbox/internal/cache/memory"
	redisCache "github.com/aniladanir/webhook-inbox/internal/cache/redis"
	"github.com/aniladanir/webhook-inbox/internal/conversation"
	"github.com/aniladanir/webhook-inbox/internal/domain"
	httpHandler "github.com/aniladanir/webhook-inbox/internal/handler/http"
	"github.com/aniladanir/webhook-inbox/internal/persistant/postgresql"
	messageRepo "github.com/aniladanir/webhook-inbox/internal/repository/message"
	"github.com/aniladanir/webhook-inbox/internal/service"
	"gorm.io/gorm"
)

var (
	configFile = flag.String("config", "config.json", "config file path")
)

func main() {
	// create root context
	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	// listen for terminate signal
	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// parse flags
	flag.Parse()

	// parse config
	config, err := ReadConfigJson(*configFile)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// initialize external dependencies
	db, summaryCache, err := initExternalDependencies(notifyCtx, config, logger)
	if err != nil {
		log.Fatalf("failed to initialize external dependencies: %v", err)
	}

	// init message repository
	var msgRepo messageRepo.Repository
	if db != nil {
		msgRepo = messageRepo.NewMessageRepository(db)
	} else {
		msgRepo = messageRepo.NewMemoryRepository()
	}

	// init conversation index
	var index conversation.Index
	switch config.IndexMode {
	case indexModeScan:
		index = conversation.NewScanIndex(msgRepo)
	default:
		index = conversation.NewCachedIndex(
			msgRepo,
			summaryCache,
			config.SummaryTTL,
			logger.With(slog.String("component", "conversationIndex")),
		)
	}

	// init ingestion pipeline
	pipeline := service.NewPipeline(
		msgRepo,
		index,
		logger.With(slog.String("component", "pipeline")),
		service.Options{
			StoreTimeout:     config.StoreTimeout,
			Workers:          config.IngestWorkers,
			PageSize:         config.MessagePageSize,
			SubscriberBuffer: config.SubscriberBuffer,
			Operator: domain.Profile{
				DisplayName: config.OperatorName,
				Identity:    config.OperatorID,
			},
		},
	)
	if err := pipeline.Start(notifyCtx); err != nil {
		log.Fatalf("failed to start pipeline: %v", err)
	}

	// init http handler
	httpHandler := httpHandler.NewHttpHandler(
		fmt.Sprintf(":%d", config.HttpPort),
		pipeline,
		config.VerifyToken,
		logger.With(slog.String("component", "httpHandler")),
	)

	wg := sync.WaitGroup{}
	// run http handler
	wg.Go(func() {
		if err := httpHandler.Run(); err != nil {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		// cancel app context if http handler fails
		appCtxCancel()
	})

	// graceful shutdown
	wg.Go(func() {
		<-notifyCtx.Done()
		logger.Info("application shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		httpHandler.Shutdown(shutDownCtx)
		pipeline.Stop()
		if db != nil {
			postgresql.Close(db)
		}
		if c, ok := summaryCache.(*redisCache.RedisCache); ok {
			c.Close()
		}
	})

	wg.Wait()
	os.Exit(0)
}

func initExternalDependencies(ctx context.Context, config *Config, logger *slog.Logger) (db *gorm.DB, summaryCache cache.Cache, err error) {
	// initialize database
	if config.DbConnString != "" {
		db, err = postgresql.Initialize(ctx, config.DbConnString, config.DbConnectAttempts, []any{&domain.Message{}})
		if err != nil {
			return
		}
	} else {
		logger.Warn("no db_conn_string configured, messages are kept in memory")
	}

	// initialize cache
	if config.RedisAddr != "" {
		summaryCache, err = redisCache.NewRedisCache(ctx, config.RedisAddr)
	} else {
		summaryCache = memoryCache.NewMemoryCache()
	}

	return
}
