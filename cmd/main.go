package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchgogo/backend/internal/api/handler"
	"matchgogo/backend/internal/bot"
	"matchgogo/backend/internal/cache"
	"matchgogo/backend/internal/chathub"
	"matchgogo/backend/internal/config"
	"matchgogo/backend/internal/geo"
	"matchgogo/backend/internal/likes"
	"matchgogo/backend/internal/localization"
	"matchgogo/backend/internal/logger"
	"matchgogo/backend/internal/models"
	"matchgogo/backend/internal/moderation"
	"matchgogo/backend/internal/profile"
	"matchgogo/backend/internal/ranking"
	"matchgogo/backend/internal/storage"
	"matchgogo/backend/internal/telegram"
	"matchgogo/backend/internal/transport"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	logger.InitFromConfig(cfg)
	log := logger.L()
	log.Info("starting matchgogo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", "err", err)
		os.Exit(1)
	}
	log.Info("stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Storage
	db, err := storage.Open(cfg.DatabaseURL, &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger:  gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return err
	}
	if err := storage.Reconcile(db, log.With("component", "migrate")); err != nil {
		return err
	}
	store := storage.NewStorageService(db)
	log.Info("database ready")

	// Cache
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = cache.NewRedisClient(cfg)
		defer rdb.Close()
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := rdb.Ping(pctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
	}
	var (
		c   cache.Cache
		bus *cache.Bus
	)
	switch {
	case cfg.Cache.Backend == "redis":
		c = cache.NewRedis(rdb, cfg.Cache.TTL)
	case rdb != nil:
		bus = cache.NewBus(cache.NewMemory(cfg.Cache.TTL), rdb, log.With("component", "cache"))
		c = bus
	default:
		c = cache.NewMemory(cfg.Cache.TTL)
	}
	log.Info("cache ready", "backend", cfg.Cache.Backend, "invalidation_bus", bus != nil)

	// Transport
	api, err := telegram.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}
	sender := telegram.NewSender(api, log.With("component", "telegram"))
	poller := telegram.NewPoller(api, log.With("component", "telegram"))

	loc, err := localization.NewBundled()
	if err != nil {
		return err
	}
	log.Info("translations loaded", "languages", loc.Languages())

	// Services
	b := bot.New(sender, loc, log.With("component", "bot"), bot.Options{
		Workers:  cfg.Workers,
		PageSize: config.DefaultPageLimit,
	})
	resolver := geo.NewResolver(
		geo.NewNominatim(cfg.Geocoder.URL, cfg.Geocoder.UserAgent),
		config.ForwardGeocodeTimeout, config.ReverseGeocodeTimeout,
		log.With("component", "geo"),
	)
	profiles := profile.NewService(store, c, resolver, log.With("component", "profile"))
	engine := ranking.NewEngine(store, profiles, c, ranking.Options{
		MaxDistanceKM:    cfg.Matching.MaxDistanceKM,
		MinInterestMatch: cfg.Matching.MinInterestMatch,
	}, log.With("component", "ranking"))
	likeSvc := likes.NewService(store, profiles, c, b, log.With("component", "likes"))
	mod := moderation.NewService(store, b, log.With("component", "moderation"))

	hub := chathub.NewHub(b, store, chathub.DefaultOptions(), log.With("component", "chathub"))
	entries, err := storage.RetryRead(func() ([]models.RandomChatQueueEntry, error) {
		return store.LoadQueueEntries(ctx)
	})
	if err != nil {
		log.Warn("load random chat queue", "err", err)
	} else {
		hub.Restore(ctx, entries)
	}

	b.Attach(bot.Services{
		Store:      store,
		Profiles:   profiles,
		Ranking:    engine,
		Likes:      likeSvc,
		Moderation: mod,
		Hub:        hub,
	})

	// HTTP
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        handler.NewHandler(store, hub, log.With("component", "http")).Router(),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	// The hub outlives the dispatcher so that queue writes made while
	// draining are still mirrored.
	hubCtx, stopHub := context.WithCancel(context.WithoutCancel(ctx))
	hubDone := make(chan error, 1)
	go func() { hubDone <- hub.Run(hubCtx) }()

	events := make(chan transport.Event, cfg.Workers*16)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return poller.Run(gctx, events) })
	g.Go(func() error { return b.Run(gctx, events) })
	g.Go(func() error { return cache.RunSweeper(gctx, c, config.SweepInterval, log.With("component", "cache")) })
	if bus != nil {
		g.Go(func() error { return bus.Run(gctx, nil) })
	}
	g.Go(func() error {
		log.Info("http listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	log.Info("bot is running")
	err = g.Wait()

	// The dispatcher has drained; flush outstanding deliveries and queue writes.
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := hub.Shutdown(sctx); serr != nil {
		log.Warn("hub shutdown", "err", serr)
	}
	stopHub()
	<-hubDone
	if sqlDB, derr := db.DB(); derr == nil {
		_ = sqlDB.Close()
	}
	return err
}
