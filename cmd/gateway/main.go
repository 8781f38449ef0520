package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paperly-gateway/api"
	"paperly-gateway/auth"
	"paperly-gateway/cache"
	"paperly-gateway/catalog"
	"paperly-gateway/config"
	"paperly-gateway/logging"
	"paperly-gateway/middleware/monitoring"
	"paperly-gateway/middleware/ratelimit"
	"paperly-gateway/middleware/ratelimit/domain"
	"paperly-gateway/middleware/ratelimit/infra"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("gateway stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := catalog.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close(db) }()

	if cfg.Database.Seed {
		seeded, err := catalog.Seed(ctx, db, auth.HashPassword)
		if err != nil {
			return err
		}
		logger.Info("catalog ready", zap.String("driver", cfg.Database.Driver), zap.Bool("seeded", seeded))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ttlCache := cache.New(cache.WithDefaultTTL(cfg.Cache.DefaultTTL))
	reg.MustRegister(cache.NewCollector(ttlCache))

	sink, err := monitoring.NewPrometheusSink(reg)
	if err != nil {
		return err
	}

	tiers, err := cfg.RateLimit.DomainTiers()
	if err != nil {
		return err
	}

	var limiter domain.CounterStore
	if cfg.RateLimit.Enabled {
		switch cfg.RateLimit.Algorithm {
		case config.AlgorithmTokenBucket:
			tb := infra.NewTokenBucketStore()
			tb.StartJanitor(ctx)
			limiter = tb
		default:
			limiter = infra.NewWindowStore()
		}
	}

	memStats := infra.NewMemoryStatsStore()
	stats := infra.MultiStatsStore{memStats}
	if sc := cfg.RateLimit.Stats; sc.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     sc.RedisAddr,
			Password: sc.RedisPassword,
			DB:       sc.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancelPing()
		if err != nil {
			return fmt.Errorf("redis stats ping: %w", err)
		}

		stats = append(stats, infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(sc.Prefix),
			infra.WithStatsTTL(sc.TTL),
			infra.WithStatsBucket(sc.Bucket),
			infra.WithStatsTrackKeys(sc.TrackKeys),
		))
	}

	tokens := auth.NewJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	server := api.NewServer(api.Options{
		Repo:   catalog.NewGormRepository(db),
		Cache:  ttlCache,
		Tokens: tokens,
		Tiers:  tiers,
		Rules:  cfg.Fitness.Rules,
		TTLs: api.CacheTTLs{
			Search:          cfg.Cache.SearchTTL,
			Paper:           cfg.Cache.PaperTTL,
			Recommendations: cfg.Cache.RecommendationsTTL,
		},
		Limiter:  memStats,
		Gatherer: reg,
		Logger:   logger,
	})

	h := api.BuildHandler(api.PipelineOptions{
		Router:    server.Router(),
		Tokens:    tokens,
		Limiter:   limiter,
		Tiers:     tiers,
		Stats:     stats,
		KeyHeader: cfg.RateLimit.KeyHeader,
		TrustXFF:  cfg.RateLimit.TrustXFF,
		Concurrency: ratelimit.ConcurrencyOptions{
			Max:            cfg.Concurrency.Max,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: cfg.Concurrency.AcquireTimeout,
		},
		Sink:   sink,
		Rules:  cfg.Fitness.Rules,
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ln, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.ListenAddr, err)
	}

	logger.Info("gateway listening",
		zap.String("addr", cfg.Server.ListenAddr),
		zap.String("version", api.Version))
	logger.Info("rate limit",
		zap.Bool("enabled", cfg.RateLimit.Enabled),
		zap.String("algorithm", cfg.RateLimit.Algorithm),
		zap.String("key_header", cfg.RateLimit.KeyHeader),
		zap.Bool("trust_xff", cfg.RateLimit.TrustXFF),
		zap.Bool("redis_stats", cfg.RateLimit.Stats.Enabled))
	logger.Info("concurrency",
		zap.Int("max", cfg.Concurrency.Max),
		zap.Duration("acquire_timeout", cfg.Concurrency.AcquireTimeout))

	if err := serve(ctx, srv, ln, cfg.Server.ShutdownTimeout, logger); err != nil {
		return err
	}
	logger.Info("gateway stopped")
	return nil
}
