package app

import (
	"context"
	"fmt"
	"time"

	"internmatch/internal/config"
	"internmatch/internal/database"
	"internmatch/internal/database/migration"
	dbpostgres "internmatch/internal/database/postgres"
	"internmatch/internal/domain/recommendation"
	"internmatch/internal/embedding"
	"internmatch/internal/infrastructure/cache"
	"internmatch/internal/infrastructure/embedder"
	"internmatch/internal/infrastructure/lock"
	"internmatch/internal/logging"
	"internmatch/internal/repository"
	"internmatch/internal/usecase"
	"internmatch/internal/ws"
	"internmatch/migrations"

	"github.com/rs/zerolog"
)

type Container struct {
	Config config.Config
	Logger zerolog.Logger

	DB            database.DB
	Redis         *cache.Redis
	VectorCache   embedding.Cache
	PostgresCache *cache.PostgresVectorCache
	Embeddings    *embedding.Service

	Applicants      *repository.PostgresApplicantRepository
	Postings        *repository.PostgresPostingRepository
	Recommendations *repository.PostgresRecommendationRepository
	Queue           *repository.PostgresQueueRepository
	Advertisements  *repository.PostgresAdvertisementRepository

	Hub *ws.Hub

	RankingUC  *usecase.Ranking
	MatchingUC *usecase.Matching
	QueueUC    *usecase.Queue
}

func NewContainer(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Container, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(connectCtx, cfg.Database, cfg.App.AppName, logging.Component(logger, "postgres"))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	c := &Container{Config: cfg, Logger: logger, DB: db}

	if cfg.Database.RunMigrations {
		runner := migration.Runner{FS: migrations.FS, Logger: logging.Component(logger, "migrations")}
		if err := runner.Run(ctx, db.SQLDB()); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	c.Redis = cache.NewRedis(ctx, cfg.Redis, logging.Component(logger, "redis"))

	enc, err := newEncoder(ctx, cfg.Embedding, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.PostgresCache = cache.NewPostgresVectorCache(db, enc.Name())
	switch cfg.Embedding.CacheBackend {
	case "postgres":
		c.VectorCache = c.PostgresCache
	default:
		c.VectorCache = cache.NewRedisVectorCache(c.Redis)
	}

	c.Embeddings, err = embedding.NewService(enc, c.VectorCache, cfg.Embedding.CacheTTL, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	c.Applicants = repository.NewPostgresApplicantRepository(db)
	c.Postings = repository.NewPostgresPostingRepository(db)
	c.Recommendations = repository.NewPostgresRecommendationRepository(db)
	c.Queue = repository.NewPostgresQueueRepository(db)
	c.Advertisements = repository.NewPostgresAdvertisementRepository(db)

	c.Hub = ws.NewHub(logger)

	locker, err := newLocker(c.Redis, logger)
	if err != nil {
		_ = c.Close()
		return nil, err
	}

	profiles := usecase.NewProfileAggregator(c.Embeddings, logger)
	c.RankingUC = usecase.NewRankingUsecase(c.Applicants, c.Postings, profiles, cfg.Matching.PostingWorkers)
	c.MatchingUC = usecase.NewMatchingUsecase(
		c.Applicants, c.Postings, c.Recommendations, c.RankingUC,
		locker, cfg.Matching.LockTTL, ws.NewNotifier(c.Hub), logger,
	)

	seed := cfg.Queue.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c.QueueUC = usecase.NewQueueUsecase(
		c.Applicants, c.Queue, c.Advertisements, c.MatchingUC,
		recommendation.NewPicker(seed),
		usecase.QueueOptions{
			DailyTapLimit: cfg.Queue.DailyTapLimit,
			AdProbability: cfg.Queue.AdProbability,
			Location:      cfg.Location(),
		},
		logger,
	)

	return c, nil
}

func newEncoder(ctx context.Context, cfg config.EmbeddingConfig, logger zerolog.Logger) (embedding.Encoder, error) {
	switch cfg.Provider {
	case "gemini":
		g, err := embedder.NewGemini(ctx, embedder.GeminiConfig{
			APIKey:          cfg.APIKey,
			Model:           cfg.Model,
			Dimensions:      cfg.Dimensions,
			BatchSize:       cfg.BatchSize,
			RequestTimeout:  cfg.RequestTimeout,
			BreakerFailures: cfg.BreakerFailures,
			BreakerCooldown: cfg.BreakerCooldown,
		}, logging.Component(logger, "gemini"))
		if err != nil {
			return nil, fmt.Errorf("gemini encoder: %w", err)
		}
		return g, nil
	default:
		return embedder.NewHashing(cfg.Dimensions), nil
	}
}

func newLocker(r *cache.Redis, logger zerolog.Logger) (lock.Locker, error) {
	if !r.Available() {
		logger.Warn().Msg("redis unavailable, matching leases are process-local")
		return lock.NewLocalLocker(), nil
	}
	return lock.NewRedisLocker(r.Client())
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
