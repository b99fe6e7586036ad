package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"internmatch/internal/config"
	"internmatch/internal/delivery/http/handler"
	"internmatch/internal/delivery/http/middleware"
	"internmatch/internal/delivery/http/routes"
	"internmatch/internal/logging"
	"internmatch/internal/scheduler"
	"internmatch/internal/ws"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"
)

type App struct {
	Fiber     *fiber.App
	Container *Container
	Janitor   *scheduler.Janitor
}

func Bootstrap(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, func() error, error) {
	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	runCtx, stop := context.WithCancel(context.Background())
	go c.Hub.Run(runCtx)

	a := &App{Fiber: newFiber(cfg, c, logger), Container: c}

	if cfg.Janitor.Enabled && cfg.Embedding.CacheBackend == "postgres" {
		a.Janitor = scheduler.NewJanitor(c.PostgresCache, cfg.Janitor.Spec, logger)
		if err := a.Janitor.Start(runCtx); err != nil {
			stop()
			_ = c.Close()
			return nil, nil, err
		}
	}

	cleanup := func() error {
		if a.Janitor != nil {
			a.Janitor.Stop()
		}
		stop()
		return c.Close()
	}
	return a, cleanup, nil
}

func newFiber(cfg config.Config, c *Container, logger zerolog.Logger) *fiber.App {
	f := fiber.New(fiber.Config{
		AppName:     cfg.App.AppName,
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
	})

	httpLogger := logging.Component(logger, "http")
	f.Use(middleware.NewAccessLogMiddleware(httpLogger).Middleware())
	f.Use(middleware.NewErrorMiddleware(httpLogger).Middleware())

	var redisPinger handler.Pinger
	if c.Redis.Available() {
		redisPinger = c.Redis
	}
	routes.NewRegistry(
		handler.NewHealthHandler(c.DB, redisPinger),
		handler.NewMatchingHandler(c.MatchingUC, c.RankingUC, cfg.Matching.LockTTL, httpLogger),
		handler.NewRecommendationHandler(c.QueueUC),
		ws.NewHandler(c.Hub),
	).Register(f)
	return f
}

func ListenAddr(port string) (string, error) {
	p := strings.TrimSpace(port)
	if p == "" {
		return "", fmt.Errorf("empty HTTP port")
	}
	if strings.HasPrefix(p, ":") {
		return p, nil
	}
	return ":" + p, nil
}

const ShutdownTimeout = 10 * time.Second
