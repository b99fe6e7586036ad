package routes

import (
	"internmatch/internal/delivery/http/handler"
	"internmatch/internal/ws"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	health          *handler.HealthHandler
	matching        *handler.MatchingHandler
	recommendations *handler.RecommendationHandler
	ws              *ws.Handler
}

func NewRegistry(health *handler.HealthHandler, matching *handler.MatchingHandler, recommendations *handler.RecommendationHandler, wsHandler *ws.Handler) *Registry {
	return &Registry{health: health, matching: matching, recommendations: recommendations, ws: wsHandler}
}

func (r *Registry) Register(app *fiber.App) {
	if app == nil {
		return
	}

	r.registerOps(app)
	r.registerAPI(app)
	if r.ws != nil {
		app.Get("/ws/recommendations", r.ws.HandleRecommendationsWS)
	}
}

func (r *Registry) registerOps(app *fiber.App) {
	if r.health != nil {
		r.health.RegisterRoutes(app)
	}
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}

func (r *Registry) registerAPI(app *fiber.App) {
	v1 := app.Group("/api").Group("/v1")
	if r.matching != nil {
		r.matching.RegisterRoutes(v1)
	}
	if r.recommendations != nil {
		r.recommendations.RegisterRoutes(v1)
	}
}
