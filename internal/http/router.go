package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/prepsutra/dpp-backend/internal/http/handlers"
	httpMW "github.com/prepsutra/dpp-backend/internal/http/middleware"
)

type RouterConfig struct {
	AuthMiddleware *httpMW.AuthMiddleware

	ConfigHandler   *httpH.ConfigHandler
	DPPHandler      *httpH.DPPHandler
	StatsHandler    *httpH.StatsHandler
	RealtimeHandler *httpH.RealtimeHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("dpp-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Config
		if cfg.ConfigHandler != nil {
			protected.GET("/dpp/config", cfg.ConfigHandler.GetConfig)
			protected.PATCH("/dpp/config", cfg.ConfigHandler.UpdateConfig)
		}

		// Daily practice problems
		if cfg.DPPHandler != nil {
			protected.GET("/dpp/today", cfg.DPPHandler.GetToday)
			protected.POST("/dpp/generate", cfg.DPPHandler.Generate)
			protected.POST("/dpp/assignments/:id/submit", cfg.DPPHandler.Submit)
			protected.POST("/dpp/assignments/:id/skip", cfg.DPPHandler.Skip)
			protected.GET("/dpp/history", cfg.DPPHandler.History)
			protected.POST("/dpp/practice-test", cfg.DPPHandler.PracticeTest)
		}

		// Stats
		if cfg.StatsHandler != nil {
			protected.GET("/dpp/stats", cfg.StatsHandler.GetStats)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/events/stream", cfg.RealtimeHandler.Stream)
		}
	}

	return r
}
