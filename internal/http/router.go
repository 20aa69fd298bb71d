package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/facility-backend/internal/domain/aggregates"
	httpH "github.com/yungbote/facility-backend/internal/http/handlers"
	httpMW "github.com/yungbote/facility-backend/internal/http/middleware"
	"github.com/yungbote/facility-backend/internal/observability"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log      *logger.Logger
	Registry *aggregates.Registry
	Metrics  *observability.Metrics

	AggregateHandler *httpH.AggregateHandler
	HealthHandler    *httpH.HealthHandler

	ServiceName string
	CORSOrigins []string
	// ExposeMetrics mounts /metrics on the API listener.
	ExposeMetrics bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins...))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.ExposeMetrics && cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	if cfg.AggregateHandler == nil || cfg.Registry == nil {
		return r
	}
	api := r.Group("/api")
	api.Use(httpMW.RequireTenant())
	for _, t := range cfg.Registry.Types() {
		registerAggregateRoutes(api, cfg.AggregateHandler, t)
	}
	return r
}

func registerAggregateRoutes(api *gin.RouterGroup, h *httpH.AggregateHandler, t *aggregates.Type) {
	g := api.Group("/" + t.Name)
	g.POST("", h.Create(t))
	g.GET("", h.List(t))
	g.GET("/:id", h.Get(t))
	g.PATCH("/:id", h.Update(t))
	g.PUT("/:id", h.Update(t))
	g.DELETE("/:id", h.Delete(t))
	if t.Counters() != nil {
		g.POST("/:id/resync", h.Resync(t))
	}
	for _, s := range t.Collections() {
		g.POST("/:id/"+s.Name, h.AddItem(t, s.Name))
		g.PATCH("/:id/"+s.Name+"/:itemId", h.UpdateItem(t, s.Name))
		g.DELETE("/:id/"+s.Name+"/:itemId", h.RemoveItem(t, s.Name))
	}
}
