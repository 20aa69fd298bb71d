package app

import (
	"strings"

	"github.com/yungbote/facility-backend/internal/data/aggregates"
	"github.com/yungbote/facility-backend/internal/data/db"
	domainagg "github.com/yungbote/facility-backend/internal/domain/aggregates"
	apphttp "github.com/yungbote/facility-backend/internal/http"
	"github.com/yungbote/facility-backend/internal/http/handlers"
	"github.com/yungbote/facility-backend/internal/observability"
	"github.com/yungbote/facility-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, cfg Config, reg *domainagg.Registry, m *observability.Metrics, dbs *db.DatabaseService, repo *aggregates.Repository) apphttp.RouterConfig {
	log.Info("Wiring handlers...")
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return apphttp.RouterConfig{
		Log:              log,
		Registry:         reg,
		Metrics:          m,
		AggregateHandler: handlers.NewAggregateHandler(log, repo),
		HealthHandler:    handlers.NewHealthHandler(dbs),
		ServiceName:      serviceName,
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		ExposeMetrics:    m != nil && strings.TrimSpace(cfg.Metrics.Addr) == "",
	}
}
