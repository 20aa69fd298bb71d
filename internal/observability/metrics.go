package observability

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/facility-backend/internal/platform/logger"
)

const namespace = "facility"

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics owns a private prometheus registry. A nil *Metrics is valid and drops
// every observation.
type Metrics struct {
	reg *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	aggOps       *prometheus.CounterVec
	aggLatency   *prometheus.HistogramVec
	aggConflicts *prometheus.CounterVec
	aggRetries   *prometheus.CounterVec

	dbStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"method", "route"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_inflight_requests",
			Help:      "In-flight HTTP requests.",
		}),
		aggOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_operations_total",
			Help:      "Aggregate repository operations by op and outcome.",
		}, []string{"op", "status"}),
		aggLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_operation_seconds",
			Help:      "Aggregate repository operation latency in seconds.",
			Buckets:   latencyBuckets,
		}, []string{"op"}),
		aggConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_conflicts_total",
			Help:      "Aggregate operations rejected with a conflict.",
		}, []string{"op"}),
		aggRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aggregate_retries_total",
			Help:      "Aggregate operations that failed with a retryable error.",
		}, []string{"op"}),
		dbStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_pool",
			Help:      "database/sql connection pool stats.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_up",
			Help:      "1 when the last redis ping succeeded.",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "redis_ping_seconds",
			Help:      "Latency of the last redis ping.",
		}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.aggOps, m.aggLatency, m.aggConflicts, m.aggRetries,
		m.dbStats, m.redisUp, m.redisPing,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Serve exposes /metrics on a dedicated listener until ctx is done.
func (m *Metrics) Serve(ctx context.Context, log *logger.Logger, addr string) error {
	addr = strings.TrimSpace(addr)
	if m == nil || addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if log != nil {
		log.Info("metrics server listening", "addr", addr)
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveAggregateOperation(op, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	m.aggOps.WithLabelValues(op, status).Inc()
	m.aggLatency.WithLabelValues(op).Observe(dur.Seconds())
}

func (m *Metrics) IncAggregateConflict(op string) {
	if m == nil {
		return
	}
	m.aggConflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) IncAggregateRetry(op string) {
	if m == nil {
		return
	}
	m.aggRetries.WithLabelValues(op).Inc()
}

// StartDBCollector samples connection pool stats every interval until ctx is done.
func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.collectDB(db); err != nil && log != nil {
					log.Warn("metrics: db stats unavailable", "error", err)
				}
			}
		}
	}()
}

func (m *Metrics) collectDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	stats := sqlDB.Stats()
	m.dbStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
	m.dbStats.WithLabelValues("in_use").Set(float64(stats.InUse))
	m.dbStats.WithLabelValues("idle").Set(float64(stats.Idle))
	m.dbStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
	m.dbStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
	m.dbStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
	return nil
}

// StartRedisCollector pings rdb every interval until ctx is done. The client is
// owned by the caller.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
