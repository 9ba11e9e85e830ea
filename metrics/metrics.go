// Package metrics provides Prometheus metrics for the site.
// HTTP metrics are unprefixed; domain metrics live under the newspaper namespace.
package metrics

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newspaper"

// Login results.
const (
	LoginSuccess  = "success"
	LoginInvalid  = "invalid"
	LoginInactive = "inactive"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path, and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	SignupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signups_total",
			Help:      "Accounts created through the signup form",
		},
	)

	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Login attempts by result",
		},
		[]string{"result"},
	)

	CommentsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_created_total",
			Help:      "Comments stored from the article detail page",
		},
	)

	ArticlesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_created_total",
			Help:      "Articles created through the new article form",
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live sessions in the session store",
		},
	)

	DBConnectionPoolSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "pool_connections",
			Help:      "Database connection pool stats",
		},
		[]string{"state"},
	)
)

// ObserveLogin counts a login attempt.
func ObserveLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}

// PoolStatsProvider exposes database/sql pool statistics. *sql.DB satisfies it.
type PoolStatsProvider interface {
	Stats() sql.DBStats
}

// SessionCounter reports the number of live sessions.
type SessionCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatsCollector periodically samples the db pool and the session store.
type StatsCollector struct {
	pool     PoolStatsProvider
	sessions SessionCounter
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewStatsCollector creates a collector; either source may be nil.
func NewStatsCollector(pool PoolStatsProvider, sessions SessionCounter) *StatsCollector {
	return &StatsCollector{
		pool:     pool,
		sessions: sessions,
		stopChan: make(chan struct{}),
	}
}

// Start begins collecting every interval.
func (c *StatsCollector) Start(interval time.Duration) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopChan:
				return
			}
		}
	}()
}

func (c *StatsCollector) collect() {
	if c.pool != nil {
		stats := c.pool.Stats()
		DBConnectionPoolSize.WithLabelValues("total").Set(float64(stats.OpenConnections))
		DBConnectionPoolSize.WithLabelValues("idle").Set(float64(stats.Idle))
		DBConnectionPoolSize.WithLabelValues("in_use").Set(float64(stats.InUse))
	}
	if c.sessions != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if n, err := c.sessions.Count(ctx); err == nil {
			SessionsActive.Set(float64(n))
		}
	}
}

// Stop stops the collector and waits for it to exit.
func (c *StatsCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}
