package cache

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/comitanigiacomo/kanso-tracker/internal/core/analytics"
	"github.com/comitanigiacomo/kanso-tracker/internal/core/domain"
	"github.com/comitanigiacomo/kanso-tracker/internal/logger"
	"github.com/comitanigiacomo/kanso-tracker/internal/metrics"
)

var _ domain.ReportCache = (*ReportCache)(nil)

const (
	DefaultReportTTL = 10 * time.Minute
	reportBreaker    = "redis-reports"
)

// ReportCache stores computed reports in Redis behind a circuit breaker.
// It fails open: when Redis is down or the breaker is open every Get is a
// miss and every Set is dropped.
type ReportCache struct {
	rdb redis.Cmdable
	ttl time.Duration
	cb  *gobreaker.CircuitBreaker[[]byte]
}

func NewReportCache(rdb redis.Cmdable, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}

	metrics.CircuitBreakerState.WithLabelValues(reportBreaker).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        reportBreaker,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A miss is a normal answer, not a failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})

	return &ReportCache{rdb: rdb, ttl: ttl, cb: cb}
}

func (c *ReportCache) Get(ctx context.Context, key string) (*analytics.Report, bool) {
	data, err := c.cb.Execute(func() ([]byte, error) {
		return c.rdb.Get(ctx, key).Bytes()
	})
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Debug("report cache read skipped", "key", key, "err", err)
		}
		metrics.RecordCache("reports", false)
		return nil, false
	}

	var report analytics.Report
	if err := json.Unmarshal(data, &report); err != nil {
		logger.Warn("corrupted report cache entry", "key", key, "err", err)
		metrics.RecordCache("reports", false)
		return nil, false
	}

	metrics.RecordCache("reports", true)
	return &report, true
}

func (c *ReportCache) Set(ctx context.Context, key string, report *analytics.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	_, err = c.cb.Execute(func() ([]byte, error) {
		return nil, c.rdb.Set(ctx, key, data, c.ttl).Err()
	})
	return err
}

// State reports the breaker state, for health output.
func (c *ReportCache) State() string {
	return c.cb.State().String()
}
