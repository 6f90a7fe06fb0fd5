package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	errorsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_upstream_errors_remaining",
		Help: "Upstream failures still tolerated in the current budget window",
	})

	blocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_error_budget_blocks_total",
		Help: "Total number of upstream requests refused by the error budget",
	})

	throttlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_error_budget_throttles_total",
		Help: "Total number of upstream requests delayed by the error budget",
	})
)

// Tracker counts upstream failures and gates requests.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewTracker creates a tracker. Zero config fields take DefaultConfig values.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.CriticalRemaining <= 0 {
		cfg.CriticalRemaining = def.CriticalRemaining
	}
	if cfg.WarningRemaining <= 0 {
		cfg.WarningRemaining = def.WarningRemaining
	}
	if cfg.ThrottleDelay < 0 {
		cfg.ThrottleDelay = 0
	}
	return &Tracker{
		redis:  redisClient,
		config: cfg,
		logger: logger,
	}
}

// GetState reads the failure counter. No counter means a full budget.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	failures, err := t.redis.Get(ctx, RedisKeyErrors).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return newState(t.config, 0, t.config.Window), nil
		}
		return nil, fmt.Errorf("get error counter: %w", err)
	}

	ttl, err := t.redis.TTL(ctx, RedisKeyErrors).Result()
	if err != nil {
		return nil, fmt.Errorf("get error counter ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	return newState(t.config, failures, ttl), nil
}

// RecordFailure adds one failure to the current window.
func (t *Tracker) RecordFailure(ctx context.Context) error {
	failures, err := t.redis.Incr(ctx, RedisKeyErrors).Result()
	if err != nil {
		return fmt.Errorf("increment error counter: %w", err)
	}
	if failures == 1 {
		if err := t.redis.Expire(ctx, RedisKeyErrors, t.config.Window).Err(); err != nil {
			return fmt.Errorf("set error window: %w", err)
		}
	}

	state := newState(t.config, int(failures), t.config.Window)
	errorsRemaining.Set(float64(state.ErrorsRemaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Msg("Upstream error budget CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("errors_remaining", state.ErrorsRemaining).
			Msg("Upstream error budget WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("errors_remaining", state.ErrorsRemaining).
			Msg("Upstream failure recorded")
	}
	return nil
}

// ShouldAllowRequest returns false when the budget is critically low. In the
// warning band it delays for ThrottleDelay (or until ctx is done) and allows.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get error budget state: %w", err)
	}
	errorsRemaining.Set(float64(state.ErrorsRemaining))

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Upstream error budget critical - blocking request")
		blocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("errors_remaining", state.ErrorsRemaining).
			Msg("Upstream error budget warning - throttling request")
		throttlesTotal.Inc()

		timer := time.NewTimer(t.config.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
