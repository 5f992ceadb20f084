package currency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/metrics"
)

// Mode selects how GetRate reacts when no fresh rate can be obtained.
type Mode int

const (
	// Tolerant substitutes the fallback rate when the source fails.
	Tolerant Mode = iota
	// Strict surfaces fetch failures and refuses to return an expired rate.
	Strict
)

func (m Mode) String() string {
	if m == Strict {
		return "strict"
	}
	return "tolerant"
}

var DefaultFallbackRate = decimal.RequireFromString("1.35")

// RateCache owns the current exchange rate. It is safe for concurrent use;
// concurrent refreshes share a single fetch.
type RateCache struct {
	source   RateSource
	fallback decimal.Decimal
	now      func() time.Time
	logger   *log.Logger

	mu      sync.RWMutex
	current *core.ExchangeRate

	group singleflight.Group
}

type RateCacheOption func(*RateCache)

func WithClock(now func() time.Time) RateCacheOption {
	return func(c *RateCache) { c.now = now }
}

func WithFallback(rate decimal.Decimal) RateCacheOption {
	return func(c *RateCache) { c.fallback = rate }
}

func WithLogger(logger *log.Logger) RateCacheOption {
	return func(c *RateCache) { c.logger = logger.WithComponent(log.ComponentCurrency) }
}

func NewRateCache(source RateSource, opts ...RateCacheOption) *RateCache {
	c := &RateCache{
		source:   source,
		fallback: DefaultFallbackRate,
		now:      time.Now,
		logger:   log.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current returns the cached rate, expired or not.
func (c *RateCache) Current() (core.ExchangeRate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return core.ExchangeRate{}, false
	}
	return *c.current, true
}

// Set replaces the cached rate.
func (c *RateCache) Set(rate core.ExchangeRate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &rate
}

// Invalidate drops the cached rate so the next lookup fetches.
func (c *RateCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = nil
}

// GetRate returns a usable rate.
//
// A cached rate that has not expired is returned without contacting the
// source. Otherwise the source is queried and a successful result replaces the
// cache. When the source fails, Tolerant returns the fallback rate (which is
// not cached). Strict returns ErrStaleExchangeRate when an expired rate was
// cached and ErrExchangeRateFetch when nothing was. In Strict mode an obtained
// rate that is already expired is invalidated and fetched once more; if that
// does not produce a fresh rate, ErrStaleExchangeRate is returned.
func (c *RateCache) GetRate(ctx context.Context, mode Mode) (core.ExchangeRate, error) {
	cached, hadCached := c.Current()
	expired := hadCached && cached.IsExpired(c.now())

	rate, err := c.load(ctx)
	if err != nil {
		if mode == Strict {
			metrics.ExchangeRateFetched(metrics.ResultError)
			if expired {
				return core.ExchangeRate{}, fmt.Errorf("%w: rate from %s could not be refreshed: %w",
					core.ErrStaleExchangeRate, cached.Timestamp.Format(time.RFC3339), err)
			}
			return core.ExchangeRate{}, err
		}
		c.logger.Warn("Exchange rate fetch failed, using fallback rate",
			log.FieldError, err,
			log.FieldRate, c.fallback.String())
		metrics.ExchangeRateFetched(metrics.ResultFallback)
		return core.NewExchangeRate(c.fallback, c.now()), nil
	}

	if mode == Tolerant || !rate.IsExpired(c.now()) {
		return rate, nil
	}

	c.Invalidate()
	rate, err = c.load(ctx)
	if err != nil {
		metrics.ExchangeRateFetched(metrics.ResultError)
		return core.ExchangeRate{}, fmt.Errorf("%w: refresh failed: %w", core.ErrStaleExchangeRate, err)
	}
	if rate.IsExpired(c.now()) {
		return core.ExchangeRate{}, fmt.Errorf("%w: rate from %s expired at %s",
			core.ErrStaleExchangeRate, rate.Timestamp.Format(time.RFC3339), rate.ExpiresAt.Format(time.RFC3339))
	}
	return rate, nil
}

// load returns the cached rate while fresh, otherwise fetches. Failures always
// match ErrExchangeRateFetch.
func (c *RateCache) load(ctx context.Context) (core.ExchangeRate, error) {
	if rate, ok := c.fresh(); ok {
		return rate, nil
	}

	v, err, _ := c.group.Do("usd-cad", func() (any, error) {
		if rate, ok := c.fresh(); ok {
			return rate, nil
		}
		raw, err := c.source.FetchRate(ctx)
		if err != nil {
			if errors.Is(err, core.ErrExchangeRateFetch) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", core.ErrExchangeRateFetch, err)
		}
		rate := core.NewExchangeRate(raw, c.now())
		c.Set(rate)
		metrics.ExchangeRateFetched(metrics.ResultLive)
		c.logger.Debug("Exchange rate refreshed", log.FieldRate, rate.Rate.String())
		return rate, nil
	})
	if err != nil {
		return core.ExchangeRate{}, err
	}
	return v.(core.ExchangeRate), nil
}

func (c *RateCache) fresh() (core.ExchangeRate, bool) {
	rate, ok := c.Current()
	if !ok || rate.IsExpired(c.now()) {
		return core.ExchangeRate{}, false
	}
	return rate, true
}
