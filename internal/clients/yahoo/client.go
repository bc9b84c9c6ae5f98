// Package yahoo retrieves daily price history from Yahoo Finance.
package yahoo

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPeriod     = "1y"
	DefaultMaxRetries = 3
	// DefaultConcurrency limits parallel symbol downloads
	DefaultConcurrency = 4
)

// Bar is one daily bar.
type Bar struct {
	Date     time.Time
	Close    float64
	AdjClose float64
}

// HistorySource downloads daily bars for one symbol.
type HistorySource interface {
	History(ctx context.Context, symbol, period string) ([]Bar, error)
}

// Config configures the client.
type Config struct {
	Period      string
	MaxRetries  int
	RetryDelay  time.Duration // Base delay, doubled per attempt
	Concurrency int
}

// Client implements domain.HistoryFetcher and domain.PriceHistoryProvider.
type Client struct {
	source HistorySource
	cfg    Config
	log    zerolog.Logger
}

// NewClient creates a client backed by go-yfinance.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	return NewClientWithSource(NewTickerSource(), cfg, log)
}

// NewClientWithSource creates a client reading from source.
func NewClientWithSource(source HistorySource, cfg Config, log zerolog.Logger) *Client {
	if cfg.Period == "" {
		cfg.Period = DefaultPeriod
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Client{
		source: source,
		cfg:    cfg,
		log:    log.With().Str("client", "yahoo").Logger(),
	}
}

// FetchHistoricalSeries downloads the configured period for every asset and
// aligns the closes on the trading dates common to all of them.
func (c *Client) FetchHistoricalSeries(ctx context.Context, assets []string) (*domain.HistoricalSeries, error) {
	if len(assets) == 0 {
		return nil, fmt.Errorf("no assets requested")
	}

	perAsset := make([]map[string]float64, len(assets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			bars, err := c.historyWithRetry(gctx, asset, c.cfg.Period)
			if err != nil {
				return err
			}
			if len(bars) == 0 {
				return fmt.Errorf("no price history for %s", asset)
			}
			closes := make(map[string]float64, len(bars))
			for _, bar := range bars {
				closes[dayKey(bar.Date)] = closeOf(bar)
			}
			perAsset[i] = closes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dates := commonDates(perAsset)
	if len(dates) == 0 {
		return nil, fmt.Errorf("no common trading dates across %s", strings.Join(assets, ", "))
	}

	series := &domain.HistoricalSeries{
		Assets: append([]string(nil), assets...),
		Dates:  make([]time.Time, len(dates)),
		Closes: make([][]float64, len(assets)),
	}
	for t, d := range dates {
		series.Dates[t], _ = time.Parse(time.DateOnly, d)
	}
	for i := range assets {
		closes := make([]float64, len(dates))
		for t, d := range dates {
			closes[t] = perAsset[i][d]
		}
		series.Closes[i] = closes
	}

	c.log.Info().
		Int("assets", len(assets)).
		Int("points", len(dates)).
		Str("period", c.cfg.Period).
		Msg("Fetched historical series")

	return series, nil
}

// FetchPriceHistory returns the chronological closes of one symbol. An empty
// period uses the configured default.
func (c *Client) FetchPriceHistory(ctx context.Context, symbol string, period string) ([]domain.PricePoint, error) {
	if period == "" {
		period = c.cfg.Period
	}
	bars, err := c.historyWithRetry(ctx, symbol, period)
	if err != nil {
		return nil, err
	}

	points := make([]domain.PricePoint, 0, len(bars))
	for _, bar := range bars {
		points = append(points, domain.PricePoint{Date: bar.Date, Close: closeOf(bar)})
	}
	sort.SliceStable(points, func(a, b int) bool {
		return points[a].Date.Before(points[b].Date)
	})
	return points, nil
}

func (c *Client) historyWithRetry(ctx context.Context, symbol, period string) ([]Bar, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		bars, err := c.source.History(ctx, symbol, period)
		if err == nil {
			return bars, nil
		}
		lastErr = fmt.Errorf("failed to get historical prices for %s: %w", symbol, err)

		if attempt < c.cfg.MaxRetries-1 {
			waitTime := c.cfg.RetryDelay * time.Duration(1<<uint(attempt))
			c.log.Warn().Err(err).Str("symbol", symbol).Int("attempt", attempt+1).Dur("wait", waitTime).Msg("Retrying")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(waitTime):
			}
		}
	}
	return nil, lastErr
}

// closeOf prefers the adjusted close when the source reports one.
func closeOf(bar Bar) float64 {
	if bar.AdjClose > 0 {
		return bar.AdjClose
	}
	return bar.Close
}

// dayKey is the trading date on the clock the bar was stamped with.
func dayKey(t time.Time) string {
	return t.Format(time.DateOnly)
}

// commonDates returns the sorted dates present in every map.
func commonDates(perAsset []map[string]float64) []string {
	if len(perAsset) == 0 {
		return nil
	}
	var dates []string
	for d := range perAsset[0] {
		shared := true
		for _, closes := range perAsset[1:] {
			if _, ok := closes[d]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates
}
