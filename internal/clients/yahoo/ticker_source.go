package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/ticker"
)

// TickerSource downloads bars through go-yfinance.
type TickerSource struct{}

// NewTickerSource creates a go-yfinance backed source.
func NewTickerSource() *TickerSource {
	return &TickerSource{}
}

// History fetches auto-adjusted daily bars. go-yfinance does not take a
// context, so cancellation is only observed before the request starts.
func (s *TickerSource) History(ctx context.Context, symbol, period string) ([]Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker: %w", err)
	}
	defer t.Close()

	params := models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	}

	bars, err := t.History(params)
	if err != nil {
		return nil, err
	}

	// Bars come back in UTC; dates are only meaningful on the exchange clock
	loc := exchangeLocation(t.GetHistoryMetadata())

	out := make([]Bar, 0, len(bars))
	for _, bar := range bars {
		// Yahoo sometimes returns null values
		if bar.Close == 0 && bar.AdjClose == 0 {
			continue
		}
		out = append(out, Bar{Date: bar.Date.In(loc), Close: bar.Close, AdjClose: bar.AdjClose})
	}
	return out, nil
}

// exchangeLocation resolves the exchange timezone from chart metadata,
// falling back to its fixed GMT offset and then to UTC.
func exchangeLocation(meta *models.ChartMeta) *time.Location {
	if meta == nil {
		return time.UTC
	}
	if meta.ExchangeTimezoneName != "" {
		if loc, err := time.LoadLocation(meta.ExchangeTimezoneName); err == nil {
			return loc
		}
	}
	if meta.GMTOffset != 0 {
		return time.FixedZone(meta.Timezone, meta.GMTOffset)
	}
	return time.UTC
}
