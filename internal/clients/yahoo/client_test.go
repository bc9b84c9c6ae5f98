package yahoo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aristath/quantum-portfolio/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wnjoon/go-yfinance/pkg/models"
)

type fakeSource struct {
	mu       sync.Mutex
	bars     map[string][]Bar
	failures map[string]int // remaining failures per symbol
	calls    map[string]int
	periods  []string
}

func newFakeSource(bars map[string][]Bar) *fakeSource {
	return &fakeSource{bars: bars, failures: map[string]int{}, calls: map[string]int{}}
}

func (f *fakeSource) History(ctx context.Context, symbol, period string) ([]Bar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	f.periods = append(f.periods, period)
	if f.failures[symbol] > 0 {
		f.failures[symbol]--
		return nil, errors.New("connection reset")
	}
	bars, ok := f.bars[symbol]
	if !ok {
		return nil, errors.New("symbol not found")
	}
	return bars, nil
}

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 21, 0, 0, 0, time.UTC)
}

func testClient(source HistorySource) *Client {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewClientWithSource(source, Config{Period: "6mo", MaxRetries: 3, RetryDelay: time.Millisecond}, log)
}

func TestClient_ImplementsInterfaces(t *testing.T) {
	var _ domain.HistoryFetcher = (*Client)(nil)
	var _ domain.PriceHistoryProvider = (*Client)(nil)
	var _ HistorySource = (*TickerSource)(nil)
}

func TestFetchHistoricalSeries_AlignsOnCommonDates(t *testing.T) {
	source := newFakeSource(map[string][]Bar{
		"AAPL": {
			{Date: day(3), Close: 101},
			{Date: day(2), Close: 100},
			{Date: day(4), Close: 102},
			{Date: day(5), Close: 103},
		},
		"MSFT": {
			{Date: day(2), Close: 300, AdjClose: 299},
			{Date: day(4), Close: 305, AdjClose: 304},
			{Date: day(5), Close: 310, AdjClose: 309},
		},
	})

	series, err := testClient(source).FetchHistoricalSeries(context.Background(), []string{"MSFT", "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, []string{"MSFT", "AAPL"}, series.Assets)
	require.Len(t, series.Dates, 3)
	assert.Equal(t, "2024-01-02", series.Dates[0].Format(time.DateOnly))
	assert.Equal(t, "2024-01-05", series.Dates[2].Format(time.DateOnly))
	assert.Equal(t, []float64{299, 304, 309}, series.Closes[0])
	assert.Equal(t, []float64{100, 102, 103}, series.Closes[1])

	for _, p := range source.periods {
		assert.Equal(t, "6mo", p)
	}
}

func TestFetchHistoricalSeries_KeysByExchangeDate(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	session := func(d int) time.Time { return time.Date(2024, time.January, d, 0, 0, 0, 0, tokyo) }
	source := newFakeSource(map[string][]Bar{
		"7203.T": {{Date: session(9), Close: 2700}, {Date: session(10), Close: 2720}},
		"6758.T": {{Date: session(9), Close: 13000}, {Date: session(10), Close: 13100}},
	})

	series, err := testClient(source).FetchHistoricalSeries(context.Background(), []string{"7203.T", "6758.T"})
	require.NoError(t, err)

	require.Len(t, series.Dates, 2)
	assert.Equal(t, "2024-01-09", series.Dates[0].Format(time.DateOnly))
	assert.Equal(t, "2024-01-10", series.Dates[1].Format(time.DateOnly))
	assert.Equal(t, []float64{2700, 2720}, series.Closes[0])
}

func TestExchangeLocation(t *testing.T) {
	assert.Equal(t, time.UTC, exchangeLocation(nil))
	assert.Equal(t, time.UTC, exchangeLocation(&models.ChartMeta{}))

	loc := exchangeLocation(&models.ChartMeta{ExchangeTimezoneName: "Not/AZone", Timezone: "JST", GMTOffset: 32400})
	_, offset := time.Date(2024, time.January, 9, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 32400, offset)
}

func TestFetchHistoricalSeries_Retries(t *testing.T) {
	source := newFakeSource(map[string][]Bar{
		"AAPL": {{Date: day(2), Close: 100}, {Date: day(3), Close: 101}},
	})
	source.failures["AAPL"] = 2

	series, err := testClient(source).FetchHistoricalSeries(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Len(t, series.Dates, 2)
	assert.Equal(t, 3, source.calls["AAPL"])
}

func TestFetchHistoricalSeries_GivesUpAfterMaxRetries(t *testing.T) {
	source := newFakeSource(map[string][]Bar{
		"AAPL": {{Date: day(2), Close: 100}},
	})
	source.failures["AAPL"] = 5

	_, err := testClient(source).FetchHistoricalSeries(context.Background(), []string{"AAPL"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AAPL")
	assert.Equal(t, 3, source.calls["AAPL"])
}

func TestFetchHistoricalSeries_Errors(t *testing.T) {
	source := newFakeSource(map[string][]Bar{
		"AAPL":  {{Date: day(2), Close: 100}},
		"EMPTY": {},
		"LATE":  {{Date: day(9), Close: 5}},
	})
	client := testClient(source)

	_, err := client.FetchHistoricalSeries(context.Background(), nil)
	assert.Error(t, err)

	_, err = client.FetchHistoricalSeries(context.Background(), []string{"AAPL", "EMPTY"})
	assert.ErrorContains(t, err, "no price history for EMPTY")

	_, err = client.FetchHistoricalSeries(context.Background(), []string{"AAPL", "LATE"})
	assert.ErrorContains(t, err, "no common trading dates")
}

func TestFetchHistoricalSeries_CancelledDuringBackoff(t *testing.T) {
	source := newFakeSource(map[string][]Bar{})
	source.failures["AAPL"] = 10
	log := zerolog.New(nil).Level(zerolog.Disabled)
	client := NewClientWithSource(source, Config{MaxRetries: 5, RetryDelay: time.Hour}, log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.FetchHistoricalSeries(ctx, []string{"AAPL"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchPriceHistory(t *testing.T) {
	source := newFakeSource(map[string][]Bar{
		"AAPL": {{Date: day(3), Close: 101}, {Date: day(2), Close: 100, AdjClose: 99.5}},
	})
	client := testClient(source)

	points, err := client.FetchPriceHistory(context.Background(), "AAPL", "1mo")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, domain.PricePoint{Date: day(2), Close: 99.5}, points[0])
	assert.Equal(t, domain.PricePoint{Date: day(3), Close: 101}, points[1])
	assert.Equal(t, []string{"1mo"}, source.periods)

	_, err = client.FetchPriceHistory(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, "6mo", source.periods[1])
}

func TestNewClientWithSource_Defaults(t *testing.T) {
	client := NewClientWithSource(newFakeSource(nil), Config{}, zerolog.New(nil))
	assert.Equal(t, DefaultPeriod, client.cfg.Period)
	assert.Equal(t, DefaultMaxRetries, client.cfg.MaxRetries)
	assert.Equal(t, DefaultConcurrency, client.cfg.Concurrency)
	assert.Equal(t, time.Second, client.cfg.RetryDelay)
}
