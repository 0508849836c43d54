package price

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tealfin/cryptogains/date"
)

func mkDate(t *testing.T, dateStr string) date.Date {
	d, err := date.Parse(date.DefaultFormat, dateStr)
	require.Nil(t, err)
	return d
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mkDailyPrice(t *testing.T, day string, p string) DailyPrice {
	return DailyPrice{Date: mkDate(t, day), Price: dec(p)}
}

type memErrorPrinter struct {
	lines []string
}

func (p *memErrorPrinter) Ln(v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintln(v...))
}

func (p *memErrorPrinter) F(format string, v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintf(format, v...))
}

// testSource serves canned prices keyed by "asset|currency|year" and
// counts fetches.
type testSource struct {
	prices  map[string][]DailyPrice
	err     error
	fetches int
}

func srcKey(asset string, currency Currency, year uint32) string {
	return fmt.Sprintf("%s|%s|%d", asset, currency, year)
}

func (s *testSource) FetchDailyPrices(
	asset string, currency Currency, year uint32) ([]DailyPrice, error) {
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.prices[srcKey(asset, currency, year)], nil
}

func mkLoader(source Source, cache Cache) (*Loader, *memErrorPrinter) {
	errPrinter := &memErrorPrinter{}
	return NewLoader(source, cache, false, errPrinter), errPrinter
}

func TestGetPriceExactDate(t *testing.T) {
	source := &testSource{prices: map[string][]DailyPrice{
		srcKey("tok", USD, 2023): {
			mkDailyPrice(t, "2023-01-01", "100"),
			mkDailyPrice(t, "2023-01-02", "110"),
		},
	}}
	loader, errPrinter := mkLoader(source, NewMemCache())

	p, err := loader.GetPrice("tok", mkDate(t, "2023-01-02"), USD)
	require.Nil(t, err)
	require.True(t, dec("110").Equal(p))
	require.Empty(t, errPrinter.lines)

	// A second lookup in the same year is served from memory.
	p, err = loader.GetPrice("tok", mkDate(t, "2023-01-01"), USD)
	require.Nil(t, err)
	require.True(t, dec("100").Equal(p))
	require.Equal(t, 1, source.fetches)
}

func TestGetPriceNearestDateFallback(t *testing.T) {
	source := &testSource{prices: map[string][]DailyPrice{
		srcKey("tok", USD, 2023): {
			mkDailyPrice(t, "2023-01-01", "100"),
			mkDailyPrice(t, "2023-01-10", "200"),
		},
	}}
	loader, errPrinter := mkLoader(source, NewMemCache())

	// 2023-01-04 is 3 days from the 1st and 6 from the 10th.
	p, err := loader.GetPrice("tok", mkDate(t, "2023-01-04"), USD)
	require.Nil(t, err)
	require.True(t, dec("100").Equal(p))
	require.Len(t, errPrinter.lines, 1)
	require.Contains(t, errPrinter.lines[0], "nearest date 2023-01-01")
}

func TestGetPriceNearestTieGoesToEarlierDate(t *testing.T) {
	source := &testSource{prices: map[string][]DailyPrice{
		srcKey("tok", USD, 2023): {
			mkDailyPrice(t, "2023-01-03", "100"),
			mkDailyPrice(t, "2023-01-07", "200"),
		},
	}}
	loader, _ := mkLoader(source, NewMemCache())

	p, err := loader.GetPrice("tok", mkDate(t, "2023-01-05"), USD)
	require.Nil(t, err)
	require.True(t, dec("100").Equal(p))
}

func TestGetPriceDefaultWhenNothingLoaded(t *testing.T) {
	source := &testSource{err: fmt.Errorf("503 Service Unavailable")}
	loader, errPrinter := mkLoader(source, NewMemCache())

	p, err := loader.GetPrice("tok", mkDate(t, "2023-01-01"), USD)
	require.Nil(t, err)
	require.True(t, p.IsZero())
	require.NotEmpty(t, errPrinter.lines)

	loader.SetDefaultPrice(dec("42"))
	p, err = loader.GetPrice("tok", mkDate(t, "2023-01-02"), USD)
	require.Nil(t, err)
	require.True(t, dec("42").Equal(p))

	// A failing source is consulted once per (asset, currency, year).
	require.Equal(t, 1, source.fetches)
}

func TestGetPriceUnsupportedCurrency(t *testing.T) {
	source := &testSource{}
	loader, _ := mkLoader(source, NewMemCache())

	_, err := loader.GetPrice("tok", mkDate(t, "2023-01-01"), Currency("gbp"))
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "gbp")
	require.Equal(t, 0, source.fetches)
}

func TestLoaderPrefersCache(t *testing.T) {
	source := &testSource{}
	cache := NewMemCache()
	require.Nil(t, cache.WritePrices("tok", USD, 2023, []DailyPrice{
		mkDailyPrice(t, "2023-01-01", "100"),
	}))
	loader, _ := mkLoader(source, cache)

	p, err := loader.GetPrice("tok", mkDate(t, "2023-01-01"), USD)
	require.Nil(t, err)
	require.True(t, dec("100").Equal(p))
	require.Equal(t, 0, source.fetches)
}

func TestLoaderForceDownloadBypassesCache(t *testing.T) {
	source := &testSource{prices: map[string][]DailyPrice{
		srcKey("tok", USD, 2023): {mkDailyPrice(t, "2023-01-01", "150")},
	}}
	cache := NewMemCache()
	require.Nil(t, cache.WritePrices("tok", USD, 2023, []DailyPrice{
		mkDailyPrice(t, "2023-01-01", "100"),
	}))
	loader := NewLoader(source, cache, true, &memErrorPrinter{})

	p, err := loader.GetPrice("tok", mkDate(t, "2023-01-01"), USD)
	require.Nil(t, err)
	require.True(t, dec("150").Equal(p))
	require.Equal(t, 1, source.fetches)

	// The fetched prices replace the stale cache entry.
	cached, err := cache.ReadPrices("tok", USD, 2023)
	require.Nil(t, err)
	require.Len(t, cached, 1)
	require.True(t, dec("150").Equal(cached[0].Price))
}

func TestLoaderWritesFetchedPricesToCache(t *testing.T) {
	source := &testSource{prices: map[string][]DailyPrice{
		srcKey("tok", USD, 2023): {mkDailyPrice(t, "2023-01-01", "100")},
	}}
	cache := NewMemCache()
	loader, _ := mkLoader(source, cache)

	_, err := loader.GetPrice("tok", mkDate(t, "2023-01-01"), USD)
	require.Nil(t, err)

	cached, err := cache.ReadPrices("tok", USD, 2023)
	require.Nil(t, err)
	require.Len(t, cached, 1)
}

func TestLoaderLoadsYearsIndependently(t *testing.T) {
	source := &testSource{prices: map[string][]DailyPrice{
		srcKey("tok", USD, 2023): {mkDailyPrice(t, "2023-12-31", "100")},
		srcKey("tok", USD, 2024): {mkDailyPrice(t, "2024-01-01", "110")},
	}}
	loader, _ := mkLoader(source, NewMemCache())

	_, err := loader.GetPrice("tok", mkDate(t, "2023-12-31"), USD)
	require.Nil(t, err)
	require.Equal(t, 1, source.fetches)

	_, err = loader.GetPrice("tok", mkDate(t, "2024-01-01"), USD)
	require.Nil(t, err)
	require.Equal(t, 2, source.fetches)
}

func TestLookupLimiter(t *testing.T) {
	clock := time.Date(2023, 1, 1, 12, 0, 0, 0, time.UTC)
	var slept []time.Duration
	limiter := newLookupLimiter(time.Minute, 2)
	limiter.now = func() time.Time { return clock }
	limiter.sleep = func(d time.Duration) {
		slept = append(slept, d)
		clock = clock.Add(d)
	}

	limiter.acquire()
	clock = clock.Add(10 * time.Second)
	limiter.acquire()
	require.Empty(t, slept)

	// Third acquire within the window must wait until the first stamp
	// ages out: 60s window minus the 10s already elapsed.
	limiter.acquire()
	require.Equal(t, []time.Duration{50 * time.Second}, slept)

	// After the window passes, no further waiting.
	clock = clock.Add(2 * time.Minute)
	limiter.acquire()
	require.Len(t, slept, 1)
}
