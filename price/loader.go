package price

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/date"
	"github.com/tealfin/cryptogains/log"
	"github.com/tealfin/cryptogains/util"
)

const (
	defaultLookupWindow = time.Minute
	defaultMaxLookups   = 30
)

// lookupLimiter caps remote lookups to maxLookups per rolling window,
// blocking until the oldest lookup falls out of the window.
type lookupLimiter struct {
	window     time.Duration
	maxLookups int
	stamps     []time.Time

	// Overridable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

func newLookupLimiter(window time.Duration, maxLookups int) *lookupLimiter {
	return &lookupLimiter{
		window:     window,
		maxLookups: maxLookups,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

func (l *lookupLimiter) acquire() {
	now := l.now()
	cutoff := now.Add(-l.window)
	live := l.stamps[:0]
	for _, s := range l.stamps {
		if s.After(cutoff) {
			live = append(live, s)
		}
	}
	l.stamps = live

	if len(l.stamps) >= l.maxLookups {
		wait := l.stamps[0].Add(l.window).Sub(now)
		if wait > 0 {
			l.sleep(wait)
			now = l.now()
		}
		l.stamps = l.stamps[1:]
	}
	l.stamps = append(l.stamps, now)
}

type priceKey struct {
	Asset    string
	Currency Currency
}

// Loader implements Oracle on top of a remote Source and a Cache.
// Prices are loaded lazily, one (asset, currency, year) batch at a time,
// and held in memory for the lifetime of the Loader. A Loader is scoped
// to a single calculation run and is not safe for concurrent use.
type Loader struct {
	loadedPrices map[priceKey]map[date.Date]decimal.Decimal
	loadedYears  map[priceKey]map[uint32]bool

	source        Source
	cache         Cache
	forceDownload bool
	defaultPrice  util.Optional[decimal.Decimal]
	limiter       *lookupLimiter
	errPrinter    log.ErrorPrinter
}

func NewLoader(
	source Source, cache Cache, forceDownload bool,
	errPrinter log.ErrorPrinter) *Loader {
	return &Loader{
		loadedPrices:  make(map[priceKey]map[date.Date]decimal.Decimal),
		loadedYears:   make(map[priceKey]map[uint32]bool),
		source:        source,
		cache:         cache,
		forceDownload: forceDownload,
		limiter:       newLookupLimiter(defaultLookupWindow, defaultMaxLookups),
		errPrinter:    errPrinter,
	}
}

// SetDefaultPrice sets the price returned when no price can be found for
// an asset at all (zero otherwise).
func (l *Loader) SetDefaultPrice(p decimal.Decimal) {
	l.defaultPrice = util.NewOptional(p)
}

func (l *Loader) fetchYear(key priceKey, year uint32) ([]DailyPrice, error) {
	if !l.forceDownload && l.cache != nil {
		prices, err := l.cache.ReadPrices(key.Asset, key.Currency, year)
		if err == nil {
			return prices, nil
		}
		log.Verbosef("Could not load cached prices for %s/%s %d: %v\n",
			key.Asset, key.Currency, year, err)
	}

	l.limiter.acquire()
	prices, err := l.source.FetchDailyPrices(key.Asset, key.Currency, year)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		if err := l.cache.WritePrices(key.Asset, key.Currency, year, prices); err != nil {
			l.errPrinter.Ln("Failed to update price cache:", err)
		}
	}
	return prices, nil
}

func (l *Loader) ensureYearLoaded(key priceKey, year uint32) {
	years, ok := l.loadedYears[key]
	if !ok {
		years = make(map[uint32]bool)
		l.loadedYears[key] = years
	}
	if years[year] {
		return
	}
	// Mark the year attempted either way, so a failing source is only
	// consulted once per (asset, currency, year).
	years[year] = true

	prices, err := l.fetchYear(key, year)
	if err != nil {
		l.errPrinter.F("Could not load %s/%s prices for %d: %v\n",
			key.Asset, key.Currency, year, err)
		return
	}

	dayPrices, ok := l.loadedPrices[key]
	if !ok {
		dayPrices = make(map[date.Date]decimal.Decimal)
		l.loadedPrices[key] = dayPrices
	}
	for _, p := range prices {
		dayPrices[p.Date] = p.Price
	}
}

func (l *Loader) nearestLoadedPrice(
	key priceKey, day date.Date) (decimal.Decimal, date.Date, bool) {

	var nearestPrice decimal.Decimal
	var nearestDay date.Date
	nearestDist := -1
	for d, p := range l.loadedPrices[key] {
		dist := day.DaysApart(d)
		if nearestDist < 0 || dist < nearestDist ||
			(dist == nearestDist && d.Before(nearestDay)) {
			nearestDist = dist
			nearestDay = d
			nearestPrice = p
		}
	}
	return nearestPrice, nearestDay, nearestDist >= 0
}

// GetPrice returns the unit price of asset on day, in currency.
// If no price exists for the exact date, the nearest loaded date for the
// asset is used; if the asset has no loaded prices at all, the configured
// default (or zero) is returned. Only an unsupported currency is an error.
func (l *Loader) GetPrice(
	asset string, day date.Date, currency Currency) (decimal.Decimal, error) {

	if err := ValidateCurrency(currency); err != nil {
		return decimal.Zero, err
	}

	key := priceKey{Asset: asset, Currency: currency}
	l.ensureYearLoaded(key, uint32(day.Year()))

	if p, ok := l.loadedPrices[key][day]; ok {
		return p, nil
	}

	if p, nearestDay, ok := l.nearestLoadedPrice(key, day); ok {
		l.errPrinter.F("No %s price for %s on %s; using nearest date %s\n",
			currency, asset, day, nearestDay)
		return p, nil
	}

	l.errPrinter.F("No %s prices available for %s; using default price\n",
		currency, asset)
	return l.defaultPrice.GetOr(decimal.Zero), nil
}
