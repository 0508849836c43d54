package price

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/date"
	"github.com/tealfin/cryptogains/log"
)

const (
	DefaultBaseUrl = "https://api.tealfin.dev/v1"

	defaultMaxRetries = 3
	defaultRetryDelay = 2 * time.Second
)

// Source fetches a year of daily closing prices for an asset.
type Source interface {
	FetchDailyPrices(asset string, currency Currency, year uint32) ([]DailyPrice, error)
}

type HistoryJsonPrice struct {
	ValStr string `json:"p"`
}

func (v HistoryJsonPrice) Val() (decimal.Decimal, error) {
	if v.ValStr == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v.ValStr)
}

type HistoryJsonObs struct {
	Date  string           `json:"d"`
	Close HistoryJsonPrice `json:"c"`
}

type HistoryJsonRoot struct {
	Observations []HistoryJsonObs `json:"observations"`
}

// HttpSource fetches daily price observations from a JSON price-history
// endpoint, one calendar year per request. Transient failures (network
// errors, 429 and 5xx statuses) are retried a bounded number of times
// with a fixed delay.
type HttpSource struct {
	BaseUrl    string
	MaxRetries int
	RetryDelay time.Duration
	Client     *http.Client
}

func NewHttpSource(baseUrl string) *HttpSource {
	if baseUrl == "" {
		baseUrl = DefaultBaseUrl
	}
	return &HttpSource{
		BaseUrl:    baseUrl,
		MaxRetries: defaultMaxRetries,
		RetryDelay: defaultRetryDelay,
		Client:     http.DefaultClient,
	}
}

func (s *HttpSource) historyUrl(asset string, currency Currency, year uint32) string {
	return fmt.Sprintf(
		"%s/assets/%s/history/json?currency=%s&start_date=%d-01-01&end_date=%d-12-31",
		s.BaseUrl, url.PathEscape(asset), currency, year, year)
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (s *HttpSource) get(url string) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.RetryDelay)
		}
		resp, err := s.Client.Get(url)
		if err != nil {
			lastErr = err
			continue
		}
		if isTransientStatus(resp.StatusCode) {
			resp.Body.Close()
			lastErr = fmt.Errorf("Error status: %s", resp.Status)
			continue
		}
		if resp.StatusCode != 200 {
			resp.Body.Close()
			return nil, fmt.Errorf("Error status: %s", resp.Status)
		}
		return resp, nil
	}
	return nil, fmt.Errorf("Error getting prices: %v", lastErr)
}

func (s *HttpSource) FetchDailyPrices(
	asset string, currency Currency, year uint32) ([]DailyPrice, error) {

	url := s.historyUrl(asset, currency, year)
	log.Fverbosef(os.Stderr, "Fetching %s/%s prices for %d (%s)\n",
		asset, currency, year, url)

	resp, err := s.get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var theJson HistoryJsonRoot
	dcdr := json.NewDecoder(resp.Body)
	err = dcdr.Decode(&theJson)
	if err != nil {
		return nil, err
	}

	prices := make([]DailyPrice, 0, len(theJson.Observations))
	for _, obs := range theJson.Observations {
		day, err := date.Parse(date.DefaultFormat, obs.Date)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to parse date:", err)
			continue
		}
		val, err := obs.Close.Val()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Failed to parse price for", day, ":", obs.Close.ValStr)
			continue
		}
		prices = append(prices, DailyPrice{day, val})
	}
	return prices, nil
}
