package price

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/date"
)

// Cache stores a year's worth of daily prices per (asset, currency).
// Prices are historical facts, so entries never need invalidation.
type Cache interface {
	WritePrices(asset string, currency Currency, year uint32, prices []DailyPrice) error
	ReadPrices(asset string, currency Currency, year uint32) ([]DailyPrice, error)
}

type MemCache struct {
	prices map[string][]DailyPrice
}

func NewMemCache() *MemCache {
	return &MemCache{prices: make(map[string][]DailyPrice)}
}

func memKey(asset string, currency Currency, year uint32) string {
	return fmt.Sprintf("%s|%s|%d", strings.ToLower(asset), currency, year)
}

func (c *MemCache) WritePrices(
	asset string, currency Currency, year uint32, prices []DailyPrice) error {
	c.prices[memKey(asset, currency, year)] = prices
	return nil
}

func (c *MemCache) ReadPrices(
	asset string, currency Currency, year uint32) ([]DailyPrice, error) {
	prices, ok := c.prices[memKey(asset, currency, year)]
	if !ok {
		return nil, fmt.Errorf("No cached prices for %s/%s in %d", asset, currency, year)
	}
	return prices, nil
}

// CsvCache persists daily prices as two-column (date, price) csv files in
// the user's home directory, one file per asset, currency and year.
type CsvCache struct{}

func HomeDirFile(fname string) (string, error) {
	const dir = ".cryptogains"
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	dirPath := filepath.Join(usr.HomeDir, dir)
	os.MkdirAll(dirPath, 0700)
	return filepath.Join(dirPath, url.QueryEscape(fname)), err
}

func pricesCsvFile(asset string, currency Currency, year uint32, write bool) (*os.File, error) {
	preFname := fmt.Sprintf("prices-%s-%s-%d.csv", strings.ToLower(asset), currency, year)
	fname, err := HomeDirFile(preFname)
	if err != nil {
		return nil, err
	}
	if write {
		return os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.ModePerm)
	}
	return os.Open(fname)
}

func getPricesFromCsv(r io.Reader) ([]DailyPrice, error) {
	csvR := csv.NewReader(r)
	csvR.FieldsPerRecord = 2
	records, err := csvR.ReadAll()
	if err != nil {
		return nil, err
	}

	prices := make([]DailyPrice, 0, len(records))

	for _, record := range records {
		day, err := date.Parse(date.DefaultFormat, record[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to parse date:", err)
			continue
		}
		p, err := decimal.NewFromString(record[1])
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to parse price:", err)
			continue
		}

		prices = append(prices, DailyPrice{day, p})
	}

	return prices, nil
}

func (c *CsvCache) WritePrices(
	asset string, currency Currency, year uint32, prices []DailyPrice) (err error) {
	file, err := pricesCsvFile(asset, currency, year, true)
	if err != nil {
		return
	}
	defer func() {
		cerr := file.Close()
		if err == nil {
			err = cerr
		}
	}()

	csvW := csv.NewWriter(file)
	for _, p := range prices {
		row := []string{p.Date.String(), p.Price.String()}
		err = csvW.Write(row)
		if err != nil {
			return
		}
	}
	csvW.Flush()
	return
}

func (c *CsvCache) ReadPrices(
	asset string, currency Currency, year uint32) ([]DailyPrice, error) {
	file, err := pricesCsvFile(asset, currency, year, false)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return getPricesFromCsv(file)
}
