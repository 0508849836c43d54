package price

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/date"
)

type Currency string

const (
	EUR Currency = "eur"
	USD Currency = "usd"
)

var SupportedCurrencies = []Currency{EUR, USD}

// All monetary comparisons in a run require a single consistent currency,
// so an unrecognized currency is a hard input-validation error.
func ValidateCurrency(c Currency) error {
	for _, sc := range SupportedCurrencies {
		if c == sc {
			return nil
		}
	}
	return fmt.Errorf("Unsupported currency '%s'. Supported currencies are: %v",
		c, SupportedCurrencies)
}

type DailyPrice struct {
	Date  date.Date
	Price decimal.Decimal
}

func (p DailyPrice) Equal(other DailyPrice) bool {
	return p.Date.Equal(other.Date) && p.Price.Equal(other.Price)
}

func (p DailyPrice) String() string {
	return fmt.Sprintf("%s : %s", p.Date.String(), p.Price)
}

// Oracle provides the unit price of an asset on a calendar date, in a
// given currency. Lookups are idempotent per (asset, date, currency).
type Oracle interface {
	GetPrice(asset string, day date.Date, currency Currency) (decimal.Decimal, error)
}
