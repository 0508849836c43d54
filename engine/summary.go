package engine

import (
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
)

// TaxSummary holds the aggregated result of one calculation run.
// TotalLosses is a positive magnitude; NetGainOrLoss = TotalGains -
// TotalLosses. Long/short-term splits cover gains only.
type TaxSummary struct {
	TotalGains     decimal.Decimal
	TotalLosses    decimal.Decimal
	NetGainOrLoss  decimal.Decimal
	LongTermGains  decimal.Decimal
	ShortTermGains decimal.Decimal

	Events        []*TaxableEvent
	EventsByYear  map[string][]*TaxableEvent
	EventsByAsset map[string][]*TaxableEvent
}

// SummarizeTaxableEvents folds events into a TaxSummary in a single
// pass. It is a pure function; an empty input yields all-zero totals and
// empty groupings. Ordering within each grouping follows the input.
func SummarizeTaxableEvents(events []*TaxableEvent) *TaxSummary {
	summary := &TaxSummary{
		TotalGains:     decimal.Zero,
		TotalLosses:    decimal.Zero,
		NetGainOrLoss:  decimal.Zero,
		LongTermGains:  decimal.Zero,
		ShortTermGains: decimal.Zero,
		Events:         events,
		EventsByYear:   make(map[string][]*TaxableEvent),
		EventsByAsset:  make(map[string][]*TaxableEvent),
	}

	for _, ev := range events {
		if ev.GainOrLoss.IsPositive() {
			summary.TotalGains = summary.TotalGains.Add(ev.GainOrLoss)
			if ev.IsLongTerm {
				summary.LongTermGains = summary.LongTermGains.Add(ev.GainOrLoss)
			} else {
				summary.ShortTermGains = summary.ShortTermGains.Add(ev.GainOrLoss)
			}
		} else if ev.GainOrLoss.IsNegative() {
			summary.TotalLosses = summary.TotalLosses.Add(ev.GainOrLoss.Abs())
		}

		year := strconv.Itoa(ev.Date.Year())
		summary.EventsByYear[year] = append(summary.EventsByYear[year], ev)
		summary.EventsByAsset[ev.Asset] = append(summary.EventsByAsset[ev.Asset], ev)
	}

	summary.NetGainOrLoss = summary.TotalGains.Sub(summary.TotalLosses)
	return summary
}

func (s *TaxSummary) YearsSorted() []string {
	years := make([]string, 0, len(s.EventsByYear))
	for year := range s.EventsByYear {
		years = append(years, year)
	}
	sort.Strings(years)
	return years
}

func (s *TaxSummary) AssetsSorted() []string {
	assets := make([]string, 0, len(s.EventsByAsset))
	for asset := range s.EventsByAsset {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}
