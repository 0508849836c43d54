package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// CostBasisMethod defines the order in which acquisition lots are
// consumed by disposals.
type CostBasisMethod int

const (
	// FIFO (First-In, First-Out) consumes the oldest lot first.
	FIFO CostBasisMethod = iota
	// LIFO (Last-In, First-Out) consumes the newest lot first.
	LIFO
	// HIFO (Highest-In, First-Out) consumes the most expensive lot first,
	// regardless of acquisition date.
	HIFO
	// WAC (Weighted-Average Cost) collapses all lots of an asset into a
	// single lot at the quantity-weighted average price.
	WAC
)

func (m CostBasisMethod) String() string {
	switch m {
	case FIFO:
		return "fifo"
	case LIFO:
		return "lifo"
	case HIFO:
		return "hifo"
	case WAC:
		return "wac"
	default:
		return "unknown"
	}
}

func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "fifo":
		return FIFO, nil
	case "lifo":
		return LIFO, nil
	case "hifo":
		return HIFO, nil
	case "wac":
		return WAC, nil
	default:
		return 0, fmt.Errorf("Unknown cost basis method: '%s'", s)
	}
}

// reorder returns a new slice of lots in the order the method requires
// consumption to proceed from the front. The input slice is not modified.
func (m CostBasisMethod) reorder(lots []Lot) []Lot {
	if len(lots) == 0 {
		return nil
	}

	if m == WAC {
		return []Lot{collapseToAverage(lots)}
	}

	ordered := make([]Lot, len(lots))
	copy(ordered, lots)
	switch m {
	case FIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AcquiredAt < ordered[j].AcquiredAt
		})
	case LIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].AcquiredAt > ordered[j].AcquiredAt
		})
	case HIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].UnitPrice.GreaterThan(ordered[j].UnitPrice)
		})
	}
	return ordered
}

// collapseToAverage merges lots into one synthetic lot holding the total
// amount at the quantity-weighted average unit price. The synthetic lot
// keeps the date and timestamp of the oldest constituent, which is what
// subsequent holding-period classification sees.
func collapseToAverage(lots []Lot) Lot {
	totalAmount := decimal.Zero
	totalCost := decimal.Zero
	oldest := lots[0]
	for _, lot := range lots {
		totalAmount = totalAmount.Add(lot.Amount)
		totalCost = totalCost.Add(lot.Amount.Mul(lot.UnitPrice))
		if lot.AcquiredAt < oldest.AcquiredAt {
			oldest = lot
		}
	}

	avgPrice := decimal.Zero
	if !totalAmount.IsZero() {
		avgPrice = totalCost.Div(totalAmount)
	}
	return Lot{
		Amount:     totalAmount,
		UnitPrice:  avgPrice,
		Date:       oldest.Date,
		AcquiredAt: oldest.AcquiredAt,
	}
}
