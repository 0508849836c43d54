package engine

import (
	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/date"
	"github.com/tealfin/cryptogains/util"
)

// Lot is a quantity of an asset acquired at one unit price on one date.
// Lots are value objects; consumption replaces them rather than mutating
// them in place.
type Lot struct {
	Amount     decimal.Decimal
	UnitPrice  decimal.Decimal
	Date       date.Date
	AcquiredAt int64 // unix seconds
}

// Ledger tracks acquired-but-not-yet-disposed lots per asset, keeping
// each asset's lot sequence normalized to the active cost basis method's
// consumption order. The sum of lot amounts for an asset always equals
// the net unconsumed acquired quantity; lots with non-positive amounts
// are never stored.
type Ledger struct {
	lots   map[string][]Lot
	method CostBasisMethod
}

func NewLedger(method CostBasisMethod) *Ledger {
	return &Ledger{
		lots:   make(map[string][]Lot),
		method: method,
	}
}

func (l *Ledger) Method() CostBasisMethod {
	return l.method
}

// RecordAcquisition appends a new lot for asset and eagerly re-normalizes
// the asset's lot sequence for the active method. amount must be > 0.
func (l *Ledger) RecordAcquisition(
	asset string, amount decimal.Decimal, unitPrice decimal.Decimal,
	day date.Date, acquiredAt int64) {

	util.Assertf(amount.IsPositive(),
		"RecordAcquisition: non-positive amount %s for %s", amount, asset)

	lots := append(l.lots[asset], Lot{
		Amount:     amount,
		UnitPrice:  unitPrice,
		Date:       day,
		AcquiredAt: acquiredAt,
	})
	l.lots[asset] = l.method.reorder(lots)
}

// Lots returns the asset's lots in consumption order. The returned slice
// must not be modified; disposals write back through SetLots.
func (l *Ledger) Lots(asset string) []Lot {
	return l.lots[asset]
}

func (l *Ledger) HasLots(asset string) bool {
	return len(l.lots[asset]) > 0
}

// SetLots replaces the asset's lot sequence with the given
// already-ordered lots, dropping the asset entirely when empty.
func (l *Ledger) SetLots(asset string, lots []Lot) {
	for _, lot := range lots {
		util.Assertf(lot.Amount.IsPositive(),
			"SetLots: non-positive lot amount %s for %s", lot.Amount, asset)
	}
	if len(lots) == 0 {
		delete(l.lots, asset)
		return
	}
	l.lots[asset] = lots
}

// TotalAmount returns the net unconsumed quantity held for asset.
func (l *Ledger) TotalAmount(asset string) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range l.lots[asset] {
		total = total.Add(lot.Amount)
	}
	return total
}
