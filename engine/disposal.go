package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/date"
	"github.com/tealfin/cryptogains/log"
	"github.com/tealfin/cryptogains/price"
)

// Holding periods strictly longer than this classify a disposal as
// long-term.
const longTermHoldingDays = 365

const secondsPerDay = 24 * 60 * 60

// TermPolicy selects which lot's acquisition time a disposal's holding
// period is measured against.
type TermPolicy int

const (
	// TermFromRemainingLots measures against the oldest lot still held
	// for the asset after the disposal consumed its lots. When nothing
	// remains, the oldest consumed lot is used instead.
	TermFromRemainingLots TermPolicy = iota
	// TermFromConsumedLot measures against the oldest lot the disposal
	// actually consumed.
	TermFromConsumedLot
)

func (p TermPolicy) String() string {
	switch p {
	case TermFromRemainingLots:
		return "remaining"
	case TermFromConsumedLot:
		return "consumed"
	default:
		return "unknown"
	}
}

func ParseTermPolicy(s string) (TermPolicy, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "remaining":
		return TermFromRemainingLots, nil
	case "consumed":
		return TermFromConsumedLot, nil
	default:
		return 0, fmt.Errorf("Unknown term policy: '%s'", s)
	}
}

// TaxableEvent is one realized disposal. Immutable after creation.
type TaxableEvent struct {
	Source          *TransferEvent
	Asset           string
	Date            date.Date
	AcquisitionCost decimal.Decimal
	Proceeds        decimal.Decimal
	GainOrLoss      decimal.Decimal
	IsLongTerm      bool
}

type CalcOptions struct {
	Method     CostBasisMethod
	Currency   price.Currency
	WalletAddr string
	TermPolicy TermPolicy
}

// Calculator folds an ordered transfer-event stream into realized
// taxable events against a fresh per-run ledger. A Calculator performs
// one run at a time; ledger state does not persist across Calculate
// calls.
type Calculator struct {
	oracle     price.Oracle
	opts       CalcOptions
	errPrinter log.ErrorPrinter
}

func NewCalculator(
	oracle price.Oracle, opts CalcOptions,
	errPrinter log.ErrorPrinter) *Calculator {
	if errPrinter == nil {
		errPrinter = &log.StderrErrorPrinter{}
	}
	return &Calculator{
		oracle:     oracle,
		opts:       opts,
		errPrinter: errPrinter,
	}
}

// Calculate processes events in ascending timestamp order and returns
// the aggregated tax summary. Events of irrelevant kinds, self-transfers
// and transfers not touching the configured wallet are skipped. Only
// input-validation problems (unsupported currency) produce an error;
// price gaps and over-disposals degrade locally and still yield a
// complete summary.
func (c *Calculator) Calculate(events []*TransferEvent) (*TaxSummary, error) {
	if err := price.ValidateCurrency(c.opts.Currency); err != nil {
		return nil, err
	}

	sorted := SortTransferEvents(events)
	ledger := NewLedger(c.opts.Method)
	taxables := make([]*TaxableEvent, 0, len(sorted))

	for _, ev := range sorted {
		if !ev.Relevant() || ev.Amount.IsZero() {
			continue
		}
		switch {
		case ev.Inbound(c.opts.WalletAddr):
			if err := c.recordAcquisition(ledger, ev); err != nil {
				return nil, err
			}
		case ev.Outbound(c.opts.WalletAddr):
			taxable, err := c.processDisposal(ledger, ev)
			if err != nil {
				return nil, err
			}
			if taxable != nil {
				taxables = append(taxables, taxable)
			}
		default:
			// Self-transfer, or a transfer between third parties.
			log.Verbosef("Skipping %s transfer not crossing the wallet boundary (%s -> %s)\n",
				ev.Asset, ev.From, ev.To)
		}
	}

	return SummarizeTaxableEvents(taxables), nil
}

func (c *Calculator) recordAcquisition(ledger *Ledger, ev *TransferEvent) error {
	unitPrice, err := c.oracle.GetPrice(ev.Asset, ev.Date(), c.opts.Currency)
	if err != nil {
		return err
	}
	ledger.RecordAcquisition(
		ev.Asset, ev.Amount.Abs(), unitPrice, ev.Date(), ev.Time.Unix())
	return nil
}

// processDisposal consumes lots for the disposed amount and realizes a
// gain or loss. Returns nil when the ledger holds no lots at all for the
// asset (the disposal produces no taxable event).
func (c *Calculator) processDisposal(
	ledger *Ledger, ev *TransferEvent) (*TaxableEvent, error) {

	asset := ev.Asset
	if !ledger.HasLots(asset) {
		log.Verbosef("No lots held for %s; disposal on %s produces no taxable event\n",
			asset, ev.Date())
		return nil, nil
	}

	amount := ev.Amount.Abs()
	unitPrice, err := c.oracle.GetPrice(asset, ev.Date(), c.opts.Currency)
	if err != nil {
		return nil, err
	}
	proceeds := amount.Mul(unitPrice)

	lots := ledger.Lots(asset)
	remaining := amount
	acquisitionCost := decimal.Zero
	var remainingLots []Lot
	var oldestConsumedAt int64 = -1

	for i, lot := range lots {
		if remaining.IsZero() {
			remainingLots = append(remainingLots, lots[i:]...)
			break
		}
		if oldestConsumedAt < 0 || lot.AcquiredAt < oldestConsumedAt {
			oldestConsumedAt = lot.AcquiredAt
		}
		if lot.Amount.LessThanOrEqual(remaining) {
			// Consume the lot fully.
			acquisitionCost = acquisitionCost.Add(lot.Amount.Mul(lot.UnitPrice))
			remaining = remaining.Sub(lot.Amount)
		} else {
			// Consume only the needed portion; replace the lot with a
			// shrunken copy.
			acquisitionCost = acquisitionCost.Add(remaining.Mul(lot.UnitPrice))
			shrunk := lot
			shrunk.Amount = lot.Amount.Sub(remaining)
			remainingLots = append(remainingLots, shrunk)
			remaining = decimal.Zero
		}
	}

	if remaining.IsPositive() {
		c.errPrinter.F(
			"Disposal of %s %s on %s exceeds held lots by %s; "+
				"proceeding with partial acquisition cost\n",
			amount, asset, ev.Date(), remaining)
	}

	ledger.SetLots(asset, remainingLots)

	refAcquiredAt := c.termReference(remainingLots, oldestConsumedAt)
	holdingSeconds := ev.Time.Unix() - refAcquiredAt
	isLongTerm := holdingSeconds > int64(longTermHoldingDays)*secondsPerDay

	return &TaxableEvent{
		Source:          ev,
		Asset:           asset,
		Date:            ev.Date(),
		AcquisitionCost: acquisitionCost,
		Proceeds:        proceeds,
		GainOrLoss:      proceeds.Sub(acquisitionCost),
		IsLongTerm:      isLongTerm,
	}, nil
}

func (c *Calculator) termReference(remainingLots []Lot, oldestConsumedAt int64) int64 {
	if c.opts.TermPolicy == TermFromConsumedLot {
		return oldestConsumedAt
	}
	oldestRemaining := int64(-1)
	for _, lot := range remainingLots {
		if oldestRemaining < 0 || lot.AcquiredAt < oldestRemaining {
			oldestRemaining = lot.AcquiredAt
		}
	}
	if oldestRemaining < 0 {
		return oldestConsumedAt
	}
	return oldestRemaining
}
