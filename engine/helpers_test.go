package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tealfin/cryptogains/date"
	"github.com/tealfin/cryptogains/price"
	"github.com/tealfin/cryptogains/util"
)

const DefaultTestAsset = "TOK"
const TestWalletAddr = "0xWALLET"
const TestOtherAddr = "0xOTHER"

func init() {
	util.AssertsPanic = true
}

func mkDate(t *testing.T, dateStr string) date.Date {
	d, err := date.Parse(date.DefaultFormat, dateStr)
	require.Nil(t, err)
	return d
}

func mkTime(t *testing.T, dateStr string) time.Time {
	tm, err := time.Parse(date.DefaultFormat, dateStr)
	require.Nil(t, err)
	return tm
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Test TransferEvent
type TEv struct {
	Asset string
	Amt   string // signed; negative amounts default to outbound
	Day   string // YYYY-MM-DD
	From  string
	To    string
	Kind  TransferKind // defaults to KindAsset
	Idx   uint32
}

// eXpand to full type.
func (e TEv) X(t *testing.T) *TransferEvent {
	amount := dec(e.Amt)
	from := e.From
	to := e.To
	if from == "" && to == "" {
		if amount.IsNegative() {
			from, to = TestWalletAddr, TestOtherAddr
		} else {
			from, to = TestOtherAddr, TestWalletAddr
		}
	}
	return &TransferEvent{
		Asset:     util.Tern(e.Asset == "", DefaultTestAsset, e.Asset),
		Amount:    amount,
		Time:      mkTime(t, e.Day),
		From:      from,
		To:        to,
		Kind:      e.Kind,
		ReadIndex: e.Idx,
	}
}

// testOracle serves fixed prices keyed by "asset|YYYY-MM-DD", with a
// fallthrough default for unlisted dates.
type testOracle struct {
	prices       map[string]string
	defaultPrice string
	lookups      int
}

func (o *testOracle) GetPrice(
	asset string, day date.Date, currency price.Currency) (decimal.Decimal, error) {

	if err := price.ValidateCurrency(currency); err != nil {
		return decimal.Zero, err
	}
	o.lookups++
	if p, ok := o.prices[asset+"|"+day.String()]; ok {
		return dec(p), nil
	}
	if o.defaultPrice != "" {
		return dec(o.defaultPrice), nil
	}
	return decimal.Zero, nil
}

func mkCalculator(oracle price.Oracle, method CostBasisMethod) *Calculator {
	return NewCalculator(oracle, CalcOptions{
		Method:     method,
		Currency:   price.USD,
		WalletAddr: TestWalletAddr,
	}, nil)
}

func calcNoErr(
	t *testing.T, calc *Calculator, events []*TransferEvent) *TaxSummary {
	summary, err := calc.Calculate(events)
	require.Nil(t, err)
	require.NotNil(t, summary)
	return summary
}

// Test TaxableEvent expectation
type TTax struct {
	Asset    string
	AcqCost  string
	Proceeds string
	Gain     string
	LongTerm bool
}

func validateTaxable(t *testing.T, exp TTax, actual *TaxableEvent) {
	asset := util.Tern(exp.Asset == "", DefaultTestAsset, exp.Asset)
	require.Equal(t, asset, actual.Asset)
	requireDecEq(t, dec(exp.AcqCost), actual.AcquisitionCost, "AcquisitionCost")
	requireDecEq(t, dec(exp.Proceeds), actual.Proceeds, "Proceeds")
	requireDecEq(t, dec(exp.Gain), actual.GainOrLoss, "GainOrLoss")
	require.Equal(t, exp.LongTerm, actual.IsLongTerm, "IsLongTerm")
}

func validateTaxables(t *testing.T, exps []TTax, actuals []*TaxableEvent) {
	require.Equal(t, len(exps), len(actuals))
	for i, exp := range exps {
		validateTaxable(t, exp, actuals[i])
	}
}

func requireDecEq(t *testing.T, exp decimal.Decimal, actual decimal.Decimal, field string) {
	require.True(t, exp.Equal(actual), "%s: expected %s, got %s", field, exp, actual)
}

// Test Lot expectation
type TLot struct {
	Amt   string
	Price string
	Day   string
}

func validateLots(t *testing.T, exps []TLot, actuals []Lot) {
	require.Equal(t, len(exps), len(actuals))
	for i, exp := range exps {
		requireDecEq(t, dec(exp.Amt), actuals[i].Amount, "lot Amount")
		requireDecEq(t, dec(exp.Price), actuals[i].UnitPrice, "lot UnitPrice")
		if exp.Day != "" {
			require.Equal(t, exp.Day, actuals[i].Date.String())
		}
	}
}
