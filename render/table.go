package render

import (
	"fmt"
	"io"

	tw "github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/engine"
	"github.com/tealfin/cryptogains/util"
)

type _PrintHelper struct {
	PrintAllDecimals bool
}

func (h _PrintHelper) CurrStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return val.String()
	}
	return val.StringFixed(2)
}

func (h _PrintHelper) PlusMinusCurr(val decimal.Decimal, showPlus bool) string {
	if val.IsNegative() {
		return "-" + h.CurrStr(val.Neg())
	}
	plus := ""
	if showPlus {
		plus = "+"
	}
	return plus + h.CurrStr(val)
}

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

// RenderTaxableEventsModel builds a per-event table with yearly net
// totals in the footer.
func RenderTaxableEventsModel(
	summary *engine.TaxSummary, renderFullValues bool) *RenderTable {

	table := &RenderTable{}
	table.Header = []string{"Asset", "Date", "Amount", "Proceeds",
		"Acquisition Cost", "Gain (Loss)", "Term"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}

	for _, ev := range summary.Events {
		row := []string{
			ev.Asset,
			ev.Date.String(),
			ev.Source.Amount.Abs().String(),
			ph.CurrStr(ev.Proceeds),
			ph.CurrStr(ev.AcquisitionCost),
			ph.PlusMinusCurr(ev.GainOrLoss, false),
			util.Tern(ev.IsLongTerm, "long", "short"),
		}
		table.Rows = append(table.Rows, row)
	}

	yearLabels := "Net"
	yearVals := ph.PlusMinusCurr(summary.NetGainOrLoss, false)
	for _, year := range summary.YearsSorted() {
		net := decimal.Zero
		for _, ev := range summary.EventsByYear[year] {
			net = net.Add(ev.GainOrLoss)
		}
		yearLabels += "\n" + year
		yearVals += "\n" + ph.PlusMinusCurr(net, false)
	}
	table.Footer = []string{"", "", "", "",
		yearLabels, yearVals, ""}

	return table
}

/*
Generates a RenderTable that will render out to this:
| Total Gains | Total Losses | Net       | Long-Term Gains | Short-Term Gains |
+-------------+--------------+-----------+-----------------+------------------+
| xxxx.xx     | xxxx.xx      | xxxx.xx   | xxxx.xx         | xxxx.xx          |
*/
func RenderSummaryTotals(
	summary *engine.TaxSummary, renderFullValues bool) *RenderTable {

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}

	table := &RenderTable{}
	table.Header = []string{"Total Gains", "Total Losses", "Net",
		"Long-Term Gains", "Short-Term Gains"}
	table.Rows = append(table.Rows, []string{
		ph.CurrStr(summary.TotalGains),
		ph.CurrStr(summary.TotalLosses),
		ph.PlusMinusCurr(summary.NetGainOrLoss, false),
		ph.CurrStr(summary.LongTermGains),
		ph.CurrStr(summary.ShortTermGains),
	})
	return table
}

func PrintRenderTable(title string, tableModel *RenderTable, writer io.Writer) {
	for _, err := range tableModel.Errors {
		fmt.Fprintf(writer, "[!] %v. Printing parsed information state:\n", err)
	}
	fmt.Fprintf(writer, "%s\n", title)

	table := tw.NewWriter(writer)
	table.SetHeader(tableModel.Header)
	table.SetBorder(false)
	table.SetRowLine(true)

	for _, row := range tableModel.Rows {
		table.Append(row)
	}

	if len(tableModel.Footer) > 0 {
		table.SetFooter(tableModel.Footer)
	}

	table.Render()

	for _, note := range tableModel.Notes {
		fmt.Fprintln(writer, note)
	}
}
