package app

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/engine"
	"github.com/tealfin/cryptogains/log"
	"github.com/tealfin/cryptogains/price"
	"github.com/tealfin/cryptogains/render"
	"github.com/tealfin/cryptogains/util"
)

type DescribedReader struct {
	Desc   string
	Reader io.Reader
}

type Options struct {
	Method           engine.CostBasisMethod
	Currency         price.Currency
	WalletAddr       string
	TermPolicy       engine.TermPolicy
	ForceDownload    bool
	PriceBaseUrl     string
	DefaultPrice     util.Optional[decimal.Decimal]
	RenderFullValues bool
}

// RunCalcApp parses transfer events from all readers, runs the
// calculator against a price loader backed by cache, and renders the
// resulting summary to stdout.
func RunCalcApp(
	csvFileReaders []DescribedReader,
	opts Options,
	cache price.Cache,
	errPrinter log.ErrorPrinter) (retErr error) {

	allEvents := make([]*engine.TransferEvent, 0, 20)
	for _, csvReader := range csvFileReaders {
		events, err := engine.ParseTransferEventsCsv(csvReader.Reader, csvReader.Desc)
		if err != nil {
			errPrinter.Ln("Error:", err)
			retErr = err
			return
		}
		for i, ev := range events {
			ev.ReadIndex = uint32(len(allEvents) + i)
		}
		allEvents = append(allEvents, events...)
	}

	source := price.NewHttpSource(opts.PriceBaseUrl)
	loader := price.NewLoader(source, cache, opts.ForceDownload, errPrinter)
	if opts.DefaultPrice.Present() {
		loader.SetDefaultPrice(opts.DefaultPrice.MustGet())
	}

	calc := engine.NewCalculator(loader, engine.CalcOptions{
		Method:     opts.Method,
		Currency:   opts.Currency,
		WalletAddr: opts.WalletAddr,
		TermPolicy: opts.TermPolicy,
	}, errPrinter)

	summary, err := calc.Calculate(allEvents)
	if err != nil {
		errPrinter.Ln("Error:", err)
		retErr = err
		return
	}

	eventsModel := render.RenderTaxableEventsModel(summary, opts.RenderFullValues)
	render.PrintRenderTable(
		fmt.Sprintf("Taxable events (%s, %s)", opts.Method, opts.Currency),
		eventsModel, os.Stdout)
	fmt.Println("")

	totalsModel := render.RenderSummaryTotals(summary, opts.RenderFullValues)
	render.PrintRenderTable("Totals", totalsModel, os.Stdout)
	return
}
