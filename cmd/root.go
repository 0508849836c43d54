package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tealfin/cryptogains/app"
	"github.com/tealfin/cryptogains/engine"
	"github.com/tealfin/cryptogains/log"
	"github.com/tealfin/cryptogains/price"
)

var MethodOpt = "fifo"
var CurrencyOpt = "usd"
var WalletOpt = ""
var TermPolicyOpt = "remaining"
var ForceDownload = false
var PriceBaseUrlOpt = ""
var DefaultPriceOpt = ""
var RenderFullValues = false

func runRootCmd(cmd *cobra.Command, args []string) {
	errPrinter := &log.StderrErrorPrinter{}

	method, err := engine.ParseCostBasisMethod(MethodOpt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing --method: %v\n", err)
		os.Exit(1)
	}
	termPolicy, err := engine.ParseTermPolicy(TermPolicyOpt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing --term-policy: %v\n", err)
		os.Exit(1)
	}
	if WalletOpt == "" {
		fmt.Fprintln(os.Stderr, "Error: --wallet is required")
		os.Exit(1)
	}

	opts := app.Options{
		Method:           method,
		Currency:         price.Currency(strings.ToLower(CurrencyOpt)),
		WalletAddr:       WalletOpt,
		TermPolicy:       termPolicy,
		ForceDownload:    ForceDownload,
		PriceBaseUrl:     PriceBaseUrlOpt,
		RenderFullValues: RenderFullValues,
	}
	if DefaultPriceOpt != "" {
		p, err := decimal.NewFromString(DefaultPriceOpt)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing --default-price: %v\n", err)
			os.Exit(1)
		}
		opts.DefaultPrice.Set(p)
	}

	csvReaders := make([]app.DescribedReader, 0, len(args))
	for _, csvName := range args {
		fp, err := os.Open(csvName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer fp.Close()
		csvReaders = append(csvReaders, app.DescribedReader{Desc: csvName, Reader: fp})
	}

	err = app.RunCalcApp(csvReaders, opts, &price.CsvCache{}, errPrinter)
	if err != nil {
		os.Exit(1)
	}
}

func cmdName() string {
	binName := os.Args[0]
	return filepath.Base(binName)
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   cmdName() + " [CSV_FILE ...]",
	Short: "Crypto capital gains calculation tool",
	Long: fmt.Sprintf(
		`A cli tool which computes realized capital gains and losses from a
stream of normalized asset-transfer events, using a configurable
cost basis method (fifo, lifo, hifo, wac).

Historical prices are looked up per asset and day, and cached locally
under ~/.cryptogains/.

Each CSV provided should contain a header with these column names:
%s
`, strings.Join(engine.ColNames, ", ")),
	Run:     runRootCmd,
	Args:    cobra.MinimumNArgs(1),
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags, which are global to the app cli
	RootCmd.PersistentFlags().BoolVarP(&log.VerboseEnabled, "verbose", "v", false,
		"Print verbose output")
	RootCmd.PersistentFlags().BoolVarP(&ForceDownload, "force-download", "f", false,
		"Download historical prices, even if they are cached")
	RootCmd.PersistentFlags().StringVarP(&MethodOpt, "method", "m", "fifo",
		"Cost basis method: fifo, lifo, hifo or wac")
	RootCmd.PersistentFlags().StringVarP(&CurrencyOpt, "currency", "c", "usd",
		"Currency for proceeds and cost basis: usd or eur")
	RootCmd.PersistentFlags().StringVarP(&WalletOpt, "wallet", "w", "",
		"The wallet owner's address. Transfers into it are acquisitions, "+
			"transfers out of it are disposals.")
	RootCmd.PersistentFlags().StringVar(&TermPolicyOpt, "term-policy", "remaining",
		"Lot used as the holding-period reference: 'remaining' (oldest lot still "+
			"held after the disposal) or 'consumed' (oldest lot consumed by it)")
	RootCmd.PersistentFlags().StringVar(&PriceBaseUrlOpt, "price-base-url", "",
		"Base URL of the price history service")
	RootCmd.PersistentFlags().StringVar(&DefaultPriceOpt, "default-price", "",
		"Price to assume for assets with no price history at all (default 0)")
	RootCmd.PersistentFlags().BoolVar(&RenderFullValues, "print-full-values", false,
		"Print full amounts, rather than rounded to 2 decimal places")
}
