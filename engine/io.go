package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Timestamp layouts accepted for transfer events, tried in order.
var TimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type colParser func(string, *TransferEvent) error

var colParserMap = map[string]colParser{
	"asset":  parseAsset,
	"amount": parseAmount,
	"time":   parseTime,
	"from":   parseFrom,
	"to":     parseTo,
	"kind":   parseKind,
}

var ColNames []string

func init() {
	ColNames = make([]string, 0, len(colParserMap))
	for name := range colParserMap {
		ColNames = append(ColNames, name)
	}
}

func checkEventSanity(ev *TransferEvent) error {
	if ev.Asset == "" {
		return fmt.Errorf("Transfer event has no asset")
	} else if (ev.Time == time.Time{}) {
		return fmt.Errorf("Transfer event has no timestamp")
	}
	return nil
}

// ParseTransferEventsCsv reads normalized transfer events from a csv
// stream with a header row. Malformed rows (bad timestamps, bad
// amounts) are validation errors and abort the parse.
func ParseTransferEventsCsv(r io.Reader, desc string) ([]*TransferEvent, error) {
	csvR := csv.NewReader(r)
	records, err := csvR.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("Failed to parse CSV %s: %v", desc, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("No rows found in %s", desc)
	}

	header := records[0]
	colParsers := make([]colParser, len(header))
	for i, col := range header {
		sanCol := strings.TrimSpace(strings.ToLower(col))
		if parser, ok := colParserMap[sanCol]; ok {
			colParsers[i] = parser
		} else {
			fmt.Fprintf(os.Stderr, "Warning: Unrecognized column %s\n", sanCol)
			colParsers[i] = parseNothing
		}
	}

	events := make([]*TransferEvent, 0, len(records)-1)
	for i, record := range records[1:] {
		ev := &TransferEvent{Kind: KindAsset, ReadIndex: uint32(i)}
		for j, col := range record {
			err = colParsers[j](col, ev)
			if err != nil {
				return nil, fmt.Errorf("Error parsing %s at line:col %d:%d: %v",
					desc, i+1, j, err)
			}
		}
		err = checkEventSanity(ev)
		if err != nil {
			return nil, fmt.Errorf("Error parsing %s at line %d: %v", desc, i+1, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func ParseTransferEventsCsvFile(fname string) ([]*TransferEvent, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ParseTransferEventsCsv(fp, fname)
}

func parseNothing(data string, ev *TransferEvent) error {
	return nil
}

func parseAsset(data string, ev *TransferEvent) error {
	ev.Asset = strings.TrimSpace(data)
	return nil
}

func parseAmount(data string, ev *TransferEvent) error {
	amount, err := decimal.NewFromString(strings.TrimSpace(data))
	if err != nil {
		return fmt.Errorf("Error parsing amount: %v", err)
	}
	ev.Amount = amount
	return nil
}

func parseTime(data string, ev *TransferEvent) error {
	data = strings.TrimSpace(data)
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, data); err == nil {
			ev.Time = t
			return nil
		}
	}
	return fmt.Errorf("Unable to parse timestamp: '%s'", data)
}

func parseFrom(data string, ev *TransferEvent) error {
	ev.From = strings.TrimSpace(data)
	return nil
}

func parseTo(data string, ev *TransferEvent) error {
	ev.To = strings.TrimSpace(data)
	return nil
}

func parseKind(data string, ev *TransferEvent) error {
	kind, err := ParseTransferKind(data)
	if err != nil {
		return err
	}
	ev.Kind = kind
	return nil
}
