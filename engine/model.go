package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tealfin/cryptogains/date"
)

type TransferKind int

const (
	KindNative TransferKind = iota
	KindAsset
	KindSwap
	KindOther
)

func (k TransferKind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindAsset:
		return "asset"
	case KindSwap:
		return "swap"
	default:
		return "other"
	}
}

func ParseTransferKind(s string) (TransferKind, error) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "native":
		return KindNative, nil
	case "asset":
		return KindAsset, nil
	case "swap":
		return KindSwap, nil
	case "other":
		return KindOther, nil
	default:
		return KindOther, fmt.Errorf("Invalid transfer kind: '%s'", s)
	}
}

// TransferEvent is a single normalized asset movement, as provided by an
// upstream indexer. Amount is signed, in the asset's natural units.
type TransferEvent struct {
	Asset  string
	Amount decimal.Decimal
	Time   time.Time
	From   string
	To     string
	Kind   TransferKind

	// ReadIndex provides a stable ordering for events with identical
	// timestamps, based on the order they were read in.
	ReadIndex uint32
}

func (e *TransferEvent) Date() date.Date {
	return date.NewFromTime(e.Time.UTC())
}

// Relevant reports whether the event kind participates in gain/loss
// accounting at all.
func (e *TransferEvent) Relevant() bool {
	switch e.Kind {
	case KindNative, KindAsset, KindSwap:
		return true
	}
	return false
}

func sameAddr(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Inbound reports whether the event moves the asset into wallet from a
// counterparty. Self-transfers are neither inbound nor outbound.
func (e *TransferEvent) Inbound(wallet string) bool {
	return sameAddr(e.To, wallet) && !sameAddr(e.From, wallet)
}

// Outbound reports whether the event moves the asset out of wallet to a
// counterparty.
func (e *TransferEvent) Outbound(wallet string) bool {
	return sameAddr(e.From, wallet) && !sameAddr(e.To, wallet)
}

type transferSorter struct {
	Events []*TransferEvent
}

func (s *transferSorter) Len() int {
	return len(s.Events)
}

func (s *transferSorter) Swap(i, j int) {
	s.Events[i], s.Events[j] = s.Events[j], s.Events[i]
}

func (s *transferSorter) Less(i, j int) bool {
	if s.Events[i].Time.Equal(s.Events[j].Time) {
		return s.Events[i].ReadIndex < s.Events[j].ReadIndex
	}
	return s.Events[i].Time.Before(s.Events[j].Time)
}

// SortTransferEvents returns a copy of events in ascending timestamp
// order. Callers are expected to provide ordered input already, but the
// engine re-sorts defensively since lot consumption is order-sensitive.
func SortTransferEvents(events []*TransferEvent) []*TransferEvent {
	sorted := make([]*TransferEvent, len(events))
	copy(sorted, events)
	sorter := transferSorter{Events: sorted}
	sort.Sort(&sorter)
	return sorter.Events
}
