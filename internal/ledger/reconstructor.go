package ledger

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/synard1/ximopet-sub010/pkg/models"
)

// InboundRow is one stock lot together with the label of whatever created
// it (a purchase line or an inbound mutation).
type InboundRow struct {
	Lot        models.StockLot
	SourceCode string
}

// OutflowRow is one usage detail or outbound mutation item against a lot.
type OutflowRow struct {
	LotID    int64
	Date     time.Time
	Code     string
	Quantity float64
}

// DateRange bounds replay; nil ends are open.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

func (r DateRange) contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

type replayEvent struct {
	date time.Time
	seq  int
	out  bool
	desc string
	qty  float64
}

// Sequence is the reconstructed timeline for one commodity on one
// production unit. It never mutates counters; replay totals that disagree
// with the stored counters are reported as inconsistencies, not fixed.
type Sequence struct {
	events          []replayEvent
	Inconsistencies []string
}

// BuildSequence replays inbound lots, usage details and outbound mutation
// items into one chronological sequence. Discovery order: each lot's "in"
// entry first, then its usages, then its outbound mutations; entries
// sharing a date keep that order, with ins ahead of same-day outs.
func BuildSequence(inbound []InboundRow, usageOut, mutationOut []OutflowRow, dateRange DateRange) *Sequence {
	seq := 0
	events := make([]replayEvent, 0, len(inbound)+len(usageOut)+len(mutationOut))

	usageByLot := groupByLot(usageOut)
	mutationByLot := groupByLot(mutationOut)

	var inconsistencies []string

	for _, row := range inbound {
		lot := row.Lot

		events = append(events, replayEvent{
			date: lot.EntryDate,
			seq:  seq,
			desc: row.SourceCode,
			qty:  lot.QuantityIn,
		})
		seq++

		usedTotal := 0.0
		for _, out := range usageByLot[lot.ID] {
			events = append(events, replayEvent{
				date: out.Date,
				seq:  seq,
				out:  true,
				desc: out.Code,
				qty:  out.Quantity,
			})
			seq++
			usedTotal += out.Quantity
		}

		mutatedTotal := 0.0
		for _, out := range mutationByLot[lot.ID] {
			events = append(events, replayEvent{
				date: out.Date,
				seq:  seq,
				out:  true,
				desc: out.Code,
				qty:  out.Quantity,
			})
			seq++
			mutatedTotal += out.Quantity
		}

		if !closeEnough(usedTotal, lot.QuantityUsed) {
			inconsistencies = append(inconsistencies,
				fmt.Sprintf("lot %d: replayed usage %.4f disagrees with stored quantity_used %.4f", lot.ID, usedTotal, lot.QuantityUsed))
		}
		if !closeEnough(mutatedTotal, lot.QuantityMutated) {
			inconsistencies = append(inconsistencies,
				fmt.Sprintf("lot %d: replayed mutation %.4f disagrees with stored quantity_mutated %.4f", lot.ID, mutatedTotal, lot.QuantityMutated))
		}
	}

	filtered := events[:0]
	for _, ev := range events {
		if dateRange.contains(ev.date) {
			filtered = append(filtered, ev)
		}
	}
	events = filtered

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].date.Equal(events[j].date) {
			return events[i].date.Before(events[j].date)
		}
		if events[i].out != events[j].out {
			return !events[i].out
		}
		return events[i].seq < events[j].seq
	})

	return &Sequence{events: events, Inconsistencies: inconsistencies}
}

func groupByLot(rows []OutflowRow) map[int64][]OutflowRow {
	grouped := make(map[int64][]OutflowRow)
	for _, row := range rows {
		grouped[row.LotID] = append(grouped[row.LotID], row)
	}
	return grouped
}

func closeEnough(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// Iterate starts a fresh pass over the sequence. The running balance is a
// prefix sum computed as entries are pulled; calling Iterate again restarts
// from zero.
func (s *Sequence) Iterate() *Iterator {
	return &Iterator{sequence: s}
}

// Len reports how many entries a full pass yields.
func (s *Sequence) Len() int {
	return len(s.events)
}

type Iterator struct {
	sequence *Sequence
	index    int
	balance  float64
}

func (it *Iterator) Next() (*models.LedgerEntry, bool) {
	if it.index >= len(it.sequence.events) {
		return nil, false
	}

	ev := it.sequence.events[it.index]
	it.index++

	entry := models.LedgerEntry{
		Date:        ev.date,
		Description: ev.desc,
	}
	if ev.out {
		entry.Out = ev.qty
		it.balance -= ev.qty
	} else {
		entry.In = ev.qty
		it.balance += ev.qty
	}
	entry.RunningBalance = it.balance

	return &entry, true
}
