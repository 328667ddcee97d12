package ledger

import (
	"iter"
	"time"

	"dailyledger/internal/core"
)

// OnDay yields, in ledger order, the transactions created on day as seen in
// loc. The sequence is lazy and can be ranged over any number of times.
func OnDay(txs []core.Transaction, day core.Day, loc *time.Location) iter.Seq[core.Transaction] {
	return func(yield func(core.Transaction) bool) {
		for _, tx := range txs {
			if core.DayOf(tx.Date, loc) != day {
				continue
			}
			if !yield(tx) {
				return
			}
		}
	}
}

// Between yields the transactions whose local day falls in [from, to].
func Between(txs []core.Transaction, from, to core.Day, loc *time.Location) iter.Seq[core.Transaction] {
	return func(yield func(core.Transaction) bool) {
		for _, tx := range txs {
			d := core.DayOf(tx.Date, loc)
			if d.Before(from) || d.After(to) {
				continue
			}
			if !yield(tx) {
				return
			}
		}
	}
}

// Aggregate sums a sequence per type. Types with no entries stay zero.
func Aggregate(seq iter.Seq[core.Transaction]) core.Totals {
	var t core.Totals
	for tx := range seq {
		t.Add(tx)
	}
	return t
}
