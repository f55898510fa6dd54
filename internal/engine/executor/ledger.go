package executor

import (
	"math"
	"sync/atomic"
)

// microUnits per currency unit; the ledger keeps integers so that repeated
// small charges cannot drift past the ceiling through float rounding.
const microUnits = 1_000_000

func toMicro(v float64) int64 { return int64(math.Round(v * microUnits)) }

// Ledger is the run-wide spend counter shared by every concurrent execution.
// Reserve is the only way to spend and never lets the total pass the limit.
type Ledger struct {
	limit int64
	spent atomic.Int64
}

// NewLedger returns an empty ledger with the given ceiling.
func NewLedger(limit float64) *Ledger {
	return &Ledger{limit: toMicro(limit)}
}

// Fits reports whether cost could be added without passing the ceiling.
func (l *Ledger) Fits(cost float64) bool {
	return l.spent.Load()+toMicro(cost) <= l.limit
}

// Reserve atomically adds cost when the result stays within the ceiling.
func (l *Ledger) Reserve(cost float64) bool {
	c := toMicro(cost)
	if c < 0 {
		return false
	}
	for {
		cur := l.spent.Load()
		if cur+c > l.limit {
			return false
		}
		if l.spent.CompareAndSwap(cur, cur+c) {
			return true
		}
	}
}

// Total is the amount spent so far.
func (l *Ledger) Total() float64 { return float64(l.spent.Load()) / microUnits }

// Limit is the ceiling.
func (l *Ledger) Limit() float64 { return float64(l.limit) / microUnits }
