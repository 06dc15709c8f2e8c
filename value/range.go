package value

import "fmt"

// Range is a lazy, restartable inclusive integer interval (spec §3.1,
// §4.1). Direction is inferred from Start/End: ascending when End >= Start,
// descending otherwise.
type Range struct {
	Start int64
	End   int64
}

// Size returns the number of elements the range yields.
func (r Range) Size() int64 {
	if r.End >= r.Start {
		return r.End - r.Start + 1
	}
	return r.Start - r.End + 1
}

// Ascending reports the iteration direction.
func (r Range) Ascending() bool { return r.End >= r.Start }

func (r Range) String() string { return fmt.Sprintf("%d..%d", r.Start, r.End) }

// Equal implements range equality: same bounds (spec §4.1).
func (r Range) Equal(o Range) bool { return r.Start == o.Start && r.End == o.End }

// Contains tests range membership, used by `=~`/`!~` against a range RHS.
func (r Range) Contains(i int64) bool {
	lo, hi := r.Start, r.End
	if lo > hi {
		lo, hi = hi, lo
	}
	return i >= lo && i <= hi
}

// Iterator returns a fresh restartable iterator over the range's values.
func (r Range) Iterator() *RangeIterator {
	return &RangeIterator{r: r, cur: r.Start, started: false}
}

// RangeIterator walks a Range in its natural direction, one restart per
// Iterator() call (the lazy, restartable contract in spec §3.1).
type RangeIterator struct {
	r       Range
	cur     int64
	started bool
	done    bool
}

func (it *RangeIterator) Next() (int64, bool) {
	if it.done {
		return 0, false
	}
	if !it.started {
		it.started = true
		if it.r.Size() == 0 {
			it.done = true
			return 0, false
		}
		return it.cur, true
	}
	if it.r.Ascending() {
		if it.cur >= it.r.End {
			it.done = true
			return 0, false
		}
		it.cur++
	} else {
		if it.cur <= it.r.End {
			it.done = true
			return 0, false
		}
		it.cur--
	}
	return it.cur, true
}
