package brc

import (
	"bytes"
	"fmt"
	"math"
	"slices"
)

// Result is the final table, ordered by station name bytes.
type Result struct {
	entries []*Entry
}

// mergeTables folds the partial tables into one and sorts it.
// Tables are only read, callers must not run it before every worker has returned.
func mergeTables(tables []*Table, numSlots int) (*Result, error) {
	merged, err := NewTable(numSlots)
	if err != nil {
		return nil, err
	}
	for _, t := range tables {
		for e := range t.All() {
			merged.mergeEntry(e)
		}
	}
	entries := make([]*Entry, 0, merged.Len())
	for e := range merged.All() {
		entries = append(entries, e)
	}
	return newResult(entries), nil
}

func newResult(entries []*Entry) *Result {
	slices.SortFunc(entries, func(a, b *Entry) int {
		return bytes.Compare(a.Key.Bytes(), b.Key.Bytes())
	})
	return &Result{entries: entries}
}

func (r *Result) Len() int {
	return len(r.entries)
}

func (r *Result) Entries() []*Entry {
	return r.entries
}

// Lookup returns the Stat of a station name.
func (r *Result) Lookup(name string) (Stat, bool) {
	i, found := slices.BinarySearchFunc(r.entries, []byte(name), func(e *Entry, name []byte) int {
		return bytes.Compare(e.Key.Bytes(), name)
	})
	if !found {
		return Stat{}, false
	}
	return r.entries[i].Stat, true
}

// Records is the total number of readings.
func (r *Result) Records() int64 {
	var n int64
	for _, e := range r.entries {
		n += e.Stat.Count
	}
	return n
}

// Equivalent reports whether two results hold the same stations with equal
// min, max and count, sums agreeing within a relative tolerance. Sums depend
// on the order readings were added, so their rendered means may differ on a
// rounding tie even when results are equivalent.
func Equivalent(expected, got *Result, sumTolerance float64) error {
	if expected.Digest() == got.Digest() {
		return nil
	}
	if expected.Len() != got.Len() {
		return fmt.Errorf("%d stations, want %d", got.Len(), expected.Len())
	}
	for i, e := range expected.entries {
		g := got.entries[i]
		if !bytes.Equal(e.Key.Bytes(), g.Key.Bytes()) {
			return fmt.Errorf("station %d is %q, want %q", i, g.Key.String(), e.Key.String())
		}
		if e.Stat.Min != g.Stat.Min || e.Stat.Max != g.Stat.Max || e.Stat.Count != g.Stat.Count {
			return fmt.Errorf("%s: min/max/count %v/%v/%d, want %v/%v/%d", e.Key.String(),
				g.Stat.Min, g.Stat.Max, g.Stat.Count, e.Stat.Min, e.Stat.Max, e.Stat.Count)
		}
		if math.Abs(e.Stat.Sum-g.Stat.Sum) > sumTolerance*max(1, math.Abs(e.Stat.Sum)) {
			return fmt.Errorf("%s: sum %v, want %v", e.Key.String(), g.Stat.Sum, e.Stat.Sum)
		}
	}
	return nil
}
