// Package dirty accumulates the line ranges of a document that were
// edited since the last check, so a re-check can be limited to the
// regions whose verdicts may be stale.
package dirty

import "sort"

// LineRange is a half-open interval [Start, End) of line indices.
type LineRange struct {
	Start, End int
}

// Len returns the number of lines covered.
func (r LineRange) Len() int {
	return r.End - r.Start
}

// Touches reports whether the ranges overlap or share a boundary point.
func (r LineRange) Touches(o LineRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Tracker keeps a sorted set of pairwise non-touching dirty line ranges.
type Tracker struct {
	ranges []LineRange
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// AddChange records that the lines in r were replaced by newLines lines.
// Tracked ranges at or behind the edit move with it; the replacement
// region itself becomes dirty. Afterwards the set is re-sorted and any
// touching ranges are merged, so repeated overlapping edits collapse
// into one range.
func (t *Tracker) AddChange(r LineRange, newLines int) {
	shift := newLines - r.Len()
	for i := range t.ranges {
		if t.ranges[i].Start >= r.End {
			t.ranges[i].Start += shift
		}
		if t.ranges[i].End >= r.End {
			t.ranges[i].End += shift
		}
	}
	t.ranges = append(t.ranges, LineRange{Start: r.Start, End: r.End + shift})

	sort.Slice(t.ranges, func(i, j int) bool {
		return t.ranges[i].Start < t.ranges[j].Start
	})
	merged := t.ranges[:0]
	for _, r := range t.ranges {
		if n := len(merged); n > 0 && r.Start <= merged[n-1].End {
			if r.End > merged[n-1].End {
				merged[n-1].End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	t.ranges = merged
}

// Ranges returns the current dirty set, sorted and non-touching.
func (t *Tracker) Ranges() []LineRange {
	return t.ranges
}

// Clear discards all tracked ranges, typically after a check cycle has
// consumed them.
func (t *Tracker) Clear() {
	t.ranges = t.ranges[:0]
}
