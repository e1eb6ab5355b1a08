package ranges

import (
	"bytes"
	"slices"
)

// Policy redistributes the local ranges on Rebalance. Implementations must keep
// every coordinate covered by the input ranges covered by the output.
type Policy[T Coordinate] interface {
	Rebalance(mine, all []ReplicationRange[T]) []ReplicationRange[T]
}

// Coalesce merges overlapping and adjacent local ranges.
type Coalesce[T Coordinate] struct{}

// Rebalance implements Policy.
func (Coalesce[T]) Rebalance(mine, _ []ReplicationRange[T]) []ReplicationRange[T] {
	if len(mine) < 2 {
		return mine
	}
	for _, r := range mine {
		if r.IsFull() {
			return []ReplicationRange[T]{r}
		}
	}
	sorted := slices.Clone(mine)
	slices.SortFunc(sorted, func(a, b ReplicationRange[T]) int {
		if a.Offset != b.Offset {
			if a.Offset < b.Offset {
				return -1
			}
			return 1
		}
		return bytes.Compare(a.ID, b.ID)
	})
	var merged []ReplicationRange[T]
	cur := sorted[0]
	for _, r := range sorted[1:] {
		if !extend(&cur, r) {
			merged = append(merged, cur)
			cur = r
		}
	}
	merged = append(merged, cur)
	// the last range may wrap into the first one
	for len(merged) > 1 {
		last := merged[len(merged)-1]
		if !extend(&last, merged[0]) {
			break
		}
		merged = append([]ReplicationRange[T]{last}, merged[1:len(merged)-1]...)
	}
	return merged
}

// extend grows cur to cover r if r starts inside or right at the end of cur.
func extend[T Coordinate](cur *ReplicationRange[T], r ReplicationRange[T]) bool {
	top := Numbers[T]{}.MaxValue()
	start := r.Offset - cur.Offset
	if start > cur.Width {
		return false
	}
	// width of the union measured from cur.Offset, saturating at the full space
	end := uint64(start) + uint64(r.Width)
	if end > uint64(top) || end < uint64(start) || r.IsFull() {
		cur.Width = top
	} else if T(end) > cur.Width {
		cur.Width = T(end)
	}
	if r.Mode != Strict {
		cur.Mode = NonStrict
	}
	if r.Timestamp.After(cur.Timestamp) {
		cur.Timestamp = r.Timestamp
	}
	return true
}
