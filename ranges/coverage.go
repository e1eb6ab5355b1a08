package ranges

import (
	"slices"
	"time"
)

// CalculateCoverage returns the fraction of the arc [start, end) covered by at
// least one range that is at least roleAge old. start == end denotes the whole
// space.
func (i *Index[T]) CalculateCoverage(start, end T, roleAge time.Duration) float64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	now := i.clock.Now()
	top := i.numbers.MaxValue()
	// window and segments are inclusive and relative to start
	window := end - start - 1
	if start == end {
		window = top
	}
	var segs [][2]T
	for _, r := range i.ranges {
		if r.Width == 0 || !r.Mature(now, roleAge) {
			continue
		}
		rel := r
		rel.Offset = r.Offset - start
		for _, s := range rel.Segments() {
			if s[0] > window {
				continue
			}
			segs = append(segs, [2]T{s[0], min(s[1], window)})
		}
	}
	if len(segs) == 0 {
		return 0
	}
	slices.SortFunc(segs, func(a, b [2]T) int {
		switch {
		case a[0] < b[0]:
			return -1
		case a[0] > b[0]:
			return 1
		}
		return 0
	})
	var covered float64
	cur := segs[0]
	for _, s := range segs[1:] {
		// cur[1] == top means nothing can follow
		if cur[1] == top || s[0] <= cur[1]+1 {
			cur[1] = max(cur[1], s[1])
			continue
		}
		covered += float64(cur[1]-cur[0]) + 1
		cur = s
	}
	covered += float64(cur[1]-cur[0]) + 1
	total := float64(window) + 1
	return min(covered/total, 1)
}
