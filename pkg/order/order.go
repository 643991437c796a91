// Package order implements the Ordering Engine (spec.md §4.5, C5): it
// assigns a total, deterministic executionOrder over every sub-event in a
// manifest, first by baseline chronology and then by an overlap-aware
// precedence pass that lets a more specific or later-starting window
// dominate an overlapping one.
package order

import (
	"sort"
	"time"

	"github.com/robbiet76/CalendarScheduler/pkg/errs"
	"github.com/robbiet76/CalendarScheduler/pkg/model"
	"github.com/robbiet76/CalendarScheduler/pkg/primitives"
)

// Item is one sub-event entered into the ordering engine, tagged with a
// stable identity string used for deterministic tie-breaks and for
// reporting back the assigned order.
type Item struct {
	Key      string
	SubEvent model.SubEvent
}

// Context carries the geolocation/timezone parameters the estimator needs
// to heuristically rank symbolic-time windows against each other.
type Context struct {
	Location      *time.Location
	Lat, Lon      float64
	OffsetStepMin int
}

// Compute assigns a contiguous executionOrder 0..N-1 to every item. The
// returned map is keyed by Item.Key.
func Compute(items []Item, ctx Context) (map[string]int, error) {
	if len(items) == 0 {
		return map[string]int{}, nil
	}
	if ctx.OffsetStepMin <= 0 {
		ctx.OffsetStepMin = 5
	}

	windows := make([]window, len(items))
	for i, it := range items {
		windows[i] = computeWindow(it, ctx)
	}

	// Phase 1: baseline chronology.
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return windows[order[a]].less(windows[order[b]])
	})

	// Phase 2: overlap-aware precedence DAG. edges[x] = set of indices that
	// must come strictly after x (x precedes them).
	edges := make([]map[int]bool, len(items))
	for i := range edges {
		edges[i] = map[int]bool{}
	}
	indegree := make([]int, len(items))

	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if !windows[i].overlaps(windows[j]) {
				continue
			}
			l, w, ok := precedence(items[i], windows[i], items[j], windows[j])
			if !ok {
				continue
			}
			pair := [2]int{i, j}
			loser, winner := pair[l], pair[w]
			// loser must execute before winner (winner dominates the
			// overlap by coming later / taking priority).
			if !edges[loser][winner] {
				edges[loser][winner] = true
				indegree[winner]++
			}
		}
	}

	sorted, err := topoSort(order, edges, indegree, windows)
	if err != nil {
		return nil, err
	}

	result := make(map[string]int, len(items))
	for pos, idx := range sorted {
		result[items[idx].Key] = pos
	}
	return result, nil
}

// topoSort performs a deterministic Kahn's-algorithm topological sort: among
// all currently-available (indegree-zero) nodes, it prefers the one that
// comes earliest in the baseline chronological order, which itself already
// carries the deterministic identity tie-break as its final key.
func topoSort(chronological []int, edges []map[int]bool, indegree []int, windows []window) ([]int, error) {
	n := len(chronological)
	rank := make(map[int]int, n)
	for pos, idx := range chronological {
		rank[idx] = pos
	}

	avail := make([]int, 0, n)
	remaining := make([]bool, n)
	for i := 0; i < n; i++ {
		remaining[i] = true
		if indegree[i] == 0 {
			avail = append(avail, i)
		}
	}

	out := make([]int, 0, n)
	ind := append([]int{}, indegree...)
	for len(out) < n {
		if len(avail) == 0 {
			return nil, errs.InvariantViolation("ordering precedence graph has a cycle")
		}
		sort.Slice(avail, func(a, b int) bool { return rank[avail[a]] < rank[avail[b]] })
		next := avail[0]
		avail = avail[1:]
		if !remaining[next] {
			continue
		}
		remaining[next] = false
		out = append(out, next)
		for to := range edges[next] {
			ind[to]--
			if ind[to] == 0 {
				avail = append(avail, to)
			}
		}
	}
	return out, nil
}

// window is the concrete (date range, weekday set, daily segments) shape an
// item's timing resolves to, for overlap detection and baseline sort keys.
type window struct {
	key          string
	dateKnown    bool
	dateStart    time.Time
	dateEnd      time.Time
	days         *primitives.Weekday
	allDay       bool
	segments     []primitives.DailySegment
	startSeconds int
	startKnown   bool
	scopeSpan    int
	weekdayCount int
	dailySpan    int
}

func computeWindow(it Item, ctx Context) window {
	t := it.SubEvent.Timing
	w := window{key: it.Key, days: t.Days, allDay: t.AllDay, weekdayCount: t.Days.WeekdayCoverageCount()}

	if t.StartDate.Hard != nil && t.EndDate.Hard != nil {
		if s, ok := t.StartDate.Hard.ExactDate(); ok {
			if e, ok2 := t.EndDate.Hard.ExactDate(); ok2 {
				w.dateKnown = true
				w.dateStart, w.dateEnd = s, e
				w.scopeSpan = int(e.Sub(s).Hours() / 24)
			}
		}
	}

	if t.AllDay {
		w.segments = []primitives.DailySegment{{StartSeconds: 0, EndSeconds: 86400}}
		w.dailySpan = 86400
		w.startSeconds, w.startKnown = 0, true
		return w
	}

	startSec, startOK := effectiveSeconds(t.StartTime, t.StartDate, ctx)
	endSec, endOK := effectiveSeconds(t.EndTime, t.StartDate, ctx)
	if startOK && endOK {
		w.segments = primitives.Split(startSec, endSec)
		span := endSec - startSec
		if span <= 0 {
			span += 86400
		}
		w.dailySpan = span
		w.startSeconds, w.startKnown = startSec, true
	}
	return w
}

// effectiveSeconds resolves a TimeValue to seconds-since-midnight. For hard
// values this is exact; for symbolic values it uses the solar estimator
// anchored on the window's start date as a heuristic, per spec.md §4.5
// ("used as a heuristic ... when estimates are unavailable the window is
// treated as potentially-overlapping").
func effectiveSeconds(tv *primitives.TimeValue, anchorDate primitives.DateValue, ctx Context) (int, bool) {
	if tv == nil {
		return 0, false
	}
	if tv.Hard != nil {
		s, err := primitives.SecondsSinceMidnight(*tv.Hard)
		if err != nil {
			return 0, false
		}
		return s, true
	}
	if tv.Symbolic == nil || anchorDate.Hard == nil || ctx.Location == nil {
		return 0, false
	}
	anchor, ok := anchorDate.Hard.ExactDate()
	if !ok {
		return 0, false
	}
	sec, ok := primitives.EstimateSymbolicTime(anchor, *tv.Symbolic, ctx.Lat, ctx.Lon, ctx.Location, tv.Offset, ctx.OffsetStepMin)
	return sec, ok
}

func (w window) less(o window) bool {
	if w.dateKnown != o.dateKnown {
		return w.dateKnown // known dates sort before unknown ones, deterministically
	}
	if w.dateKnown && !w.dateStart.Equal(o.dateStart) {
		return w.dateStart.Before(o.dateStart)
	}
	if w.startKnown != o.startKnown {
		return w.startKnown
	}
	if w.startKnown && w.startSeconds != o.startSeconds {
		return w.startSeconds < o.startSeconds
	}
	if w.dateKnown && !w.dateEnd.Equal(o.dateEnd) {
		return w.dateEnd.Before(o.dateEnd)
	}
	return w.key < o.key
}

func (w window) overlaps(o window) bool {
	if w.dateKnown && o.dateKnown {
		if !(primitives.DateInterval{Start: w.dateStart, End: w.dateEnd}).Overlaps(primitives.DateInterval{Start: o.dateStart, End: o.dateEnd}) {
			return false
		}
	}
	if !weekdaysOverlap(w.days, o.days) {
		return false
	}
	if len(w.segments) == 0 || len(o.segments) == 0 {
		// Unknown daily window: treat conservatively as potentially overlapping.
		return true
	}
	for _, a := range w.segments {
		for _, b := range o.segments {
			if a.Overlaps(b) {
				return true
			}
		}
	}
	return false
}

func weekdaysOverlap(a, b *primitives.Weekday) bool {
	if a == nil || b == nil {
		return true
	}
	if a.Type != primitives.WeekdayWeekly || b.Type != primitives.WeekdayWeekly {
		// Date-parity constraints are treated conservatively as overlapping;
		// exact intersection would require anchoring to a concrete month.
		return true
	}
	set := make(map[primitives.WeekdayCode]bool, len(a.Weekly))
	for _, c := range a.Weekly {
		set[c] = true
	}
	for _, c := range b.Weekly {
		if set[c] {
			return true
		}
	}
	return false
}

// precedence applies spec.md §4.5 phase 2's priority chain to an overlapping
// pair, returning (loserIndex, winnerIndex, true) when a decision was made;
// each index is 0 for (ai, a) or 1 for (bi, b), relative to this pair.
// The winner is the dominant window: it is assigned a later executionOrder
// so it is the last, and therefore authoritative, entry for the overlap.
func precedence(ai Item, a window, bi Item, b window) (loser, winner int, ok bool) {
	// 1. Later effective daily start wins.
	if a.startKnown && b.startKnown && a.startSeconds != b.startSeconds {
		if a.startSeconds > b.startSeconds {
			return 1, 0, true
		}
		return 0, 1, true
	}
	// 2. Later calendar start date wins.
	if a.dateKnown && b.dateKnown && !a.dateStart.Equal(b.dateStart) {
		if a.dateStart.After(b.dateStart) {
			return 1, 0, true
		}
		return 0, 1, true
	}
	// 3. Specificity: narrower (smaller) tuple wins.
	if cmp := specificityCompare(a, b); cmp != 0 {
		if cmp < 0 {
			return 1, 0, true
		}
		return 0, 1, true
	}
	// 4. Starvation guard: if the two windows occupy an identical footprint,
	// a precedence decision would starve one permanently; defer to
	// chronological ordering instead of forcing a dominance edge.
	if identicalFootprint(a, b) {
		return 0, 0, false
	}
	// 5. Deterministic tie-break: identity string compare (greater wins).
	if ai.Key == bi.Key {
		return 0, 0, false
	}
	if ai.Key > bi.Key {
		return 1, 0, true
	}
	return 0, 1, true
}

func specificityCompare(a, b window) int {
	if a.scopeSpan != b.scopeSpan {
		return a.scopeSpan - b.scopeSpan
	}
	if a.weekdayCount != b.weekdayCount {
		return a.weekdayCount - b.weekdayCount
	}
	return a.dailySpan - b.dailySpan
}

func identicalFootprint(a, b window) bool {
	return a.dateKnown == b.dateKnown && a.dateStart.Equal(b.dateStart) && a.dateEnd.Equal(b.dateEnd) &&
		a.dailySpan == b.dailySpan && a.startSeconds == b.startSeconds && a.weekdayCount == b.weekdayCount
}
