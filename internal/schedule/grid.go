package schedule

import (
	"sort"
	"time"

	"github.com/pders01/planr/internal/timecode"
)

// Grid days and hours.
var (
	GridDays = []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday,
		time.Thursday, time.Friday, time.Saturday,
	}
	FirstHour = 7
	LastHour  = 21
)

type cellKey struct {
	day  time.Weekday
	hour int
}

type placement struct {
	item Item
	tok  timecode.Token
}

// Grid places items on a weekday x hour table using one-hour slots.
type Grid struct {
	cells map[cellKey][]placement
}

func BuildGrid(items []Item) Grid {
	g := Grid{cells: make(map[cellKey][]placement)}
	for _, it := range items {
		placed := make(map[cellKey]bool)
		for _, tok := range timecode.ExpandAll(it.TimeCodes()) {
			m, ok := timecode.GridSlot(tok)
			if !ok {
				continue
			}
			k := cellKey{day: m.Weekday, hour: m.Start.Hour()}
			if placed[k] {
				continue
			}
			placed[k] = true
			g.cells[k] = append(g.cells[k], placement{item: it, tok: tok})
		}
	}
	return g
}

// At returns the items meeting at the given day and hour.
func (g Grid) At(day time.Weekday, hour int) []Item {
	ps := g.cells[cellKey{day: day, hour: hour}]
	if len(ps) == 0 {
		return nil
	}
	out := make([]Item, len(ps))
	for i, p := range ps {
		out[i] = p.item
	}
	return out
}

// Clash reports whether two items in the cell really meet at the same
// time. Sharing the hour is not enough: afternoon slot 6 and night slot 1
// both land on 18:00 but do not overlap.
func (g Grid) Clash(day time.Weekday, hour int) bool {
	return clashing(g.cells[cellKey{day: day, hour: hour}])
}

// Clashes counts the cells that clash.
func (g Grid) Clashes() int {
	n := 0
	for _, ps := range g.cells {
		if clashing(ps) {
			n++
		}
	}
	return n
}

func clashing(ps []placement) bool {
	for i := range ps {
		for j := i + 1; j < len(ps); j++ {
			a, b := ps[i].tok, ps[j].tok
			if a == b {
				return true
			}
			ma, okA := timecode.PlannerSlot(a)
			mb, okB := timecode.PlannerSlot(b)
			if okA && okB && ma.Overlaps(mb) {
				return true
			}
		}
	}
	return false
}

func (g Grid) Empty() bool { return len(g.cells) == 0 }

// Meetings returns the planner meetings of item, with back-to-back
// classes on the same day merged.
func Meetings(it Item) []timecode.Meeting {
	var ms []timecode.Meeting
	for _, tok := range timecode.ExpandAll(it.TimeCodes()) {
		if m, ok := timecode.PlannerSlot(tok); ok {
			ms = append(ms, m)
		}
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Weekday != ms[j].Weekday {
			return ms[i].Weekday < ms[j].Weekday
		}
		return ms[i].Start < ms[j].Start
	})

	var out []timecode.Meeting
	for _, m := range ms {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Weekday == m.Weekday && m.Start <= last.End+breakLength {
				if m.End > last.End {
					last.End = m.End
				}
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

const breakLength = 5
