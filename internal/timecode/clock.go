package timecode

import (
	"fmt"
	"time"
)

// Clock is a time of day in minutes since midnight.
type Clock int

func At(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// Meeting is one weekly class meeting.
type Meeting struct {
	Weekday time.Weekday
	Start   Clock
	End     Clock
}

func (m Meeting) String() string {
	return fmt.Sprintf("%s %s-%s", m.Weekday, m.Start, m.End)
}

// Overlaps reports whether both meetings share at least one minute.
func (m Meeting) Overlaps(o Meeting) bool {
	return m.Weekday == o.Weekday && m.Start < o.End && o.Start < m.End
}

var gridBase = map[Shift]int{
	Morning:   7,
	Afternoon: 13,
	Night:     18,
}

// GridSlot maps a token onto the one-hour weekly grid: slot n of a shift
// starts at base+n-1 o'clock.
func GridSlot(t Token) (Meeting, bool) {
	day, shift, slot, ok := t.Parts()
	if !ok {
		return Meeting{}, false
	}
	start := At(gridBase[shift]+slot-1, 0)
	return Meeting{Weekday: Weekday(day), Start: start, End: start + 60}, true
}

const classLength = 50

// Start times of each slot in the detailed planner. Classes last 50
// minutes and start every 55.
var plannerStarts = map[Shift][]Clock{
	Morning: {
		At(7, 0), At(7, 55), At(8, 50), At(9, 45), At(10, 40), At(11, 35),
	},
	Afternoon: {
		At(13, 0), At(13, 55), At(14, 50), At(15, 45), At(16, 40), At(17, 35),
	},
	Night: {
		At(18, 45), At(19, 40), At(20, 35), At(21, 30),
	},
}

// PlannerSlot maps a token onto the planner's clock tables. Slots beyond
// the shift's table are not scheduled.
func PlannerSlot(t Token) (Meeting, bool) {
	day, shift, slot, ok := t.Parts()
	if !ok {
		return Meeting{}, false
	}
	starts := plannerStarts[shift]
	if slot > len(starts) {
		return Meeting{}, false
	}
	start := starts[slot-1]
	return Meeting{Weekday: Weekday(day), Start: start, End: start + classLength}, true
}

// SlotsPerShift is the number of planner slots in a shift.
func SlotsPerShift(s Shift) int {
	return len(plannerStarts[s])
}
