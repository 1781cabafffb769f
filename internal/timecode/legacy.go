package timecode

import (
	"regexp"
	"sort"
)

var legacyPattern = regexp.MustCompile(`([2-7]+)([MTN])([1-9]+)`)

// DecodeLegacy extracts every day/shift/slot group found anywhere in raw
// and turns it into planner meetings. Consecutive slots on the same day
// merge into one meeting. Slots outside the planner tables are dropped.
func DecodeLegacy(raw string) []Meeting {
	type key struct {
		day   int
		shift Shift
	}
	slotsByDay := make(map[key][]int)
	var order []key

	for _, m := range legacyPattern.FindAllStringSubmatch(raw, -1) {
		shift := Shift(m[2][0])
		for i := 0; i < len(m[1]); i++ {
			k := key{day: int(m[1][i] - '0'), shift: shift}
			if _, seen := slotsByDay[k]; !seen {
				order = append(order, k)
				slotsByDay[k] = nil
			}
			for j := 0; j < len(m[3]); j++ {
				slot := int(m[3][j] - '0')
				if slot <= SlotsPerShift(shift) {
					slotsByDay[k] = append(slotsByDay[k], slot)
				}
			}
		}
	}

	var meetings []Meeting
	for _, k := range order {
		slots := dedupSorted(slotsByDay[k])
		for i := 0; i < len(slots); {
			j := i
			for j+1 < len(slots) && slots[j+1] == slots[j]+1 {
				j++
			}
			first := plannerStarts[k.shift][slots[i]-1]
			last := plannerStarts[k.shift][slots[j]-1]
			meetings = append(meetings, Meeting{
				Weekday: Weekday(k.day),
				Start:   first,
				End:     last + classLength,
			})
			i = j + 1
		}
	}

	sort.SliceStable(meetings, func(i, j int) bool {
		if meetings[i].Weekday != meetings[j].Weekday {
			return meetings[i].Weekday < meetings[j].Weekday
		}
		return meetings[i].Start < meetings[j].Start
	})
	return meetings
}

func dedupSorted(in []int) []int {
	sort.Ints(in)
	out := in[:0]
	for i, v := range in {
		if i == 0 || v != in[i-1] {
			out = append(out, v)
		}
	}
	return out
}
