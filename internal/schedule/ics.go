package schedule

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
)

const floatingLayout = "20060102T150405"

type ICSOptions struct {
	// TermStart is the first day of lectures. Events start on the first
	// matching weekday on or after it.
	TermStart time.Time
	Weeks     int
	Name      string
	// Now stamps the events; zero means time.Now.
	Now time.Time
}

// ExportICS writes one weekly recurring event per meeting of every item.
// Times are floating so classes stay at their wall-clock time across
// daylight saving changes.
func ExportICS(w io.Writer, items []Item, opts ICSOptions) error {
	if opts.TermStart.IsZero() {
		return fmt.Errorf("export: term start is required")
	}
	if opts.Weeks <= 0 {
		return fmt.Errorf("export: weeks must be positive, got %d", opts.Weeks)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//planr//course schedule//EN")
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}

	term := time.Date(opts.TermStart.Year(), opts.TermStart.Month(), opts.TermStart.Day(), 0, 0, 0, 0, time.Local)
	for _, it := range items {
		for _, m := range Meetings(it) {
			offset := (int(m.Weekday) - int(term.Weekday()) + 7) % 7
			day := term.AddDate(0, 0, offset)
			start := day.Add(time.Duration(m.Start) * time.Minute)
			end := day.Add(time.Duration(m.End) * time.Minute)

			uid := fmt.Sprintf("%s-%d-%s@planr", it.Key(), m.Weekday, start.Format("1504"))
			ev := cal.AddEvent(uid)
			ev.SetDtStampTime(now)
			ev.SetProperty(ics.ComponentPropertyDtStart, start.Format(floatingLayout))
			ev.SetProperty(ics.ComponentPropertyDtEnd, end.Format(floatingLayout))
			ev.SetSummary(Title(it))
			ev.SetDescription(fmt.Sprintf("Section %s", it.Key()))
			ev.AddProperty(ics.ComponentPropertyRrule, fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", opts.Weeks))
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("export: writing calendar: %w", err)
	}
	return nil
}
