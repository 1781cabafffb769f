package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/pders01/planr/internal/timecode"
)

// Extras keeps the fields of a payload that the typed record does not
// model, so they survive a round trip.
type Extras struct {
	Extra map[string]json.RawMessage `json:"-"`
}

func (e *Extras) extras() *Extras { return e }

type Program struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	DetailURL string `json:"detail_url,omitempty"`
	Extras
}

type ProgramDetail struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Courses []CourseSummary `json:"courses"`
	Extras
}

type CourseSummary struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DetailURL   string `json:"detail_url,omitempty"`
	SectionsURL string `json:"sections_url,omitempty"`
	CodeURL     string `json:"code_url,omitempty"`
	Extras
}

type CourseDetail struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Credits       float64  `json:"credits,omitempty"`
	Prerequisites []string `json:"prerequisites,omitempty"`
	SectionsURL   string   `json:"sections_url,omitempty"`
	Extras
}

// Meeting is one structured weekly meeting of a section.
type Meeting struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type Section struct {
	ID           string    `json:"id"`
	CourseCode   string    `json:"course_code"`
	Name         string    `json:"name,omitempty"`
	Teacher      string    `json:"teacher,omitempty"`
	ScheduleCode string    `json:"schedule_code,omitempty"`
	Schedule     []Meeting `json:"schedule,omitempty"`
	Extras
}

// Key identifies the section in a selection.
func (s Section) Key() string { return s.ID }

// Title reads "MAT1 Calculus (MAT1-A)", or without the name when empty.
func (s Section) Title() string {
	if s.Name == "" {
		return fmt.Sprintf("%s (%s)", s.CourseCode, s.ID)
	}
	return fmt.Sprintf("%s %s (%s)", s.CourseCode, s.Name, s.ID)
}

// TimeCodes returns the individual codes of the section's schedule.
func (s Section) TimeCodes() []string {
	return timecode.Fields(s.ScheduleCode)
}

// normalize fills the structured schedule from the compact code when the
// payload only carries the latter.
func (s *Section) normalize() {
	if len(s.Schedule) > 0 || s.ScheduleCode == "" {
		return
	}
	for _, m := range timecode.DecodeLegacy(s.ScheduleCode) {
		s.Schedule = append(s.Schedule, Meeting{
			Day:       m.Weekday.String(),
			StartTime: m.Start.String(),
			EndTime:   m.End.String(),
		})
	}
}

func (p Program) MarshalJSON() ([]byte, error) {
	type plain Program
	return mergeExtras(plain(p), p.Extra)
}

func (p ProgramDetail) MarshalJSON() ([]byte, error) {
	type plain ProgramDetail
	return mergeExtras(plain(p), p.Extra)
}

func (c CourseSummary) MarshalJSON() ([]byte, error) {
	type plain CourseSummary
	return mergeExtras(plain(c), c.Extra)
}

func (c CourseDetail) MarshalJSON() ([]byte, error) {
	type plain CourseDetail
	return mergeExtras(plain(c), c.Extra)
}

func (s Section) MarshalJSON() ([]byte, error) {
	type plain Section
	return mergeExtras(plain(s), s.Extra)
}

func mergeExtras(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := fields[k]; !ok {
			fields[k] = raw
		}
	}
	return json.Marshal(fields)
}
