package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type schema struct {
	required []string
	known    []string
}

type record interface {
	schema() schema
	extras() *Extras
}

func (Program) schema() schema {
	return schema{
		required: []string{"code", "name"},
		known:    []string{"code", "name", "detail_url"},
	}
}

func (ProgramDetail) schema() schema {
	return schema{
		required: []string{"code", "name", "courses"},
		known:    []string{"code", "name", "courses"},
	}
}

func (CourseSummary) schema() schema {
	return schema{
		required: []string{"code", "name"},
		known:    []string{"code", "name", "description", "detail_url", "sections_url", "code_url"},
	}
}

func (CourseDetail) schema() schema {
	return schema{
		required: []string{"code", "name"},
		known:    []string{"code", "name", "description", "credits", "prerequisites", "sections_url"},
	}
}

func (Section) schema() schema {
	return schema{
		required: []string{"id", "course_code"},
		known:    []string{"id", "course_code", "name", "teacher", "schedule_code", "schedule"},
	}
}

// decodeOne validates raw against T's schema and decodes it, keeping
// unknown fields in Extra.
func decodeOne[T any, PT interface {
	*T
	record
}](resource, url string, raw []byte) (T, error) {
	var v T
	p := PT(&v)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return v, &ValidationError{Resource: resource, URL: url, Reason: "expected a JSON object"}
	}

	sc := p.schema()
	var missing []string
	for _, f := range sc.required {
		if val, ok := fields[f]; !ok || isNull(val) {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return v, &ValidationError{Resource: resource, URL: url, Missing: missing}
	}

	if err := json.Unmarshal(raw, p); err != nil {
		return v, &ValidationError{Resource: resource, URL: url, Reason: err.Error()}
	}

	known := make(map[string]struct{}, len(sc.known))
	for _, k := range sc.known {
		known[k] = struct{}{}
	}
	ex := p.extras()
	for k, val := range fields {
		if _, ok := known[k]; ok {
			continue
		}
		if ex.Extra == nil {
			ex.Extra = make(map[string]json.RawMessage)
		}
		ex.Extra[k] = val
	}

	if n, ok := any(p).(interface{ normalize() }); ok {
		n.normalize()
	}
	return v, nil
}

// decodeList decodes a JSON array whose every element must satisfy T's
// schema. Missing fields are reported with their element index.
func decodeList[T any, PT interface {
	*T
	record
}](resource, url string, raw []byte) ([]T, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, &ValidationError{Resource: resource, URL: url, Reason: "expected a JSON array"}
	}

	out := make([]T, 0, len(items))
	for i, item := range items {
		v, err := decodeOne[T, PT](resource, url, item)
		if err != nil {
			verr := err.(*ValidationError)
			for j, m := range verr.Missing {
				verr.Missing[j] = fmt.Sprintf("[%d].%s", i, m)
			}
			if verr.Reason != "" {
				verr.Reason = fmt.Sprintf("[%d]: %s", i, verr.Reason)
			}
			return nil, verr
		}
		out = append(out, v)
	}
	return out, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// DecodeSections parses a stored list of sections, keeping unknown fields
// and normalizing legacy schedules.
func DecodeSections(data []byte) ([]Section, error) {
	return decodeList[Section, *Section]("sections", "", data)
}

// DecodeCourses parses a list of course summaries.
func DecodeCourses(data []byte) ([]CourseSummary, error) {
	return decodeList[CourseSummary, *CourseSummary]("courses", "", data)
}
