package tui

type View int

const (
	ViewCourses View = iota
	ViewSections
	ViewDetail
	ViewGrid
	ViewSearch
	ViewCrawl
)

func (v View) String() string {
	switch v {
	case ViewCourses:
		return "courses"
	case ViewSections:
		return "sections"
	case ViewDetail:
		return "detail"
	case ViewGrid:
		return "grid"
	case ViewSearch:
		return "search"
	case ViewCrawl:
		return "crawl"
	default:
		return "unknown"
	}
}
