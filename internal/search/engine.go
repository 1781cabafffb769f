package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pders01/planr/internal/catalog"
)

// Result is a course matching a query
type Result struct {
	Course  catalog.CourseSummary
	Score   float64
	Matches []Match
}

// Match represents where text was found
type Match struct {
	Field  string // "code", "name", "description"
	Text   string // matched text snippet
	Weight float64
}

// Field weights shared by both engines.
const (
	codeWeight        = 4.0
	nameWeight        = 3.0
	descriptionWeight = 1.0
)

// Engine scores courses in memory without an index. It is the fallback
// when the on-disk index cannot be opened.
type Engine struct {
	mu      sync.RWMutex
	courses []catalog.CourseSummary
}

// NewEngine creates a new search engine over courses
func NewEngine(courses []catalog.CourseSummary) *Engine {
	e := &Engine{}
	_ = e.IndexCourses(courses)
	return e
}

// IndexCourses replaces the searchable courses.
func (e *Engine) IndexCourses(courses []catalog.CourseSummary) error {
	cp := make([]catalog.CourseSummary, len(courses))
	copy(cp, courses)
	e.mu.Lock()
	e.courses = cp
	e.mu.Unlock()
	return nil
}

func (e *Engine) Close() error { return nil }

func (e *Engine) DocCount() (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.courses), nil
}

// Search ranks courses by code, name and description matches
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	e.mu.RLock()
	var results []*Result
	for _, c := range e.courses {
		if r := e.searchCourse(c, terms); r != nil {
			results = append(results, r)
		}
	}
	e.mu.RUnlock()

	// Highest score first, ties by code for a stable listing.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Course.Code < results[j].Course.Code
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) searchCourse(c catalog.CourseSummary, terms []string) *Result {
	var matches []Match
	var totalScore float64

	if s := e.scoreField(c.Code, terms, codeWeight); s > 0 {
		matches = append(matches, Match{Field: "code", Text: c.Code, Weight: s})
		totalScore += s
	}
	if s := e.scoreField(c.Name, terms, nameWeight); s > 0 {
		matches = append(matches, Match{Field: "name", Text: c.Name, Weight: s})
		totalScore += s
	}
	if s := e.scoreField(c.Description, terms, descriptionWeight); s > 0 {
		matches = append(matches, Match{
			Field:  "description",
			Text:   e.findBestSnippet(c.Description, terms, 120),
			Weight: s,
		})
		totalScore += s
	}

	if totalScore == 0 {
		return nil
	}
	return &Result{Course: c, Score: totalScore, Matches: matches}
}

// scoreField calculates relevance score for a field
func (e *Engine) scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		// Substring match anywhere
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	// Boost score if multiple terms match
	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// findBestSnippet finds the most relevant text snippet containing search terms
func (e *Engine) findBestSnippet(text string, terms []string, maxLength int) string {
	if text == "" {
		return ""
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	windowSize := maxLength / 8 // approximate words in snippet
	if windowSize > len(words) || windowSize == 0 {
		return truncate(text, maxLength)
	}

	bestScore := 0.0
	bestStart := 0
	for i := 0; i <= len(words)-windowSize; i++ {
		window := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0.0
		for _, term := range terms {
			if strings.Contains(window, term) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}

	return truncate(strings.Join(words[bestStart:bestStart+windowSize], " "), maxLength)
}

// tokenize breaks text into lowercase searchable terms
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len(term) > 1 { // skip single chars
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if current.Len() > 1 {
		terms = append(terms, current.String())
	}

	return terms
}

// truncate limits text length with ellipsis
func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen-1] + "…"
}
