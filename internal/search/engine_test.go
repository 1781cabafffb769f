package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/planr/internal/catalog"
)

func testCourses() []catalog.CourseSummary {
	return []catalog.CourseSummary{
		{Code: "MAT1", Name: "Calculus I", Description: "Limits, derivatives and integrals of one variable"},
		{Code: "MAT2", Name: "Linear Algebra", Description: "Vector spaces and matrices"},
		{Code: "CS1", Name: "Introduction to Programming", Description: "Algorithms and data structures with calculus examples"},
		{Code: "PHY1", Name: "Physics", Description: "Mechanics"},
	}
}

func TestSearchMinLength(t *testing.T) {
	engine := NewEngine(testCourses())

	tests := []struct {
		name  string
		query string
	}{
		{name: "Empty query", query: ""},
		{name: "Single character query", query: "a"},
		{name: "Whitespace only", query: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := engine.Search(tt.query, 10)
			assert.NoError(t, err)
			assert.NotNil(t, results)
			assert.Equal(t, 0, len(results), "short queries should return empty results")
		})
	}
}

func TestEngineSearchRanksByField(t *testing.T) {
	engine := NewEngine(testCourses())

	results, err := engine.Search("calculus", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "MAT1", results[0].Course.Code, "name matches outrank description matches")
	assert.Equal(t, "CS1", results[1].Course.Code)
	assert.Equal(t, "name", results[0].Matches[0].Field)
	assert.Equal(t, "description", results[1].Matches[0].Field)

	results, err = engine.Search("mat", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "code", results[0].Matches[0].Field)

	results, err = engine.Search("mat", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	results, err = engine.Search("chemistry", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngineIndexCoursesReplaces(t *testing.T) {
	engine := NewEngine(testCourses())
	n, err := engine.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, engine.IndexCourses([]catalog.CourseSummary{{Code: "BIO1", Name: "Biology"}}))
	n, _ = engine.DocCount()
	assert.Equal(t, 1, n)

	results, err := engine.Search("calculus", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "simple words", input: "hello world", expected: []string{"hello", "world"}},
		{name: "with punctuation", input: "calculus, algebra! test.", expected: []string{"calculus", "algebra", "test"}},
		{name: "course codes", input: "MAT1 cs101", expected: []string{"mat1", "cs101"}},
		{name: "single characters filtered", input: "a b test c d word", expected: []string{"test", "word"}},
		{name: "empty string", input: "", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenize(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxLen   int
		expected string
	}{
		{name: "text shorter than limit", text: "short", maxLen: 10, expected: "short"},
		{name: "text exactly at limit", text: "exactlyten", maxLen: 10, expected: "exactlyten"},
		{name: "text longer than limit", text: "this is a very long text", maxLen: 10, expected: "this is a…"},
		{name: "empty text", text: "", maxLen: 10, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truncate(tt.text, tt.maxLen))
		})
	}
}

func TestScoreField(t *testing.T) {
	engine := NewEngine(nil)

	tests := []struct {
		name     string
		text     string
		terms    []string
		minScore float64
	}{
		{name: "exact match", text: "linear algebra", terms: []string{"algebra"}, minScore: 2.0},
		{name: "prefix match", text: "linear algebra", terms: []string{"alg"}, minScore: 1.0},
		{name: "no match", text: "linear algebra", terms: []string{"xyz"}, minScore: 0},
		{name: "empty text", text: "", terms: []string{"algebra"}, minScore: 0},
		{name: "multiple terms", text: "linear algebra basics", terms: []string{"linear", "basics"}, minScore: 4.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := engine.scoreField(tt.text, tt.terms, 1.0)
			assert.GreaterOrEqual(t, score, tt.minScore)
			if tt.minScore == 0 {
				assert.Zero(t, score)
			}
		})
	}
}

func TestFindBestSnippet(t *testing.T) {
	engine := NewEngine(nil)

	snippet := engine.findBestSnippet("an introductory course covering many topics with a focus on matrices and vector spaces near the end", []string{"matrices"}, 40)
	assert.Contains(t, snippet, "matrices")

	assert.Equal(t, "", engine.findBestSnippet("", []string{"x"}, 40))
	assert.Equal(t, "short text", engine.findBestSnippet("short text", []string{"short"}, 100))
}
