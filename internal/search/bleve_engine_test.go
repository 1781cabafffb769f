package search

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/planr/internal/catalog"
)

func TestBleveEngineIndexesAndSearches(t *testing.T) {
	dir := t.TempDir()
	idxPath := filepath.Join(dir, "index.bleve")
	eng, err := NewBleveEngine(idxPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	require.NoError(t, eng.IndexCourses(testCourses()))

	res, err := eng.Search("calculus", 10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res), 2)
	assert.Equal(t, "MAT1", res[0].Course.Code, "name hits outrank description hits")
	assert.Equal(t, "Calculus I", res[0].Course.Name)

	res, err = eng.Search("matr", 10)
	require.NoError(t, err)
	require.Len(t, res, 1, "prefix queries match")
	assert.Equal(t, "MAT2", res[0].Course.Code)

	res, err = eng.Search("x", 10)
	require.NoError(t, err)
	assert.Empty(t, res)

	// Ensure index directory created
	fi, err := os.Stat(idxPath)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
}

func TestBleveEngineReindexDropsStaleCourses(t *testing.T) {
	eng, err := NewMemBleveEngine()
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	require.NoError(t, eng.IndexCourses(testCourses()))
	n, err := eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	require.NoError(t, eng.IndexCourses([]catalog.CourseSummary{{Code: "MAT1", Name: "Calculus I"}}))
	n, err = eng.DocCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := eng.Search("physics", 10)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestOpenFallsBackToMemory(t *testing.T) {
	idx := Open("")
	_, ok := idx.(*Engine)
	assert.True(t, ok)

	idx = Open(filepath.Join(t.TempDir(), "idx.bleve"))
	_, ok = idx.(*BleveEngine)
	assert.True(t, ok)
	require.NoError(t, idx.Close())
}
