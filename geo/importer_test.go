package geo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "corpus.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestImportBasic(t *testing.T) {
	path := writeCorpusCSV(t, "40.7128,-74.0060\n51.5074,-0.1278\n")

	points, skipped, err := NewImporter(0, 1).Import(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []GeoPoint{
		{Lat: 40.7128, Lon: -74.0060},
		{Lat: 51.5074, Lon: -0.1278},
	}, points)
}

func TestImportSkipsHeader(t *testing.T) {
	path := writeCorpusCSV(t, "lat,lon\n10,20\n")

	imp := NewImporter(0, 1)
	imp.SkipHeader = true
	points, skipped, err := imp.Import(path)
	require.NoError(t, err)
	// The header row is dropped, not counted as malformed.
	assert.Zero(t, skipped)
	assert.Equal(t, []GeoPoint{{Lat: 10, Lon: 20}}, points)
}

func TestImportSkipsBadRows(t *testing.T) {
	path := writeCorpusCSV(t,
		"10,20\n"+ // good
			"abc,20\n"+ // non-numeric lat
			"10,xyz\n"+ // non-numeric lon
			"95,20\n"+ // latitude out of range
			"10,190\n"+ // longitude out of range
			"10\n"+ // missing column
			"-10,-20\n") // good

	points, skipped, err := NewImporter(0, 1).Import(path)
	require.NoError(t, err)
	assert.Equal(t, 5, skipped)
	assert.Equal(t, []GeoPoint{{Lat: 10, Lon: 20}, {Lat: -10, Lon: -20}}, points)
}

func TestImportColumnSelection(t *testing.T) {
	path := writeCorpusCSV(t, "id1,france,48.8566,2.3522\n")

	points, skipped, err := NewImporter(2, 3).Import(path)
	require.NoError(t, err)
	assert.Zero(t, skipped)
	assert.Equal(t, []GeoPoint{{Lat: 48.8566, Lon: 2.3522}}, points)
}

func TestImportMissingFile(t *testing.T) {
	_, _, err := NewImporter(0, 1).Import(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}
