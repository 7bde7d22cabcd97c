package downloader

import (
	"os"
	"path/filepath"
	"testing"

	"gazo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), jpegBytes, 0644))
	}
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func recordsFor(dir string, names ...string) []models.DownloadRecord {
	var records []models.DownloadRecord
	for i, name := range names {
		records = append(records, models.DownloadRecord{
			Index:    i + 1,
			TempPath: filepath.Join(dir, name),
			Ext:      filepath.Ext(name),
		})
	}
	return records
}

func TestFinalizeRenamesBatch(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.jpg", "002.png", "003.jpg")

	result, err := Finalize(recordsFor(dir, "001.jpg", "002.png", "003.jpg"), dir)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Renamed)
	assert.Zero(t, result.Skipped)

	assert.ElementsMatch(t, []string{"001.jpg", "002.png", "003.jpg"}, dirNames(t, dir))
	assert.NoDirExists(t, filepath.Join(dir, "temp_rename"))
}

func TestFinalizeClosesGaps(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.jpg", "004.jpg")

	result, err := Finalize(recordsFor(dir, "001.jpg", "004.jpg"), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Renamed)

	assert.ElementsMatch(t, []string{"001.jpg", "002.jpg"}, dirNames(t, dir))
}

func TestFinalizeRemovesStaleCanonical(t *testing.T) {
	dir := t.TempDir()
	// 005.jpg is a leftover from an earlier run with a different ordering.
	writeFiles(t, dir, "001.jpg", "002.jpg", "005.jpg")

	result, err := Finalize(recordsFor(dir, "001.jpg", "002.jpg"), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Renamed)

	assert.ElementsMatch(t, []string{"001.jpg", "002.jpg"}, dirNames(t, dir))
}

func TestFinalizeMissingSourceSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.jpg", "003.jpg")

	result, err := Finalize(recordsFor(dir, "001.jpg", "002.jpg", "003.jpg"), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Renamed)
	assert.Equal(t, 1, result.Skipped)

	// The surviving files still end up contiguous.
	assert.ElementsMatch(t, []string{"001.jpg", "002.jpg"}, dirNames(t, dir))
}

func TestFinalizeIdempotent(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.jpg", "002.jpg")

	records := recordsFor(dir, "001.jpg", "002.jpg")
	_, err := Finalize(records, dir)
	require.NoError(t, err)
	result, err := Finalize(records, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Renamed)
	assert.ElementsMatch(t, []string{"001.jpg", "002.jpg"}, dirNames(t, dir))
}

func TestFinalizeEmptyBatch(t *testing.T) {
	result, err := Finalize(nil, t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, result.Renamed)
}

func TestFinalizeExistingRenumbersPending(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "photo_b.jpg", "photo_a.jpg", "notes.txt")

	result, err := FinalizeExisting(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Renamed)

	names := dirNames(t, dir)
	assert.Contains(t, names, "001.jpg")
	assert.Contains(t, names, "002.jpg")
	assert.Contains(t, names, "notes.txt")
}

func TestFinalizeExistingKeepsCanonicalFirst(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001.jpg"), []byte("first"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "002.jpg"), []byte("second"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.jpg"), []byte("third"), 0644))

	result, err := FinalizeExisting(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Renamed)

	assert.ElementsMatch(t, []string{"001.jpg", "002.jpg", "003.jpg"}, dirNames(t, dir))

	first, err := os.ReadFile(filepath.Join(dir, "001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(first))
	third, err := os.ReadFile(filepath.Join(dir, "003.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "third", string(third))
}

func TestFinalizeExistingNothingPending(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "001.jpg")

	result, err := FinalizeExisting(dir)
	require.NoError(t, err)
	assert.Zero(t, result.Renamed)
	assert.ElementsMatch(t, []string{"001.jpg"}, dirNames(t, dir))
}
