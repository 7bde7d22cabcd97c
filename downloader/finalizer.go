package downloader

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gazo/models"
)

const scratchDirName = "temp_rename"

// FinalizeResult reports the outcome of one finalize pass.
type FinalizeResult struct {
	Renamed int
	Skipped int
}

// Finalize renames the batch of downloaded files into the canonical
// gap-free sequence, replacing stale numbered files from any previous run.
//
// Renaming goes through a scratch subdirectory so that every rename is
// collision-free even when the new order swaps existing indices. A record
// whose temp file has gone missing is logged and skipped; finalization
// continues for the rest.
func Finalize(records []models.DownloadRecord, targetDir string) (FinalizeResult, error) {
	var result FinalizeResult
	if len(records) == 0 {
		return result, nil
	}

	scratchDir := filepath.Join(targetDir, scratchDirName)
	if err := os.MkdirAll(scratchDir, 0755); err != nil {
		return result, fmt.Errorf("failed to create scratch directory: %w", err)
	}

	// Phase 1: move the batch out of the album directory.
	type staged struct {
		record      models.DownloadRecord
		scratchPath string
	}
	var stagedFiles []staged

	batch := make(map[string]struct{}, len(records))
	for _, record := range records {
		batch[filepath.Clean(record.TempPath)] = struct{}{}
	}

	for _, record := range records {
		if _, err := os.Stat(record.TempPath); err != nil {
			log.Printf("[Finalize] source file missing, skipping: %s", record.TempPath)
			result.Skipped++
			continue
		}

		scratchPath := filepath.Join(scratchDir, "temp_"+filepath.Base(record.TempPath))
		if err := os.Rename(record.TempPath, scratchPath); err != nil {
			log.Printf("[Finalize] failed to stage %s: %v", record.TempPath, err)
			result.Skipped++
			continue
		}
		stagedFiles = append(stagedFiles, staged{record: record, scratchPath: scratchPath})
	}

	// Stale canonical files left behind are leftovers from a previous,
	// possibly differently-ordered run.
	if err := removeStaleCanonical(targetDir, batch); err != nil {
		return result, err
	}

	// Phase 2: rename into the canonical sequence, indices from 1, no gaps.
	index := 1
	for _, item := range stagedFiles {
		ext := item.record.Ext
		if ext == "" {
			ext = extFromURL(item.record.SourceURL)
		}

		finalName := fmt.Sprintf("%03d%s", index, ext)
		finalPath := filepath.Join(targetDir, finalName)

		if err := os.Rename(item.scratchPath, finalPath); err != nil {
			log.Printf("[Finalize] failed to rename %s: %v", item.scratchPath, err)
			result.Skipped++
			continue
		}
		result.Renamed++
		index++
	}

	removeScratch(scratchDir)

	log.Printf("[Finalize] done: %d renamed, %d skipped", result.Renamed, result.Skipped)
	return result, nil
}

// FinalizeExisting normalizes a directory whose files were downloaded by an
// earlier run but never renamed. Files already in canonical naming keep
// their relative order and come first; the rest follow sorted by name, and
// everything is renumbered contiguously through the same two-phase rename.
func FinalizeExisting(targetDir string) (FinalizeResult, error) {
	state, err := ScanDir(targetDir)
	if err != nil {
		return FinalizeResult{}, err
	}
	if !state.Exists || len(state.PendingImages) == 0 {
		return FinalizeResult{}, nil
	}

	canonical := make([]int, 0, len(state.CanonicalIndices))
	for idx := range state.CanonicalIndices {
		canonical = append(canonical, idx)
	}
	sort.Ints(canonical)

	pending := append([]string(nil), state.PendingImages...)
	sort.Strings(pending)

	records := make([]models.DownloadRecord, 0, len(canonical)+len(pending))
	for _, idx := range canonical {
		name := canonicalFileName(targetDir, idx)
		if name == "" {
			continue
		}
		records = append(records, models.DownloadRecord{
			Index:    len(records) + 1,
			TempPath: filepath.Join(targetDir, name),
			Ext:      strings.ToLower(filepath.Ext(name)),
		})
	}
	for _, name := range pending {
		records = append(records, models.DownloadRecord{
			Index:    len(records) + 1,
			TempPath: filepath.Join(targetDir, name),
			Ext:      strings.ToLower(filepath.Ext(name)),
		})
	}

	return Finalize(records, targetDir)
}

// canonicalFileName finds the on-disk file carrying the given canonical
// index, whatever its extension.
func canonicalFileName(targetDir string, idx int) string {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return ""
	}
	prefix := fmt.Sprintf("%03d.", idx)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && canonicalNameRe.MatchString(entry.Name()) {
			return entry.Name()
		}
	}
	return ""
}

// removeStaleCanonical deletes canonical-named files that are not part of
// the current batch.
func removeStaleCanonical(targetDir string, batch map[string]struct{}) error {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", targetDir, err)
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() || !canonicalNameRe.MatchString(entry.Name()) {
			continue
		}
		path := filepath.Join(targetDir, entry.Name())
		if _, ours := batch[filepath.Clean(path)]; ours {
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("[Finalize] failed to remove stale file %s: %v", entry.Name(), err)
			continue
		}
		cleaned++
	}
	if cleaned > 0 {
		log.Printf("[Finalize] removed %d stale numbered files", cleaned)
	}
	return nil
}

// removeScratch drops the scratch directory, clearing any stragglers first.
func removeScratch(scratchDir string) {
	if err := os.Remove(scratchDir); err == nil {
		return
	}

	entries, err := os.ReadDir(scratchDir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		os.Remove(filepath.Join(scratchDir, entry.Name()))
	}
	os.Remove(scratchDir)
}
