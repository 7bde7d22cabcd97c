package downloader

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// CreateZip compresses a finalized album directory into "(<id>).zip" next
// to it, storing the files flat by name. Returns the archive path.
func CreateZip(targetDir string) (string, error) {
	entries, err := os.ReadDir(targetDir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", targetDir, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	if len(files) == 0 {
		return "", fmt.Errorf("directory is empty, nothing to archive: %s", targetDir)
	}

	albumID := filepath.Base(targetDir)
	zipPath := filepath.Join(filepath.Dir(targetDir), fmt.Sprintf("(%s).zip", albumID))

	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	writer := zip.NewWriter(out)
	for _, name := range files {
		if err := addToZip(writer, filepath.Join(targetDir, name), name); err != nil {
			writer.Close()
			os.Remove(zipPath)
			return "", fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		os.Remove(zipPath)
		return "", err
	}

	if info, err := os.Stat(zipPath); err == nil {
		log.Printf("[Archive] created %s (%d files, %d bytes)", filepath.Base(zipPath), len(files), info.Size())
	}
	return zipPath, nil
}

func addToZip(writer *zip.Writer, path, arcname string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	entry, err := writer.Create(arcname)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, in)
	return err
}
