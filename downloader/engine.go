package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gazo/models"
)

var urlExtRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp|bmp|svg)`)

var imageContentTokens = []string{"image", "jpeg", "jpg", "png", "gif", "webp", "bmp", "svg"}

// Engine downloads a reconciled candidate sequence into an album directory
// under temporary positional names. Idempotent: a file already present for
// an index is counted as skipped and never re-fetched.
type Engine struct {
	client  *Client
	limiter *RateLimiter
	verbose bool
}

// NewEngine wires the engine up to the shared client and politeness limiter.
func NewEngine(client *Client, limiter *RateLimiter, verbose bool) *Engine {
	return &Engine{client: client, limiter: limiter, verbose: verbose}
}

// DownloadAll fetches each candidate into targetDir at position
// startIndex+offset. Per-candidate failures are counted, not returned;
// the error return is reserved for filesystem problems and cancellation,
// which abort the album.
func (e *Engine) DownloadAll(ctx context.Context, seq []models.ImageCandidate, targetDir string, startIndex int) ([]models.DownloadRecord, models.Summary, error) {
	var records []models.DownloadRecord
	var stats models.Summary

	if len(seq) == 0 {
		return records, stats, nil
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, stats, fmt.Errorf("failed to create directory %s: %w", targetDir, err)
	}

	for offset, cand := range seq {
		select {
		case <-ctx.Done():
			return records, stats, ctx.Err()
		default:
		}

		index := startIndex + offset
		ext := extFromURL(cand.URL)
		filename := fmt.Sprintf("%03d%s", index, ext)
		path := filepath.Join(targetDir, filename)

		if info, err := os.Stat(path); err == nil {
			stats.Skipped++
			records = append(records, models.DownloadRecord{
				Index:     index,
				TempPath:  path,
				SourceURL: cand.URL,
				Ext:       ext,
			})
			if e.verbose {
				log.Printf("[Engine] ⊘ [%03d] skipping existing file: %s (%d bytes)", index, filename, info.Size())
			}
			continue
		}

		e.limiter.Wait()

		if err := e.downloadOne(ctx, cand.URL, path); err != nil {
			stats.Failed++
			log.Printf("[Engine] ✗ [%03d] download failed: %v", index, err)

			// Filesystem trouble aborts the album; network and content
			// failures only count against this candidate.
			var pathErr *os.PathError
			if errors.As(err, &pathErr) {
				return records, stats, err
			}
			continue
		}

		stats.Success++
		records = append(records, models.DownloadRecord{
			Index:     index,
			TempPath:  path,
			SourceURL: cand.URL,
			Ext:       ext,
		})
		log.Printf("[Engine] ✓ [%03d] downloaded: %s", index, filename)
	}

	log.Printf("[Engine] done: %d downloaded, %d failed, %d skipped", stats.Success, stats.Failed, stats.Skipped)
	return records, stats, nil
}

// downloadOne streams a single image to disk, deleting any partial file on
// failure.
func (e *Engine) downloadOne(ctx context.Context, imageURL, path string) error {
	resp, cancel, err := e.client.Get(ctx, imageURL)
	if err != nil {
		return err
	}
	defer cancel()
	defer resp.Body.Close()

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !isImageContentType(contentType) {
		return &ContentTypeError{URL: imageURL, ContentType: contentType}
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return &NetworkError{URL: imageURL, Err: err}
	}

	if err := out.Close(); err != nil {
		os.Remove(path)
		return err
	}

	return nil
}

func isImageContentType(contentType string) bool {
	for _, token := range imageContentTokens {
		if strings.Contains(contentType, token) {
			return true
		}
	}
	return false
}

// extFromURL takes the candidate URL's apparent extension, defaulting to
// .jpg when none is recognizable.
func extFromURL(rawURL string) string {
	if m := urlExtRe.FindStringSubmatch(rawURL); m != nil {
		return "." + strings.ToLower(m[1])
	}
	return ".jpg"
}
