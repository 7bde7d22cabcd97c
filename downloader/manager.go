package downloader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"gazo/config"
	"gazo/extract"
	"gazo/models"
)

// Manager drives one album through the full pipeline: locate, download,
// paginate, completeness checks with bounded retries, finalize. Each album
// owns its directory exclusively for the duration, so the manager must not
// be invoked for the same album from two goroutines.
type Manager struct {
	cfg     config.Config
	client  *Client
	engine  *Engine
	limiter *RateLimiter
}

// AlbumResult is the typed outcome for one album.
type AlbumResult struct {
	Album models.AlbumRef
	State models.AlbumState
	Stats models.Summary
	Dir   string
	Err   error
}

// NewManager builds a manager with its own client and politeness limiter.
func NewManager(cfg config.Config) (*Manager, error) {
	client, err := NewClient(cfg.DownloadTimeout, cfg.Verbose)
	if err != nil {
		return nil, err
	}

	limiter := NewRateLimiter(cfg.DownloadDelay)
	return &Manager{
		cfg:     cfg,
		client:  client,
		engine:  NewEngine(client, limiter, cfg.Verbose),
		limiter: limiter,
	}, nil
}

// Close releases the manager's resources.
func (m *Manager) Close() {
	m.limiter.Stop()
}

// ProcessAlbum runs the album state machine to a terminal state. A fully
// finalized directory short-circuits to Complete without touching the
// network; otherwise the manager performs up to 1+MaxRetries download
// rounds, re-checking completeness before each retry so that work already
// done by a previous round is never repeated.
func (m *Manager) ProcessAlbum(ctx context.Context, album models.AlbumRef) AlbumResult {
	result := AlbumResult{
		Album: album,
		State: models.StateNotStarted,
		Dir:   filepath.Join(m.cfg.DownloadDir, album.ID),
	}

	log.Printf("[Manager:%s] processing album: %s", album.ID, album.SourceURL)

	state, err := ScanDir(result.Dir)
	if err != nil {
		result.State = models.StateFailed
		result.Err = fmt.Errorf("failed to scan album directory: %w", err)
		return result
	}

	// Cheapest resumability path: canonical naming already in place.
	if state.Finalized() {
		log.Printf("[Manager:%s] already finalized (%d files), skipping", album.ID, len(state.CanonicalIndices))
		result.State = models.StateComplete
		result.Stats.Skipped = len(state.CanonicalIndices)
		return result
	}
	if state.Units() > 0 {
		result.State = models.StatePartial
	}

	var records []models.DownloadRecord

	for attempt := 0; attempt <= m.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			// A previous round may have actually succeeded but reported a
			// transient error; check before burning a retry on the network.
			if complete, downloaded, total := m.checkComplete(ctx, album, result.Dir); complete {
				log.Printf("[Manager:%s] already complete (%d/%d), skipping retry", album.ID, downloaded, total)
				result.Err = nil
				break
			}

			wait := time.Duration(attempt) * m.cfg.RetryBaseDelay
			log.Printf("[Manager:%s] retry %d/%d after %v", album.ID, attempt, m.cfg.MaxRetries, wait)

			select {
			case <-ctx.Done():
				result.State = models.StateFailed
				result.Err = ctx.Err()
				return result
			case <-time.After(wait):
			}
		}

		roundRecords, stats, err := m.downloadRound(ctx, album, result.Dir)
		records = append(records, roundRecords...)
		result.Stats.Add(stats)

		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.State = models.StateFailed
				result.Err = err
				return result
			}
			var netErr *NetworkError
			var httpErr *HTTPError
			if !errors.As(err, &netErr) && !errors.As(err, &httpErr) {
				// Filesystem trouble: abort this album, keep the run alive.
				result.State = models.StateFailed
				result.Err = err
				return result
			}
			log.Printf("[Manager:%s] round failed (attempt %d/%d): %v", album.ID, attempt+1, m.cfg.MaxRetries+1, err)
			result.Err = err
			continue
		}

		complete, downloaded, total := m.checkComplete(ctx, album, result.Dir)
		if complete {
			result.Err = nil
			break
		}
		log.Printf("[Manager:%s] incomplete after attempt %d (%d/%d)", album.ID, attempt+1, downloaded, total)
		result.State = models.StatePartial
		result.Err = fmt.Errorf("album incomplete: %d of %d images", downloaded, total)
	}

	if result.Err != nil {
		result.State = models.StateFailed
		log.Printf("[Manager:%s] ✗ failed after %d attempts: %v", album.ID, m.cfg.MaxRetries+1, result.Err)
		return result
	}

	if err := m.finalize(records, result.Dir); err != nil {
		result.State = models.StateFailed
		result.Err = err
		return result
	}

	result.State = models.StateComplete
	log.Printf("[Manager:%s] ✓ complete: %d downloaded, %d failed, %d skipped",
		album.ID, result.Stats.Success, result.Stats.Failed, result.Stats.Skipped)
	return result
}

// downloadRound performs one full pass over the album: page 1, then any
// further pages signalled by the pagination walker, with every candidate
// numbered by its position in the album-wide sequence.
func (m *Manager) downloadRound(ctx context.Context, album models.AlbumRef, dir string) ([]models.DownloadRecord, models.Summary, error) {
	var records []models.DownloadRecord
	var stats models.Summary

	// A URL that is itself an image is a one-candidate album.
	if isDirectImageURL(album.SourceURL) {
		log.Printf("[Manager:%s] URL is a direct image, downloading as single candidate", album.ID)
		seq := []models.ImageCandidate{{URL: album.SourceURL}}
		return m.engine.DownloadAll(ctx, seq, dir, 1)
	}

	// Candidate position determines the on-disk index, stable across
	// rounds so a retry re-fills exactly the slots that failed. The
	// counter only advances across pages within one round.
	nextIndex := 1

	pageURL := album.SourceURL
	for pageNum := 1; ; pageNum++ {
		page, err := m.client.FetchPage(ctx, pageURL)
		if err != nil {
			return records, stats, err
		}

		body := string(page.Body)
		seq := extract.Locate(body, page.FinalURL)
		if len(seq) == 0 {
			// Extraction coming up empty is "no more pages", not an error.
			log.Printf("[Manager:%s] no candidates on page %d", album.ID, pageNum)
			return records, stats, nil
		}
		log.Printf("[Manager:%s] page %d: %d candidates", album.ID, pageNum, len(seq))

		roundRecords, roundStats, err := m.engine.DownloadAll(ctx, seq, dir, nextIndex)
		records = append(records, roundRecords...)
		stats.Add(roundStats)
		if err != nil {
			return records, stats, err
		}
		nextIndex += len(seq)

		nextURL := extract.NextPage(body, page.FinalURL)
		if nextURL == "" {
			return records, stats, nil
		}

		log.Printf("[Manager:%s] more pages detected, next: %s", album.ID, nextURL)
		select {
		case <-ctx.Done():
			return records, stats, ctx.Err()
		case <-time.After(m.cfg.Delay):
		}
		pageURL = nextURL
	}
}

// checkComplete re-derives the album's completeness: live candidate count
// from a fresh fetch against distinct positional files on disk. Only when
// the fetch itself fails does the estimate degrade to canonical-index
// contiguity; a successful fetch that yields no candidates (a challenge
// interstitial, a gutted page) reports incomplete rather than trusting the
// disk. Direct image URLs have no page to count, so they always use the
// on-disk estimate.
func (m *Manager) checkComplete(ctx context.Context, album models.AlbumRef, dir string) (bool, int, int) {
	state, err := ScanDir(dir)
	if err != nil || !state.Exists {
		return false, 0, 0
	}

	if isDirectImageURL(album.SourceURL) {
		return diskEstimate(state)
	}

	page, err := m.client.FetchPage(ctx, album.SourceURL)
	if err != nil {
		log.Printf("[Manager:%s] completeness fetch failed, using on-disk estimate: %v", album.ID, err)
		return diskEstimate(state)
	}

	total := len(extract.Locate(string(page.Body), page.FinalURL))
	if total == 0 {
		return false, 0, 0
	}

	downloaded := state.Units()
	return downloaded >= total, downloaded, total
}

// diskEstimate judges completeness from canonical-index contiguity alone.
// Best-effort: non-contiguous histories can under- or over-count.
func diskEstimate(state DirState) (bool, int, int) {
	if len(state.CanonicalIndices) == 0 {
		return false, 0, 0
	}
	missing := state.MissingBelowMax()
	downloaded := len(state.CanonicalIndices)
	if missing == 0 {
		return true, downloaded, state.MaxIndex()
	}
	return false, downloaded, state.MaxIndex() + missing
}

// finalize puts the directory into canonical naming, using the batch
// records when this run downloaded anything and the on-disk order
// otherwise.
func (m *Manager) finalize(records []models.DownloadRecord, dir string) error {
	state, err := ScanDir(dir)
	if err != nil {
		return err
	}

	// Retry rounds record a skipped file again; only the first mention of
	// each path matters to the finalizer.
	seen := make(map[string]struct{}, len(records))
	unique := make([]models.DownloadRecord, 0, len(records))
	for _, record := range records {
		if _, dup := seen[record.TempPath]; dup {
			continue
		}
		seen[record.TempPath] = struct{}{}
		unique = append(unique, record)
	}
	records = unique

	if len(records) > 0 {
		if _, err := Finalize(records, dir); err != nil {
			return err
		}
	} else if len(state.PendingImages) > 0 {
		if _, err := FinalizeExisting(dir); err != nil {
			return err
		}
	}

	if m.cfg.ConvertJPEG {
		if err := NormalizeToJPEG(dir); err != nil {
			log.Printf("[Manager] JPEG normalization failed: %v", err)
		}
	}
	if m.cfg.CreateZip {
		if _, err := CreateZip(dir); err != nil {
			log.Printf("[Manager] archiving failed: %v", err)
		}
	}
	return nil
}

func isDirectImageURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	ext := strings.ToLower(filepath.Ext(parsed.Path))
	_, ok := imageExtensions[ext]
	return ok
}
