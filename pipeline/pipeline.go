// Package pipeline wires album discovery, download, and bookkeeping into
// the run modes exposed by the CLI.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"gazo/config"
	"gazo/discover"
	"gazo/downloader"
	"gazo/models"
	"gazo/worklist"
)

// Runner executes albums sequentially with a shared manager and client.
type Runner struct {
	cfg     config.Config
	manager *downloader.Manager
	client  *downloader.Client
}

// New builds a runner from the given configuration.
func New(cfg config.Config) (*Runner, error) {
	manager, err := downloader.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	client, err := downloader.NewClient(cfg.DownloadTimeout, cfg.Verbose)
	if err != nil {
		manager.Close()
		return nil, err
	}
	return &Runner{cfg: cfg, manager: manager, client: client}, nil
}

// Close releases the runner's resources.
func (r *Runner) Close() {
	r.manager.Close()
}

// RunURLs processes each album URL in order. One album failing never stops
// the others; the per-album outcomes carry the detail.
func (r *Runner) RunURLs(ctx context.Context, urls []string) []downloader.AlbumResult {
	results := make([]downloader.AlbumResult, 0, len(urls))

	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}
		album := models.AlbumFromURL(rawURL)
		results = append(results, r.manager.ProcessAlbum(ctx, album))
	}

	logRunSummary(results)
	return results
}

// RunFile processes every URL in the worklist file, removing each line as
// its album reaches Complete so interrupted runs resume with only the
// remaining work.
func (r *Runner) RunFile(ctx context.Context, path string) ([]downloader.AlbumResult, error) {
	urls, err := worklist.Read(path)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		log.Printf("[Pipeline] worklist %s is empty, nothing to do", path)
		return nil, nil
	}
	log.Printf("[Pipeline] worklist %s: %d albums", path, len(urls))

	results := make([]downloader.AlbumResult, 0, len(urls))
	for _, rawURL := range urls {
		if ctx.Err() != nil {
			break
		}
		album := models.AlbumFromURL(rawURL)
		result := r.manager.ProcessAlbum(ctx, album)
		results = append(results, result)

		if result.State == models.StateComplete {
			if err := worklist.Remove(path, rawURL); err != nil {
				log.Printf("[Pipeline] failed to update worklist: %v", err)
			}
		}
	}

	logRunSummary(results)
	return results, nil
}

// RunAuto crawls the listing starting at startURL, resolves each post's
// reader links, and downloads every reader album it finds.
func (r *Runner) RunAuto(ctx context.Context, startURL string, opts discover.CrawlOptions) ([]downloader.AlbumResult, error) {
	var results []downloader.AlbumResult

	crawler := discover.NewCrawler(r.cfg)
	pages, err := crawler.Run(startURL, opts, func(album models.AlbumRef) bool {
		if ctx.Err() != nil {
			return false
		}

		readers := r.resolveReaders(ctx, album)
		if len(readers) == 0 {
			log.Printf("[Pipeline] no reader links for album %s, downloading post page directly", album.ID)
			results = append(results, r.manager.ProcessAlbum(ctx, album))
			return true
		}

		for _, readerURL := range readers {
			if ctx.Err() != nil {
				return false
			}
			results = append(results, r.manager.ProcessAlbum(ctx, models.AlbumFromURL(readerURL)))
		}
		return true
	})

	logRunSummary(results)
	if err != nil {
		return results, fmt.Errorf("crawl aborted after %d pages: %w", pages, err)
	}
	log.Printf("[Pipeline] crawl finished: %d listing pages, %d albums", pages, len(results))
	return results, nil
}

// resolveReaders fetches an album's post page and extracts its reader
// URLs. Fetch failures degrade to an empty list so the caller can fall
// back to the post page itself. A configured base URL overrides the post
// page's final URL when resolving relative links, for mirrors that serve
// content from a different host than the canonical reader.
func (r *Runner) resolveReaders(ctx context.Context, album models.AlbumRef) []string {
	page, err := r.client.FetchPage(ctx, album.SourceURL)
	if err != nil {
		log.Printf("[Pipeline] failed to fetch post page for album %s: %v", album.ID, err)
		return nil
	}

	base := page.FinalURL
	if r.cfg.BaseURL != "" {
		base = r.cfg.BaseURL
	}
	return discover.ReaderLinks(string(page.Body), base)
}

func logRunSummary(results []downloader.AlbumResult) {
	if len(results) == 0 {
		return
	}

	var agg models.Summary
	complete, failed := 0, 0
	for _, result := range results {
		agg.Add(result.Stats)
		switch result.State {
		case models.StateComplete:
			complete++
		case models.StateFailed:
			failed++
		}
	}

	log.Printf("[Pipeline] run summary: %d albums (%d complete, %d failed), %d downloaded, %d failed, %d skipped",
		len(results), complete, failed, agg.Success, agg.Failed, agg.Skipped)
}
