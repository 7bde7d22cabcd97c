package discover

import (
	"fmt"
	"log"
	"time"

	"gazo/config"
	"gazo/extract"
	"gazo/models"

	"github.com/gocolly/colly"
)

const crawlUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// CrawlOptions bound a listing walk.
type CrawlOptions struct {
	StartPage int // first listing page, 1 when zero
	EndPage   int // last listing page inclusive, 0 = until exhausted
	MaxPages  int // cap on pages processed, 0 = unlimited
	MaxAlbums int // cap on albums per page, 0 = all
}

// Crawler walks listing pages and hands discovered albums to a callback.
type Crawler struct {
	cfg       config.Config
	collector *colly.Collector

	// last response captured by the shared OnResponse callback
	lastBody     []byte
	lastFinalURL string
}

// NewCrawler builds a listing crawler honoring the configured page delay.
func NewCrawler(cfg config.Config) *Crawler {
	collector := colly.NewCollector(
		colly.UserAgent(crawlUserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.DownloadTimeout)
	_ = collector.Limit(&colly.LimitRule{DomainGlob: "*", Delay: cfg.Delay})

	c := &Crawler{cfg: cfg, collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		c.lastBody = r.Body
		c.lastFinalURL = r.Request.URL.String()
	})

	return c
}

// Run walks listing pages starting at startURL, calling visit for every
// discovered album in ID order. visit returning false stops the crawl.
// Returns the number of listing pages processed.
func (c *Crawler) Run(startURL string, opts CrawlOptions, visit func(models.AlbumRef) bool) (int, error) {
	currentPage := opts.StartPage
	if currentPage < 1 {
		currentPage = 1
	}

	currentURL := startURL
	if currentPage > 1 {
		currentURL = extract.SetPageParam(startURL, currentPage)
	}

	pagesProcessed := 0

	for {
		if opts.EndPage > 0 && currentPage > opts.EndPage {
			log.Printf("[Crawl] reached end page %d, stopping", opts.EndPage)
			break
		}
		if opts.MaxPages > 0 && pagesProcessed >= opts.MaxPages {
			log.Printf("[Crawl] reached page limit %d, stopping", opts.MaxPages)
			break
		}

		body, finalURL, err := c.fetchListing(currentURL)
		if err != nil {
			return pagesProcessed, fmt.Errorf("failed to fetch listing page %d: %w", currentPage, err)
		}

		albums := ListingAlbums(string(body), finalURL)
		if len(albums) == 0 {
			log.Printf("[Crawl] no album links on page %d, assuming last page", currentPage)
			break
		}
		log.Printf("[Crawl] page %d: found %d album links", currentPage, len(albums))

		if opts.MaxAlbums > 0 && len(albums) > opts.MaxAlbums {
			albums = albums[:opts.MaxAlbums]
		}

		for _, album := range albums {
			if !visit(album) {
				return pagesProcessed + 1, nil
			}
		}

		pagesProcessed++

		nextURL := NextListingPage(string(body), finalURL)
		if nextURL == "" {
			log.Printf("[Crawl] no next page link, listing exhausted")
			break
		}

		currentURL = nextURL
		currentPage++
	}

	return pagesProcessed, nil
}

// fetchListing grabs one listing page through the collector, retrying on
// transient failures with a growing pause.
func (c *Crawler) fetchListing(pageURL string) ([]byte, string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * c.cfg.RetryBaseDelay
			log.Printf("[Crawl] retry %d/%d for listing page after %v", attempt, c.cfg.MaxRetries, wait)
			time.Sleep(wait)
		}

		c.lastBody = nil
		if err := c.collector.Visit(pageURL); err != nil {
			lastErr = err
			continue
		}
		if len(c.lastBody) > 0 {
			return c.lastBody, c.lastFinalURL, nil
		}
		lastErr = fmt.Errorf("empty response body")
	}

	return nil, "", lastErr
}
