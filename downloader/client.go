package downloader

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/publicsuffix"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client is the HTTP collaborator shared by the whole pipeline: one cookie
// jar, browser-shaped headers, bounded request timeouts and typed errors.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	verbose    bool
}

// Page is a fetched document body after redirects and decompression.
type Page struct {
	Body        []byte
	FinalURL    string
	ContentType string
	Status      int
}

// NewClient builds the shared HTTP client. The cookie jar uses public
// suffix rules so session cookies survive cross-subdomain redirects.
func NewClient(timeout time.Duration, verbose bool) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		httpClient: &http.Client{Jar: jar},
		timeout:    timeout,
		verbose:    verbose,
	}, nil
}

// FetchPage fetches a document, following redirects, and returns the
// decompressed body. Non-2xx statuses come back as *HTTPError, transport
// failures as *NetworkError.
func (c *Client) FetchPage(ctx context.Context, targetURL string) (*Page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		if info := DetectChallenge(resp.StatusCode, body); info != nil {
			log.Printf("[Client] anti-bot challenge at %s: %s", targetURL, strings.Join(info.Indicators, ", "))
		}
		return nil, &HTTPError{URL: targetURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: targetURL, Err: err}
	}

	decompressed, wasCompressed, err := decompressBody(body, resp.Header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress response: %w", err)
	}
	if wasCompressed && c.verbose {
		log.Printf("[Client] decompressed response: %d → %d bytes", len(body), len(decompressed))
	}

	if info := DetectChallenge(resp.StatusCode, decompressed); info != nil {
		log.Printf("[Client] page at %s looks like an anti-bot challenge: %s", targetURL, strings.Join(info.Indicators, ", "))
	}

	return &Page{
		Body:        decompressed,
		FinalURL:    resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Status:      resp.StatusCode,
	}, nil
}

// Get issues a streaming GET for image bodies. The caller owns the response
// body; cancel releases the per-request timeout and must be called after
// the body is drained.
func (c *Client) Get(ctx context.Context, targetURL string) (*http.Response, context.CancelFunc, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, targetURL, nil)
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.applyHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, nil, &NetworkError{URL: targetURL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		return nil, nil, &HTTPError{URL: targetURL, Status: resp.StatusCode}
	}

	return resp, cancel, nil
}

func (c *Client) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")
}

// decompressBody handles gzip and Brotli bodies. Gzip is detected by magic
// bytes; Brotli has none, so the Content-Encoding header plus a first-byte
// heuristic decides.
func decompressBody(body []byte, contentEncoding string) ([]byte, bool, error) {
	if len(body) == 0 {
		return body, false, nil
	}

	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, false, err
		}
		return decompressed, true, nil
	}

	if contentEncoding == "br" || (body[0] >= 0x80 && body[0] <= 0x8f) {
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			// Not Brotli after all, pass through untouched.
			return body, false, nil
		}
		return decompressed, true, nil
	}

	return body, false, nil
}
