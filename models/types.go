package models

import (
	"net/url"
	"strings"
)

// AlbumRef identifies one source album. The ID is assigned by the remote
// site (usually the ID query parameter) and doubles as the on-disk
// directory name, so it must be stable across runs.
type AlbumRef struct {
	ID        string `json:"id"`
	SourceURL string `json:"source_url"`
}

// ImageCandidate is a single discovered image reference.
// Order is only meaningful when Ranked is true; Strategy records which
// extraction strategy produced the candidate and is used for nothing but
// deduplication tie-breaking.
type ImageCandidate struct {
	URL      string
	Order    int
	Ranked   bool
	Strategy int
}

// DownloadRecord tracks one image that is present on disk (freshly
// downloaded or found from a previous run) under its positional name.
// Consumed by the finalizer.
type DownloadRecord struct {
	Index     int
	TempPath  string
	SourceURL string
	Ext       string
}

// AlbumState is the controller's view of one album.
type AlbumState int

const (
	StateNotStarted AlbumState = iota
	StatePartial
	StateComplete
	StateFailed
)

func (s AlbumState) String() string {
	switch s {
	case StateNotStarted:
		return "not started"
	case StatePartial:
		return "partially complete"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Summary aggregates per-image outcomes for one album or a whole run.
type Summary struct {
	Success int
	Failed  int
	Skipped int
}

// Add merges another summary into this one.
func (s *Summary) Add(other Summary) {
	s.Success += other.Success
	s.Failed += other.Failed
	s.Skipped += other.Skipped
}

// AlbumFromURL derives an AlbumRef for a raw album URL. The ID query
// parameter wins when present; otherwise the URL path is flattened into a
// directory-safe identifier.
func AlbumFromURL(rawURL string) AlbumRef {
	ref := AlbumRef{SourceURL: rawURL}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		ref.ID = "images"
		return ref
	}

	if id := parsed.Query().Get("ID"); id != "" {
		ref.ID = id
		return ref
	}

	part := strings.Trim(parsed.Path, "/")
	part = strings.ReplaceAll(part, "/", "_")
	if part == "" {
		part = "images"
	}
	ref.ID = part
	return ref
}
