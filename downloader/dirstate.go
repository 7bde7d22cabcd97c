package downloader

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Canonical naming: 3-digit zero-padded index plus a recognized image
// extension, assigned at finalization.
var canonicalNameRe = regexp.MustCompile(`(?i)^(\d{3})\.(jpg|jpeg|png|gif|webp|bmp|svg)$`)

var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".webp": {}, ".bmp": {}, ".svg": {},
}

// DirState is the re-derived on-disk view of one album directory.
type DirState struct {
	Exists bool

	// CanonicalIndices holds the numeric stems of files already in
	// canonical naming.
	CanonicalIndices map[int]struct{}

	// PendingImages are image files not yet in canonical naming, each
	// counting as exactly one unit toward completeness.
	PendingImages []string
}

// ScanDir derives the directory state fresh from disk. Never cached.
func ScanDir(dir string) (DirState, error) {
	state := DirState{CanonicalIndices: make(map[int]struct{})}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return state, nil
	}
	if err != nil {
		return state, err
	}
	state.Exists = true

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		if m := canonicalNameRe.FindStringSubmatch(name); m != nil {
			n, convErr := strconv.Atoi(m[1])
			if convErr == nil {
				state.CanonicalIndices[n] = struct{}{}
				continue
			}
		}

		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := imageExtensions[ext]; ok {
			state.PendingImages = append(state.PendingImages, name)
		}
	}

	return state, nil
}

// Units is the number of distinct downloaded images the directory accounts
// for: distinct canonical indices plus one per un-renamed image file.
func (s DirState) Units() int {
	return len(s.CanonicalIndices) + len(s.PendingImages)
}

// MaxIndex is the highest canonical index present, 0 when none.
func (s DirState) MaxIndex() int {
	maxIdx := 0
	for n := range s.CanonicalIndices {
		if n > maxIdx {
			maxIdx = n
		}
	}
	return maxIdx
}

// MissingBelowMax counts gaps in the canonical numbering below the highest
// index. Used only by the degraded completeness estimate.
func (s DirState) MissingBelowMax() int {
	missing := 0
	for n := 1; n < s.MaxIndex(); n++ {
		if _, ok := s.CanonicalIndices[n]; !ok {
			missing++
		}
	}
	return missing
}

// Finalized reports whether the directory already carries gap-free
// canonical naming with nothing left to rename. Terminal state, checked
// without any network. A numbering gap means a previous run died mid-way,
// so the album must go back through the download path.
func (s DirState) Finalized() bool {
	return len(s.CanonicalIndices) > 0 && len(s.PendingImages) == 0 && s.MissingBelowMax() == 0
}
