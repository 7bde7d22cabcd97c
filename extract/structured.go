package extract

import (
	"encoding/json"
	"fmt"
	"log"
	"regexp"

	"gazo/models"
)

// The reader pages embed the authoritative image order as a script variable:
// a base path plus a JSON array of per-image records. Array position is the
// display order, so the index is the order key.
var (
	imageBaseRe = regexp.MustCompile(`var HTTP_IMAGE = "([^"]+)";`)
	imageListRe = regexp.MustCompile(`(?s)Original_Image_List\s*=\s*(\[.*?\]);`)

	// Field-by-field fallback when the array is not valid JSON.
	imageEntryRe = regexp.MustCompile(`\{"sort":"(\d+)","comic_id":"(\d+)","ext_path_folder":"([^"]*)","new_filename":"([^"]+)","extension":"([^"]+)","version":"([^"]+)"\}`)
)

type imageListEntry struct {
	Sort        string `json:"sort"`
	NewFilename string `json:"new_filename"`
	Extension   string `json:"extension"`
}

// structuredList extracts candidates from the embedded image list. URL is
// built as base + filename + "_w900." + extension; order key is the array
// index, 1-based. Returns nil when the page carries no such list.
func structuredList(body, pageURL string) []models.ImageCandidate {
	baseMatch := imageBaseRe.FindStringSubmatch(body)
	if baseMatch == nil {
		return nil
	}
	base := baseMatch[1]

	listMatch := imageListRe.FindStringSubmatch(body)
	if listMatch == nil {
		return nil
	}

	var entries []imageListEntry
	if err := json.Unmarshal([]byte(listMatch[1]), &entries); err != nil {
		log.Printf("[Locate] image list is not valid JSON, trying field extraction: %v", err)
		entries = entriesFromRegexp(listMatch[1])
	}

	var cands []models.ImageCandidate
	for idx, entry := range entries {
		if entry.NewFilename == "" {
			continue
		}
		ext := entry.Extension
		if ext == "" {
			ext = "jpg"
		}

		imageURL := fmt.Sprintf("%s%s_w900.%s", base, entry.NewFilename, ext)
		if ShouldSkip(imageURL) {
			continue
		}

		cands = append(cands, models.ImageCandidate{
			URL:      imageURL,
			Order:    idx + 1,
			Ranked:   true,
			Strategy: strategyStructuredList,
		})
	}

	return cands
}

func entriesFromRegexp(list string) []imageListEntry {
	matches := imageEntryRe.FindAllStringSubmatch(list, -1)

	var entries []imageListEntry
	for _, m := range matches {
		entries = append(entries, imageListEntry{
			Sort:        m[1],
			NewFilename: m[4],
			Extension:   m[5],
		})
	}
	return entries
}
