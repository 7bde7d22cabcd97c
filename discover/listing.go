package discover

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"gazo/extract"
	"gazo/models"

	"github.com/PuerkitoBio/goquery"
)

// ListingAlbums extracts album entry points from a listing page: anchors
// whose href targets the album endpoint, keyed by the ID query parameter.
// One link per ID, sorted numerically by ID.
func ListingAlbums(body, baseURL string) []models.AlbumRef {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var albums []models.AlbumRef

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" || !strings.Contains(strings.ToLower(href), "post.php") {
			return
		}

		absolute := resolve(baseURL, href)
		parsed, err := url.Parse(absolute)
		if err != nil {
			return
		}

		id := parsed.Query().Get("ID")
		if id == "" {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}

		albums = append(albums, models.AlbumRef{ID: id, SourceURL: absolute})
	})

	sort.SliceStable(albums, func(i, j int) bool {
		return numericID(albums[i].ID) < numericID(albums[j].ID)
	})

	return albums
}

// NextListingPage finds the URL of the next listing page, or "" when the
// listing is exhausted. Three signals, in order: an explicit "next" anchor
// pointing at the listing endpoint, an anchor whose page parameter equals
// current+1, and finally synthesizing current+1 onto the current URL.
func NextListingPage(body, currentURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}

	nextKeywords := []string{"下一页", "next", ">", "»", "下页"}

	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(strings.ToLower(href), "dnew.php") {
			return true
		}
		text := strings.ToLower(strings.TrimSpace(s.Text()))
		for _, kw := range nextKeywords {
			if strings.Contains(text, strings.ToLower(kw)) {
				found = resolve(currentURL, href)
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	current := pageParam(currentURL)
	next := current + 1

	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if !strings.Contains(strings.ToLower(href), "dnew.php") {
			return true
		}
		absolute := resolve(currentURL, href)
		if pageParam(absolute) == next {
			found = absolute
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	return extract.SetPageParam(currentURL, next)
}

func pageParam(rawURL string) int {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return 1
	}
	n, err := strconv.Atoi(parsed.Query().Get("page"))
	if err != nil {
		return 1
	}
	return n
}

func numericID(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}

func resolve(base, ref string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return baseURL.ResolveReference(refURL).String()
}
