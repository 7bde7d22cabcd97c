package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gazo/models"

	"github.com/PuerkitoBio/goquery"
)

// Some page layouts wrap the album in a dedicated container whose children
// carry their display position in an identifier attribute.
const containerSelector = "#show_image_area, [class*='show_image_area']"

// maxContainerImages bounds the indexed-child scan.
const maxContainerImages = 100

var containerChildRe = regexp.MustCompile(`(?i)read_online_image_(\d+)`)

var bgImageRe = regexp.MustCompile(`(?i)background-image\s*:\s*url\(["']?([^"'()]+)["']?\)`)

// anchoredContainer extracts candidates from the designated image area.
// The encoded child index is the order key. Returns nil when the container
// or its indexed children are absent.
func anchoredContainer(body, pageURL string) []models.ImageCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	area := doc.Find(containerSelector).First()
	if area.Length() == 0 {
		return nil
	}

	type indexed struct {
		num int
		sel *goquery.Selection
	}
	var found []indexed

	collect := func(attr string) {
		area.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			if len(found) >= maxContainerImages {
				return
			}
			val, _ := s.Attr(attr)
			m := containerChildRe.FindStringSubmatch(val)
			if m == nil {
				return
			}
			num, err := strconv.Atoi(m[1])
			if err != nil {
				return
			}
			found = append(found, indexed{num: num, sel: s})
		})
	}

	collect("id")
	if len(found) == 0 {
		collect("data-image-id")
	}
	if len(found) == 0 {
		return nil
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].num < found[j].num })

	var cands []models.ImageCandidate
	for _, item := range found {
		ref := imageRefFromElement(item.sel)
		if ref == "" {
			continue
		}

		absolute := resolveURL(pageURL, ref)
		if ShouldSkip(absolute) {
			continue
		}

		cands = append(cands, models.ImageCandidate{
			URL:      absolute,
			Order:    item.num,
			Ranked:   true,
			Strategy: strategyContainer,
		})
	}

	return cands
}

// imageRefFromElement digs the image reference out of one indexed child:
// src-style attributes on an img element, a nested img, an inline
// background-image declaration, or a data attribute, in that order.
func imageRefFromElement(s *goquery.Selection) string {
	srcAttrs := []string{"src", "data-src", "data-url"}

	if goquery.NodeName(s) == "img" {
		for _, attr := range srcAttrs {
			if val, ok := s.Attr(attr); ok && val != "" {
				return val
			}
		}
		return ""
	}

	img := s.Find("img").First()
	if img.Length() > 0 {
		for _, attr := range srcAttrs {
			if val, ok := img.Attr(attr); ok && val != "" {
				return val
			}
		}
	}

	if style, ok := s.Attr("style"); ok {
		if m := bgImageRe.FindStringSubmatch(style); m != nil {
			return m[1]
		}
	}

	for _, attr := range []string{"data-src", "data-url", "data-image"} {
		if val, ok := s.Attr(attr); ok && val != "" {
			return val
		}
	}

	return ""
}
