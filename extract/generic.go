package extract

import (
	"regexp"
	"strconv"
	"strings"

	"gazo/models"

	"github.com/PuerkitoBio/goquery"
)

// Generic strategies: none is authoritative, all are applied and unioned
// when the structured strategies come up empty. They carry no reliable
// order key, so candidates stay in discovery order.

var scriptArrayRes = []*regexp.Regexp{
	regexp.MustCompile(`(?is)imageList\s*[:=]\s*\[(.*?)\]`),
	regexp.MustCompile(`(?is)images\s*[:=]\s*\[(.*?)\]`),
	regexp.MustCompile(`(?is)imgList\s*[:=]\s*\[(.*?)\]`),
	regexp.MustCompile(`(?is)var\s+imgs\s*=\s*\[(.*?)\]`),
	regexp.MustCompile(`(?is)imageArray\s*[:=]\s*\[(.*?)\]`),
	regexp.MustCompile(`(?is)picList\s*[:=]\s*\[(.*?)\]`),
}

var quotedImageURLRe = regexp.MustCompile(`(?i)["']([^"']+\.(?:jpg|jpeg|png|gif|webp|bmp|svg))["']`)

// Known image CDN shapes, precise first, broad as a fallback.
var (
	knownHostRe      = regexp.MustCompile(`(?i)https?://img\.cimg-lux\.top/comic/thumbnail/\d+/d-\d+/[a-zA-Z0-9_]+_w\d+\.(?:jpg|jpeg|png|gif|webp|bmp)`)
	knownHostBroadRe = regexp.MustCompile(`(?i)https?://img\.cimg-lux\.top/[^\s<>"']+\.(?:jpg|jpeg|png|gif|webp|bmp|svg)`)
)

// imgTagCandidates collects every img src on the page. A data-sort
// attribute, when present and numeric, supplies an order key.
func imgTagCandidates(body, pageURL string) []models.ImageCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var cands []models.ImageCandidate
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}

		absolute := resolveURL(pageURL, src)
		if ShouldSkip(absolute) {
			return
		}

		cand := models.ImageCandidate{URL: absolute, Strategy: strategyImgTag}
		if sortAttr, ok := s.Attr("data-sort"); ok {
			if n, err := strconv.Atoi(sortAttr); err == nil {
				cand.Order = n
				cand.Ranked = true
			}
		}
		cands = append(cands, cand)
	})

	return cands
}

// backgroundCandidates collects inline background-image declarations.
func backgroundCandidates(body, pageURL string) []models.ImageCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var cands []models.ImageCandidate
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, m := range bgImageRe.FindAllStringSubmatch(style, -1) {
			absolute := resolveURL(pageURL, m[1])
			if ShouldSkip(absolute) {
				continue
			}
			cands = append(cands, models.ImageCandidate{URL: absolute, Strategy: strategyBackground})
		}
	})

	return cands
}

// lazyAttrCandidates collects lazy-load data attributes. data-srcset style
// values may hold several comma separated entries; only the first counts.
func lazyAttrCandidates(body, pageURL string) []models.ImageCandidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var cands []models.ImageCandidate
	attrs := []string{"data-src", "data-url", "data-image", "data-img", "data-pic", "data-srcset"}
	for _, attr := range attrs {
		doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
			src, _ := s.Attr(attr)
			if src == "" {
				return
			}
			if strings.Contains(src, ",") {
				fields := strings.Fields(strings.Split(src, ",")[0])
				if len(fields) == 0 {
					return
				}
				src = fields[0]
			}

			absolute := resolveURL(pageURL, src)
			if ShouldSkip(absolute) {
				return
			}
			cands = append(cands, models.ImageCandidate{URL: absolute, Strategy: strategyLazyAttr})
		})
	}

	return cands
}

// scriptArrayCandidates scans inline script array literals for image-looking
// string literals.
func scriptArrayCandidates(body, pageURL string) []models.ImageCandidate {
	var cands []models.ImageCandidate
	for _, re := range scriptArrayRes {
		for _, arrayMatch := range re.FindAllStringSubmatch(body, -1) {
			for _, urlMatch := range quotedImageURLRe.FindAllStringSubmatch(arrayMatch[1], -1) {
				absolute := resolveURL(pageURL, urlMatch[1])
				if ShouldSkip(absolute) {
					continue
				}
				cands = append(cands, models.ImageCandidate{URL: absolute, Strategy: strategyScriptArray})
			}
		}
	}
	return cands
}

// knownHostCandidates scans the raw page text for the image CDN URL shape.
// The broad pattern only runs when the precise one matches nothing.
func knownHostCandidates(body string) []models.ImageCandidate {
	matches := knownHostRe.FindAllString(body, -1)
	if len(matches) == 0 {
		matches = knownHostBroadRe.FindAllString(body, -1)
	}

	var cands []models.ImageCandidate
	for _, m := range matches {
		if ShouldSkip(m) {
			continue
		}
		cands = append(cands, models.ImageCandidate{URL: m, Strategy: strategyKnownHost})
	}
	return cands
}
