package extract

import (
	"net/url"
	"regexp"
	"strconv"
)

// Reader pages encode paging state in script variables; some layouts only
// expose a textual "load more" affordance instead.
var (
	totalPagesRe  = regexp.MustCompile(`(?i)(?:totalPages|pageCount)\s*[:=]\s*(\d+)`)
	currentPageRe = regexp.MustCompile(`(?i)currentPage\s*[:=]\s*(\d+)`)
	loadMoreRe    = regexp.MustCompile(`(?i)加载更多|下一页|更多图片|load more`)
)

// NextPage decides whether the album has more image pages and returns the
// next page's URL, or "" when there is no such signal. Pure with respect to
// its inputs; it never fetches.
//
// The explicit page counter wins: when both total and current are present
// and current < total, the next page is current+1. In every other case the
// "load more" text is a heuristic fallback that bumps the page query
// parameter, defaulting to 2 when the current URL carries none.
func NextPage(body, pageURL string) string {
	current := 1
	total := 0

	if m := currentPageRe.FindStringSubmatch(body); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			current = n
		}
	}
	if m := totalPagesRe.FindStringSubmatch(body); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			total = n
		}
	}

	if total > 0 && current < total {
		return SetPageParam(pageURL, current+1)
	}

	if loadMoreRe.MatchString(body) {
		next := 2
		if parsed, err := url.Parse(pageURL); err == nil {
			if n, err := strconv.Atoi(parsed.Query().Get("page")); err == nil {
				next = n + 1
			}
		}
		return SetPageParam(pageURL, next)
	}

	return ""
}

// SetPageParam returns the URL with its page query parameter set to n,
// adding the parameter when absent.
func SetPageParam(pageURL string, n int) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return pageURL
	}

	query := parsed.Query()
	query.Set("page", strconv.Itoa(n))
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
