package discover

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Reader links come in quoted and bare forms, with and without a host_id
// parameter. The bare scan must not pick up absolute URLs, those are ads
// pointing at mirror hosts.
var (
	readerQuotedRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)['"]readOnline2\.php\?ID=(\d+)&host_id=(\d+)[^'"]*['"]`),
		regexp.MustCompile(`(?i)['"]readOnline2\.php\?ID=(\d+)[^'"]*['"]`),
	}
	readerBareRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)readOnline2\.php\?ID=(\d+)&host_id=(\d+)`),
		regexp.MustCompile(`(?i)readOnline2\.php\?ID=(\d+)`),
	}
	readerIDRe = regexp.MustCompile(`ID=(\d+)`)
)

// ReaderLinks extracts reader-page links from an album page and resolves
// them against baseURL. Per album ID the variant carrying host_id wins;
// results are sorted numerically by ID.
func ReaderLinks(body, baseURL string) []string {
	links := make(map[string]struct{})

	for _, re := range readerQuotedRes {
		for _, m := range re.FindAllStringSubmatch(body, -1) {
			links[readerLinkFromMatch(m)] = struct{}{}
		}
	}

	for _, re := range readerBareRes {
		for _, loc := range re.FindAllStringSubmatchIndex(body, -1) {
			// Reject matches that are the tail of an absolute URL.
			start := loc[0]
			prefix := body[max(0, start-20):start]
			if strings.Contains(strings.ToLower(prefix), "http://") ||
				strings.Contains(strings.ToLower(prefix), "https://") {
				continue
			}

			m := matchGroups(body, loc)
			links[readerLinkFromMatch(m)] = struct{}{}
		}
	}

	// Per ID, prefer the host_id variant.
	type variant struct {
		link      string
		hasHostID bool
	}
	byID := make(map[string]variant)
	for link := range links {
		if link == "" {
			continue
		}
		idMatch := readerIDRe.FindStringSubmatch(link)
		if idMatch == nil {
			continue
		}
		id := idMatch[1]
		hasHostID := strings.Contains(link, "host_id")
		if existing, ok := byID[id]; !ok || (hasHostID && !existing.hasHostID) {
			byID[id] = variant{link: link, hasHostID: hasHostID}
		}
	}

	var ids []string
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return numericID(ids[i]) < numericID(ids[j]) })

	var urls []string
	for _, id := range ids {
		urls = append(urls, resolve(baseURL, byID[id].link))
	}
	return urls
}

func readerLinkFromMatch(m []string) string {
	switch {
	case len(m) >= 3 && m[2] != "":
		return fmt.Sprintf("readOnline2.php?ID=%s&host_id=%s", m[1], m[2])
	case len(m) >= 2 && m[1] != "":
		return "readOnline2.php?ID=" + m[1]
	}
	return ""
}

// matchGroups turns FindAllStringSubmatchIndex output into the group slice
// FindStringSubmatch would have produced.
func matchGroups(s string, loc []int) []string {
	groups := make([]string, 0, len(loc)/2)
	for i := 0; i < len(loc); i += 2 {
		if loc[i] < 0 {
			groups = append(groups, "")
			continue
		}
		groups = append(groups, s[loc[i]:loc[i+1]])
	}
	return groups
}
