package extract

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Filename patterns that mark icons, logos and other page chrome.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\.ico$`),
	regexp.MustCompile(`blank\.gif`),
	regexp.MustCompile(`touch-icon`),
	regexp.MustCompile(`favicon`),
	regexp.MustCompile(`icon\.png`),
	regexp.MustCompile(`logo\.`),
}

// Exact filenames that are always page chrome on the supported sites.
var skipFilenames = []string{
	"ipad-landscape.png",
	"ipad-portrait.png",
	"iphone.png",
	"sunny.png",
	"sunny_1.png",
}

// ShouldSkip reports whether a candidate URL points at an icon, logo or
// placeholder rather than album content. Every extraction strategy runs its
// output through this filter.
func ShouldSkip(rawURL string) bool {
	lower := strings.ToLower(rawURL)

	if strings.HasSuffix(lower, ".ico") || strings.Contains(lower, ".ico?") {
		return true
	}

	for _, pattern := range skipPatterns {
		if pattern.MatchString(lower) {
			return true
		}
	}

	var pathName string
	if parsed, err := url.Parse(rawURL); err == nil {
		pathName = strings.ToLower(path.Base(parsed.Path))
	}

	for _, name := range skipFilenames {
		if pathName == name {
			return true
		}
		if strings.Contains(lower, "/"+name) || strings.Contains(lower, `\`+name) {
			return true
		}
	}

	return false
}
