package downloader

import (
	"regexp"
	"strings"
)

// The remote host fronts album pages with an anti-bot layer that serves
// challenge interstitials instead of content. Detecting those early turns a
// confusing "extraction found nothing" into a clear log line, and lets the
// retry rounds treat the page as transient.

// ChallengeInfo describes why a response looks like a bot challenge.
type ChallengeInfo struct {
	StatusCode int
	Indicators []string
}

// Ordered so repeated detections of the same page log identically.
var challengeBodyMarkers = []struct {
	marker string
	reason string
}{
	{"cf-browser-verification", "JS browser verification challenge"},
	{"challenge-form", "challenge form"},
	{"/cdn-cgi/challenge-platform/", "challenge platform script"},
	{"cf-chl-", "challenge token"},
	{"verify you are human", "human verification prompt"},
}

var metaRedirectRe = regexp.MustCompile(`(?i)<meta[^>]+url=([^">]+)`)

// DetectChallenge inspects a response for anti-bot challenge markers.
// Returns nil when the response looks like real content.
func DetectChallenge(statusCode int, body []byte) *ChallengeInfo {
	var indicators []string

	switch statusCode {
	case 403:
		indicators = append(indicators, "403 Forbidden")
	case 503:
		indicators = append(indicators, "503 Service Unavailable")
	case 429:
		indicators = append(indicators, "429 rate limited")
	}

	lower := strings.ToLower(string(body))
	for _, m := range challengeBodyMarkers {
		if strings.Contains(lower, m.marker) {
			indicators = append(indicators, m.reason)
		}
	}

	if len(indicators) > 0 && metaRedirectRe.Match(body) {
		indicators = append(indicators, "meta refresh redirect")
	}

	if len(indicators) == 0 {
		return nil
	}
	return &ChallengeInfo{StatusCode: statusCode, Indicators: indicators}
}
