package extract

import (
	"log"
	"net/url"

	"gazo/models"
)

// Strategy identifiers carried on candidates, dedup bookkeeping only.
const (
	strategyStructuredList = iota + 1
	strategyContainer
	strategyImgTag
	strategyBackground
	strategyLazyAttr
	strategyScriptArray
	strategyKnownHost
)

// Locate extracts the ordered image candidates for one album page.
//
// Strategies run in precedence order. The structured image list embedded in
// script text is the most trustworthy signal and wins outright when it
// yields anything; the anchored container is next; only when both come up
// empty are the generic markup strategies applied and unioned. Malformed
// input never panics or errors, it just produces an empty sequence.
func Locate(body, pageURL string) []models.ImageCandidate {
	if cands := structuredList(body, pageURL); len(cands) > 0 {
		log.Printf("[Locate] structured list yielded %d candidates", len(cands))
		return Reconcile(cands)
	}

	if cands := anchoredContainer(body, pageURL); len(cands) > 0 {
		log.Printf("[Locate] image area container yielded %d candidates", len(cands))
		return Reconcile(cands)
	}

	var all []models.ImageCandidate
	all = append(all, imgTagCandidates(body, pageURL)...)
	all = append(all, backgroundCandidates(body, pageURL)...)
	all = append(all, lazyAttrCandidates(body, pageURL)...)
	all = append(all, scriptArrayCandidates(body, pageURL)...)
	all = append(all, knownHostCandidates(body)...)

	return Reconcile(all)
}

// resolveURL makes a candidate absolute against the page URL. Unparseable
// references are returned as-is; the skip filter and the download engine
// deal with the fallout.
func resolveURL(base, ref string) string {
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
