package extract

import (
	"sort"

	"gazo/models"
)

// Reconcile merges the raw output of one or more strategies into the final
// candidate order. Rules:
//
//   - unique by URL; when the same URL shows up more than once, the ranked
//     instance beats the unranked one, and the smaller order key beats the
//     larger one
//   - if any candidate is ranked, all ranked candidates sort ascending by
//     order key and unranked candidates follow in discovery order
//   - if nothing is ranked, discovery order is preserved unchanged
//
// The result is deterministic for a given input: re-running it over the same
// page body always yields the same sequence.
func Reconcile(candidates []models.ImageCandidate) []models.ImageCandidate {
	type slot struct {
		cand  models.ImageCandidate
		first int // index of first discovery, keeps dedup stable
	}

	byURL := make(map[string]int, len(candidates))
	var slots []slot

	for i, cand := range candidates {
		idx, seen := byURL[cand.URL]
		if !seen {
			byURL[cand.URL] = len(slots)
			slots = append(slots, slot{cand: cand, first: i})
			continue
		}

		existing := slots[idx].cand
		if cand.Ranked && (!existing.Ranked || cand.Order < existing.Order) {
			slots[idx].cand = cand
		}
	}

	anyRanked := false
	for _, s := range slots {
		if s.cand.Ranked {
			anyRanked = true
			break
		}
	}

	if anyRanked {
		sort.SliceStable(slots, func(i, j int) bool {
			a, b := slots[i].cand, slots[j].cand
			if a.Ranked != b.Ranked {
				return a.Ranked
			}
			if a.Ranked {
				if a.Order != b.Order {
					return a.Order < b.Order
				}
			}
			return slots[i].first < slots[j].first
		})
	}

	out := make([]models.ImageCandidate, len(slots))
	for i, s := range slots {
		out[i] = s.cand
	}
	return out
}
