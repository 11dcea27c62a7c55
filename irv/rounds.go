// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

// firstChoiceCounts counts the ballots whose first live ranking names each
// remaining candidate. Exhausted ballots count for nobody.
func firstChoiceCounts(remaining map[string]bool, live [][]string) map[string]int {
	counts := make(map[string]int, len(remaining))
	for id := range remaining {
		counts[id] = 0
	}
	for _, ranking := range live {
		if len(ranking) == 0 {
			continue
		}
		if remaining[ranking[0]] {
			counts[ranking[0]]++
		}
	}
	return counts
}

// weightedScores sums n - p + 1 for every live ranking at position p, where
// n is the number of remaining candidates.
func weightedScores(remaining map[string]bool, live [][]string) map[string]int {
	anchor := len(remaining)
	scores := make(map[string]int, anchor)
	for id := range remaining {
		scores[id] = 0
	}
	for _, ranking := range live {
		for pos, id := range ranking {
			if remaining[id] {
				scores[id] += anchor - (pos + 1) + 1
			}
		}
	}
	return scores
}

// transfer tallies where the ballots topped by eliminated go next. It must
// run before eliminate, while those ballots still lead with eliminated.
func transfer(eliminated string, remaining map[string]bool, live [][]string) map[string]int {
	moved := make(map[string]int)
	for _, ranking := range live {
		if len(ranking) == 0 || ranking[0] != eliminated {
			continue
		}
		for _, next := range ranking[1:] {
			if next != eliminated && remaining[next] {
				moved[next]++
				break
			}
		}
	}
	return moved
}

// eliminate strips the candidate from every live ranking, keeping the
// relative order of the rest, and returns how many ballots it exhausted.
func eliminate(candidateID string, live [][]string) int {
	exhausted := 0
	for i, ranking := range live {
		if len(ranking) == 0 {
			continue
		}
		kept := ranking[:0]
		for _, id := range ranking {
			if id != candidateID {
				kept = append(kept, id)
			}
		}
		live[i] = kept
		if len(kept) == 0 {
			exhausted++
		}
	}
	return exhausted
}
