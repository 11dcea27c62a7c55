// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

// FilterViable keeps the candidates that are some ballot's first choice,
// in input order. Rankings of every other candidate are removed from the
// ballots (original ranks are kept) and ballots left empty are dropped.
func FilterViable(candidates []Candidate, ballots []Ballot) ([]Candidate, []Ballot) {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.ID] = true
	}

	viable := make(map[string]bool)
	for _, b := range ballots {
		if top, ok := firstKnown(b, known); ok {
			viable[top] = true
		}
	}

	kept := make([]Candidate, 0, len(viable))
	for _, c := range candidates {
		if viable[c.ID] {
			kept = append(kept, c)
		}
	}

	filtered := make([]Ballot, 0, len(ballots))
	for _, b := range ballots {
		var rankings []Ranking
		for _, r := range b.Rankings {
			if viable[r.CandidateID] {
				rankings = append(rankings, r)
			}
		}
		if len(rankings) == 0 {
			continue
		}
		filtered = append(filtered, Ballot{ID: b.ID, Rankings: rankings})
	}

	return kept, filtered
}

// firstKnown returns the lowest-ranked entry naming a known candidate
func firstKnown(b Ballot, known map[string]bool) (string, bool) {
	best := Ranking{}
	found := false
	for _, r := range b.Rankings {
		if !known[r.CandidateID] {
			continue
		}
		if !found || r.Rank < best.Rank {
			best = r
			found = true
		}
	}
	return best.CandidateID, found
}
