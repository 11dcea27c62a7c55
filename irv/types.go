// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

import "errors"

var (
	ErrInvalidCandidate = errors.New("invalid candidate")
	ErrInvalidBallot    = errors.New("invalid ballot")
	ErrUnknownCandidate = errors.New("unknown candidate")
	ErrInvariant        = errors.New("tabulation invariant violated")
)

// Candidate is an entry in one election category
type Candidate struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Ranking places a candidate on a ballot; rank 1 is the most preferred
type Ranking struct {
	CandidateID string `json:"candidate_id"`
	Rank        int    `json:"rank"`
}

// Ballot is one voter's rankings in one category
type Ballot struct {
	ID       string    `json:"id"`
	Rankings []Ranking `json:"rankings"`
}

// Vertex is a candidate's standing in one round
type Vertex struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Round       int    `json:"round"`
	Votes       int    `json:"votes"`
}

// EdgeKind says why votes move along an edge
type EdgeKind string

const (
	EdgeSurvival EdgeKind = "survival"
	EdgeTransfer EdgeKind = "transfer"
	EdgeFinal    EdgeKind = "final"
)

// Edge carries Weight votes from a vertex in round N to one in round N+1
type Edge struct {
	Source Vertex   `json:"source"`
	Target Vertex   `json:"target"`
	Weight int      `json:"weight"`
	Kind   EdgeKind `json:"kind"`
}

// Tally is a candidate's first preferences and weighted score in a round
type Tally struct {
	CandidateID string `json:"candidate_id"`
	Votes       int    `json:"votes"`
	Score       int    `json:"score"`
}

// Round summarizes one counting step. Tallies are in elimination order,
// so the first tally belongs to the eliminated candidate.
type Round struct {
	Number     int            `json:"number"`
	Tallies    []Tally        `json:"tallies"`
	Eliminated string         `json:"eliminated,omitempty"`
	Transfers  map[string]int `json:"transfers,omitempty"`
	Exhausted  int            `json:"exhausted"` // ballots left with no preference after this round
}

// Result is a full tabulation. Winner is nil when there was nothing to count.
type Result struct {
	Rounds []Round `json:"rounds"`
	Edges  []Edge  `json:"edges"`
	Winner *Vertex `json:"winner,omitempty"`
}

// BallotsCounted is the number of ballots holding a first preference in round 1
func (r *Result) BallotsCounted() int {
	if r == nil || len(r.Rounds) == 0 {
		return 0
	}
	total := 0
	for _, t := range r.Rounds[0].Tallies {
		total += t.Votes
	}
	return total
}
