// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

import (
	"fmt"
	"sort"
)

// election is the per-call working state. It is owned by a single Tabulate
// call and never escapes it.
type election struct {
	names     map[string]string
	order     []string // candidate IDs in input order
	remaining map[string]bool
	live      [][]string // per ballot: remaining candidate IDs, most preferred first
}

// Tabulate runs Instant-Runoff Voting over the ballots and returns the
// round history and transfer graph. Zero candidates or zero ballots give an
// empty result with no winner.
func Tabulate(candidates []Candidate, ballots []Ballot) (*Result, error) {
	if len(candidates) == 0 || len(ballots) == 0 {
		return &Result{Rounds: []Round{}, Edges: []Edge{}}, nil
	}

	e, err := newElection(candidates, ballots)
	if err != nil {
		return nil, err
	}
	return e.run()
}

func newElection(candidates []Candidate, ballots []Ballot) (*election, error) {
	e := &election{
		names:     make(map[string]string, len(candidates)),
		order:     make([]string, 0, len(candidates)),
		remaining: make(map[string]bool, len(candidates)),
		live:      make([][]string, len(ballots)),
	}

	for _, c := range candidates {
		if c.ID == "" {
			return nil, fmt.Errorf("%w: empty id for %q", ErrInvalidCandidate, c.Name)
		}
		if _, dup := e.names[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCandidate, c.ID)
		}
		e.names[c.ID] = c.Name
		e.order = append(e.order, c.ID)
		e.remaining[c.ID] = true
	}

	for i, b := range ballots {
		ranked, err := e.orderRankings(b)
		if err != nil {
			return nil, err
		}
		e.live[i] = ranked
	}

	return e, nil
}

// orderRankings validates a ballot and returns its candidate IDs by rank
func (e *election) orderRankings(b Ballot) ([]string, error) {
	rankings := make([]Ranking, len(b.Rankings))
	copy(rankings, b.Rankings)
	sort.SliceStable(rankings, func(i, j int) bool {
		return rankings[i].Rank < rankings[j].Rank
	})

	seen := make(map[string]bool, len(rankings))
	ranked := make([]string, 0, len(rankings))
	for i, r := range rankings {
		if r.Rank < 1 {
			return nil, fmt.Errorf("%w: ballot %s has rank %d", ErrInvalidBallot, b.ID, r.Rank)
		}
		if i > 0 && rankings[i-1].Rank == r.Rank {
			return nil, fmt.Errorf("%w: ballot %s repeats rank %d", ErrInvalidBallot, b.ID, r.Rank)
		}
		if _, ok := e.names[r.CandidateID]; !ok {
			return nil, fmt.Errorf("%w: ballot %s ranks %q", ErrUnknownCandidate, b.ID, r.CandidateID)
		}
		if seen[r.CandidateID] {
			return nil, fmt.Errorf("%w: ballot %s ranks %q twice", ErrInvalidBallot, b.ID, r.CandidateID)
		}
		seen[r.CandidateID] = true
		ranked = append(ranked, r.CandidateID)
	}
	return ranked, nil
}

func (e *election) run() (*Result, error) {
	result := &Result{Rounds: []Round{}, Edges: []Edge{}}
	round := 1
	counts := firstChoiceCounts(e.remaining, e.live)

	if len(e.remaining) == 1 {
		id := e.order[0]
		winner := e.vertex(id, round, counts[id])
		result.Rounds = append(result.Rounds, Round{
			Number:  round,
			Tallies: []Tally{{CandidateID: id, Votes: counts[id], Score: weightedScores(e.remaining, e.live)[id]}},
		})
		result.Winner = &winner
		return result, nil
	}

	for len(e.remaining) > 1 {
		scores := weightedScores(e.remaining, e.live)
		standings := e.standings(counts, scores)
		loser := standings[0].CandidateID

		delete(e.remaining, loser)
		moved := transfer(loser, e.remaining, e.live)
		exhausted := eliminate(loser, e.live)
		next := firstChoiceCounts(e.remaining, e.live)

		if err := e.checkRound(loser, counts, next, moved, exhausted); err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}

		result.Rounds = append(result.Rounds, Round{
			Number:     round,
			Tallies:    standings,
			Eliminated: loser,
			Transfers:  moved,
			Exhausted:  exhausted,
		})
		result.Edges = append(result.Edges, e.roundEdges(round, loser, counts, next, moved)...)

		counts = next
		round++
	}

	var winnerID string
	for id := range e.remaining {
		winnerID = id
	}
	result.Rounds = append(result.Rounds, Round{
		Number:  round,
		Tallies: []Tally{{CandidateID: winnerID, Votes: counts[winnerID], Score: weightedScores(e.remaining, e.live)[winnerID]}},
	})

	last := e.vertex(winnerID, round, counts[winnerID])
	final := e.vertex(winnerID, round+1, counts[winnerID])
	result.Edges = append(result.Edges, Edge{Source: last, Target: final, Weight: counts[winnerID], Kind: EdgeFinal})
	result.Winner = &final

	return result, nil
}

// standings orders the remaining candidates ascending by
// (votes, weighted score, ID); the first entry is eliminated.
func (e *election) standings(counts, scores map[string]int) []Tally {
	tallies := make([]Tally, 0, len(e.remaining))
	for _, id := range e.order {
		if e.remaining[id] {
			tallies = append(tallies, Tally{CandidateID: id, Votes: counts[id], Score: scores[id]})
		}
	}

	sort.Slice(tallies, func(i, j int) bool {
		a, b := tallies[i], tallies[j]
		if a.Votes != b.Votes {
			return a.Votes < b.Votes
		}
		if a.Score != b.Score {
			return a.Score < b.Score
		}
		return a.CandidateID < b.CandidateID
	})
	return tallies
}

// roundEdges links round N to round N+1: survival edges first, then the
// eliminated candidate's transfers, both in candidate input order.
func (e *election) roundEdges(round int, loser string, counts, next, moved map[string]int) []Edge {
	var edges []Edge
	for _, id := range e.order {
		if !e.remaining[id] {
			continue
		}
		edges = append(edges, Edge{
			Source: e.vertex(id, round, counts[id]),
			Target: e.vertex(id, round+1, next[id]),
			Weight: counts[id],
			Kind:   EdgeSurvival,
		})
	}

	from := e.vertex(loser, round, counts[loser])
	for _, id := range e.order {
		if moved[id] == 0 {
			continue
		}
		edges = append(edges, Edge{
			Source: from,
			Target: e.vertex(id, round+1, next[id]),
			Weight: moved[id],
			Kind:   EdgeTransfer,
		})
	}
	return edges
}

// checkRound asserts that no vote was created or lost other than through
// exhausted ballots.
func (e *election) checkRound(loser string, counts, next, moved map[string]int, exhausted int) error {
	transferred := 0
	for id, n := range moved {
		if !e.remaining[id] {
			return fmt.Errorf("%w: transfer to eliminated candidate %q", ErrInvariant, id)
		}
		transferred += n
	}
	if transferred+exhausted != counts[loser] {
		return fmt.Errorf("%w: %q held %d votes but %d moved and %d exhausted",
			ErrInvariant, loser, counts[loser], transferred, exhausted)
	}
	for id := range e.remaining {
		if next[id] != counts[id]+moved[id] {
			return fmt.Errorf("%w: %q has %d votes, expected %d",
				ErrInvariant, id, next[id], counts[id]+moved[id])
		}
	}
	return nil
}

func (e *election) vertex(id string, round, votes int) Vertex {
	return Vertex{CandidateID: id, Name: e.names[id], Round: round, Votes: votes}
}
