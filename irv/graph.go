// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package irv

import (
	"fmt"
	"strings"
)

// LegacyEdge is the label-only edge format read by older Sankey renderers
type LegacyEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Label renders "<name> (<votes>)" followed by one space per round
func (v Vertex) Label() string {
	return fmt.Sprintf("%s (%d)%s", v.Name, v.Votes, strings.Repeat(" ", v.Round))
}

// LegacyEdges relabels edges with vertex labels
func LegacyEdges(edges []Edge) []LegacyEdge {
	legacy := make([]LegacyEdge, len(edges))
	for i, e := range edges {
		legacy[i] = LegacyEdge{
			Source: e.Source.Label(),
			Target: e.Target.Label(),
			Weight: e.Weight,
		}
	}
	return legacy
}

// RoundFromLabel recovers the round number from a legacy label
func RoundFromLabel(label string) int {
	return len(label) - len(strings.TrimRight(label, " "))
}

type vertexKey struct {
	candidateID string
	round       int
}

// Winner finds the sink vertex (a target that is never a source) with the
// highest round. Candidates eliminated early leave sinks in lower rounds.
func Winner(edges []Edge) (Vertex, bool) {
	sources := make(map[vertexKey]bool, len(edges))
	for _, e := range edges {
		sources[vertexKey{e.Source.CandidateID, e.Source.Round}] = true
	}

	var winner Vertex
	found := false
	for _, e := range edges {
		t := e.Target
		if sources[vertexKey{t.CandidateID, t.Round}] {
			continue
		}
		if !found || t.Round > winner.Round {
			winner = t
			found = true
		}
	}
	return winner, found
}

// LegacyWinner is Winner over legacy labels. It returns the winning label.
func LegacyWinner(edges []LegacyEdge) (string, bool) {
	sources := make(map[string]bool, len(edges))
	for _, e := range edges {
		sources[e.Source] = true
	}

	winner := ""
	best := -1
	for _, e := range edges {
		if sources[e.Target] {
			continue
		}
		if r := RoundFromLabel(e.Target); r > best {
			winner = e.Target
			best = r
		}
	}
	return winner, best >= 0
}
