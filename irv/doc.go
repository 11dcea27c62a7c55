// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package irv tabulates ranked ballots with Instant-Runoff Voting and records
every round as a layered transfer graph suitable for a Sankey diagram.

# Tabulation

Tabulate is a pure function over its inputs:

	result, err := irv.Tabulate(candidates, ballots)

Each round the remaining candidates are ordered ascending by
(first-preference count, weighted score, candidate ID) and the first one is
eliminated. Ballots topped by the eliminated candidate move to their next
remaining preference; ballots with nothing left are exhausted.

# Weighted Score

The weighted score breaks ties in first-preference counts. With n candidates
remaining, a ballot ranking a candidate at live position p contributes
n - p + 1 to that candidate. Positions are renumbered after every
elimination, so the score is recomputed each round.

# Graph

Every surviving candidate has one Vertex per round. Edges between rounds are:

  - survival: candidate's round N vertex to its round N+1 vertex
  - transfer: eliminated candidate's round N vertex to a receiver's round N+1 vertex
  - final: the winner's last counted vertex to the winner marker one round later

A tabulation that starts with a single candidate has no edges; its only
vertex is the winner.

# Legacy Labels

Older consumers read vertices as "<name> (<votes>)" followed by one space per
round. LegacyEdges produces that encoding from the explicit graph and
LegacyWinner reads it back.

# Pre-filter

Callers should pass only viable candidates (at least one round-1 first
preference). FilterViable drops the others and strips them from ballots.
*/
package irv
