// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/gotm/irv"
	"github.com/danielhkuo/gotm/metrics"
	"github.com/danielhkuo/gotm/models"
	"github.com/danielhkuo/gotm/resultcache"
)

// ComputeResult tabulates the ballots of one election category.
// q may be a transaction so the close handler sees a consistent view.
func ComputeResult(ctx context.Context, q querier, electionID, category string) (*irv.Result, error) {
	start := time.Now()
	defer func() {
		metrics.TabulationDuration.Observe(time.Since(start).Seconds())
	}()

	candidates, err := loadCandidates(ctx, q, electionID, category)
	if err != nil {
		metrics.Tabulations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}

	ballots, err := loadBallots(ctx, q, electionID, category)
	if err != nil {
		metrics.Tabulations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to load ballots: %w", err)
	}

	candidates, ballots = irv.FilterViable(candidates, ballots)

	result, err := irv.Tabulate(candidates, ballots)
	if err != nil {
		metrics.Tabulations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to tabulate %s/%s: %w", electionID, category, err)
	}

	metrics.Tabulations.WithLabelValues("ok").Inc()
	return result, nil
}

// TabulationLoader adapts ComputeResult to the result cache
func TabulationLoader(db *sql.DB) resultcache.ComputeFunc {
	return func(ctx context.Context, key resultcache.Key) (*irv.Result, error) {
		return ComputeResult(ctx, db, key.ElectionID, key.Category)
	}
}

// loadCandidates returns the jury-selected nominations of a category
func loadCandidates(ctx context.Context, q querier, electionID, category string) ([]irv.Candidate, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, game_name
		FROM nomination
		WHERE election_id = $1 AND category = $2 AND selected = TRUE
		ORDER BY id
	`, electionID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []irv.Candidate{}
	for rows.Next() {
		var c irv.Candidate
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// loadBallots returns every ballot of a category with its rankings in rank
// order. Rankings of deselected nominations are skipped; a ballot left with
// none of them does not appear.
func loadBallots(ctx context.Context, q querier, electionID, category string) ([]irv.Ballot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT b.id, r.nomination_id, r.rank
		FROM ballot b
		JOIN ranking r ON r.ballot_id = b.id
		JOIN nomination n ON n.id = r.nomination_id
		WHERE b.election_id = $1 AND b.category = $2 AND n.selected = TRUE
		ORDER BY b.id, r.rank
	`, electionID, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ballots := []irv.Ballot{}
	for rows.Next() {
		var ballotID string
		var ranking irv.Ranking
		if err := rows.Scan(&ballotID, &ranking.CandidateID, &ranking.Rank); err != nil {
			return nil, err
		}

		n := len(ballots)
		if n == 0 || ballots[n-1].ID != ballotID {
			ballots = append(ballots, irv.Ballot{ID: ballotID})
			n++
		}
		ballots[n-1].Rankings = append(ballots[n-1].Rankings, ranking)
	}

	return ballots, rows.Err()
}

// computeInputsHash is the SHA-256 of the category's sorted ballot IDs
func computeInputsHash(ctx context.Context, q querier, electionID, category string) (string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id FROM ballot WHERE election_id = $1 AND category = $2 ORDER BY id
	`, electionID, category)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var ballotIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		ballotIDs = append(ballotIDs, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(strings.Join(ballotIDs, "\n")))
	return hex.EncodeToString(sum[:]), nil
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// snapshotPayload is the JSON stored in result_snapshot.payload
type snapshotPayload struct {
	Winner     *irv.Vertex `json:"winner,omitempty"`
	Rounds     []irv.Round `json:"rounds"`
	Edges      []irv.Edge  `json:"edges"`
	InputsHash string      `json:"inputs_hash"`
}

// saveSnapshot writes one category's final result
func saveSnapshot(ctx context.Context, q querier, snap models.ResultSnapshot) error {
	payload, err := json.Marshal(snapshotPayload{
		Winner:     snap.Winner,
		Rounds:     snap.Rounds,
		Edges:      snap.Edges,
		InputsHash: snap.InputsHash,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO result_snapshot (id, election_id, category, method, computed_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, snap.ID, snap.ElectionID, snap.Category, snap.Method, snap.ComputedAt, string(payload))
	return err
}

// loadSnapshot reads one category's final result. It returns sql.ErrNoRows
// when the category was never snapshotted.
func loadSnapshot(ctx context.Context, q querier, electionID, category string) (*models.ResultSnapshot, error) {
	var snap models.ResultSnapshot
	var payload string
	err := q.QueryRowContext(ctx, `
		SELECT id, election_id, category, method, computed_at, payload
		FROM result_snapshot
		WHERE election_id = $1 AND category = $2
	`, electionID, category).Scan(
		&snap.ID, &snap.ElectionID, &snap.Category, &snap.Method, &snap.ComputedAt, &payload,
	)
	if err != nil {
		return nil, err
	}

	var decoded snapshotPayload
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", snap.ID, err)
	}
	snap.Winner = decoded.Winner
	snap.Rounds = decoded.Rounds
	snap.Edges = decoded.Edges
	snap.InputsHash = decoded.InputsHash

	return &snap, nil
}

// snapshotFromResult builds the stored form of a tabulation
func snapshotFromResult(electionID, category string, result *irv.Result, inputsHash string, computedAt time.Time) models.ResultSnapshot {
	if result == nil {
		result = &irv.Result{}
	}
	rounds := result.Rounds
	if rounds == nil {
		rounds = []irv.Round{}
	}
	edges := result.Edges
	if edges == nil {
		edges = []irv.Edge{}
	}
	return models.ResultSnapshot{
		ElectionID: electionID,
		Category:   category,
		Method:     models.MethodIRV,
		ComputedAt: computedAt,
		Winner:     result.Winner,
		Rounds:     rounds,
		Edges:      edges,
		InputsHash: inputsHash,
	}
}
