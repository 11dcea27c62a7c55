// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/gotm/cliparse"
	"github.com/danielhkuo/gotm/irv"
	"github.com/danielhkuo/gotm/middleware"
	"github.com/danielhkuo/gotm/models"
)

type ResultsHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewResultsHandler(db *sql.DB, cfg cliparse.Config) *ResultsHandler {
	return &ResultsHandler{db: db, cfg: cfg}
}

// GetElection handles GET /elections/{slug}
// Returns the election and its candidates, but NOT results (sealed until closed)
func (h *ResultsHandler) GetElection(w http.ResponseWriter, r *http.Request) {
	election, ok := electionBySlug(w, r, h.db, r.PathValue("slug"))
	if !ok {
		return
	}

	candidates := make(map[string][]models.Candidate, len(election.Categories))
	for _, category := range election.Categories {
		candidates[category] = []models.Candidate{}
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, category, game_name
		FROM nomination
		WHERE election_id = $1 AND selected = TRUE
		ORDER BY category, game_name, id
	`, election.ID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Candidate
		var category string
		if err := rows.Scan(&c.ID, &category, &c.GameName); err != nil {
			slog.Error("failed to scan candidate", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		candidates[category] = append(candidates[category], c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithCandidates{
		Election:   election,
		Candidates: candidates,
	})
}

// GetBallotCount handles GET /elections/{slug}/ballot-count
// Counts are public while voting; only the tallies are sealed
func (h *ResultsHandler) GetBallotCount(w http.ResponseWriter, r *http.Request) {
	election, ok := electionBySlug(w, r, h.db, r.PathValue("slug"))
	if !ok {
		return
	}

	resp := models.BallotCountResponse{Categories: make(map[string]int, len(election.Categories))}
	for _, category := range election.Categories {
		resp.Categories[category] = 0
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT category, COUNT(*) FROM ballot
		WHERE election_id = $1
		GROUP BY category
	`, election.ID)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			slog.Error("failed to scan ballot count", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp.Categories[category] = count
		resp.BallotCount += count
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read ballot counts", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetResults handles GET /elections/{slug}/results/{category}
// Returns 403 until the election is closed, then the stored snapshot.
// ?format=legacy swaps the explicit edges for label-keyed ones.
func (h *ResultsHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && format != "legacy" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "format must be empty or legacy")
		return
	}

	election, ok := electionBySlug(w, r, h.db, r.PathValue("slug"))
	if !ok {
		return
	}
	category, ok := resolveCategory(election, r.PathValue("category"))
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Unknown category")
		return
	}

	if election.Status != models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are hidden until the election is closed")
		return
	}

	snap, err := loadSnapshot(r.Context(), h.db, election.ID, category)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Error("closed election has no snapshot", "election_id", election.ID, "category", category)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Results not available")
		return
	}
	if err != nil {
		slog.Error("failed to load snapshot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	count, err := countBallots(r.Context(), h.db, election.ID, category)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	resp := models.ResultsResponse{
		Election:    election,
		Category:    category,
		BallotCount: count,
		Winner:      snap.Winner,
		Rounds:      snap.Rounds,
		ComputedAt:  snap.ComputedAt,
	}
	if format == "legacy" {
		resp.LegacyEdges = irv.LegacyEdges(snap.Edges)
	} else {
		resp.Edges = snap.Edges
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// GetHistory handles GET /history
// Closed elections, newest first, with each category's winner
func (h *ResultsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT id, title, month, share_slug, closed_at
		FROM election
		WHERE status = $1
		ORDER BY month DESC, closed_at DESC, id
	`, models.StatusClosed)
	if err != nil {
		slog.Error("failed to query history", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		var closedAt sql.NullTime
		if err := rows.Scan(&e.ElectionID, &e.Title, &e.Month, &e.ShareSlug, &closedAt); err != nil {
			rows.Close()
			slog.Error("failed to scan history entry", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		if closedAt.Valid {
			e.ClosedAt = &closedAt.Time
		}
		entries = append(entries, e)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		slog.Error("failed to read history", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	// election rows are closed before querying winners; sqlite has a single connection
	for i := range entries {
		winners, err := h.categoryWinners(r, entries[i].ElectionID)
		if err != nil {
			slog.Error("failed to load winners", "error", err, "election_id", entries[i].ElectionID)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		entries[i].Winners = winners
	}

	middleware.JSONResponse(w, http.StatusOK, models.HistoryResponse{Elections: entries})
}

func (h *ResultsHandler) categoryWinners(r *http.Request, electionID string) ([]models.CategoryWinner, error) {
	rows, err := h.db.QueryContext(r.Context(), `
		SELECT s.category, s.payload
		FROM result_snapshot s
		JOIN election_category c ON c.election_id = s.election_id AND c.category = s.category
		WHERE s.election_id = $1
		ORDER BY c.sort_order
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	winners := []models.CategoryWinner{}
	for rows.Next() {
		var category, payload string
		if err := rows.Scan(&category, &payload); err != nil {
			return nil, err
		}
		var decoded snapshotPayload
		if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
			return nil, err
		}
		winner := snapshotWinner(electionID, category, decoded)
		if winner == nil {
			continue
		}
		winners = append(winners, models.CategoryWinner{
			Category: category,
			GameName: winner.Name,
			Votes:    winner.Votes,
		})
	}
	return winners, rows.Err()
}

// snapshotWinner checks the stored winner against the elimination graph's
// final sink. The stored winner wins a disagreement; the graph fills in a
// missing one.
func snapshotWinner(electionID, category string, p snapshotPayload) *irv.Vertex {
	sink, ok := irv.Winner(p.Edges)
	if !ok {
		return p.Winner
	}
	if p.Winner == nil {
		return &sink
	}
	if sink.CandidateID != p.Winner.CandidateID || sink.Round != p.Winner.Round {
		slog.Warn("snapshot winner disagrees with its graph",
			"election_id", electionID, "category", category,
			"stored", p.Winner.CandidateID, "graph", sink.CandidateID)
	}
	return p.Winner
}
