// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/gotm/auth"
	"github.com/danielhkuo/gotm/cliparse"
	"github.com/danielhkuo/gotm/irv"
	"github.com/danielhkuo/gotm/middleware"
	"github.com/danielhkuo/gotm/models"
	"github.com/danielhkuo/gotm/resultcache"
)

type ElectionHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	cache *resultcache.Cache
}

func NewElectionHandler(db *sql.DB, cfg cliparse.Config, cache *resultcache.Cache) *ElectionHandler {
	return &ElectionHandler{db: db, cfg: cfg, cache: cache}
}

// CreateElection handles POST /elections
func (h *ElectionHandler) CreateElection(w http.ResponseWriter, r *http.Request) {
	var req models.CreateElectionRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	categories := req.Categories
	if len(categories) == 0 {
		categories = []string{models.DefaultCategory}
	}

	electionID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate election ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	adminKey := auth.GenerateAdminKey(electionID, h.cfg.AdminKeySalt)
	shareSlug := auth.GenerateShareSlug(electionID, h.cfg.SlugSalt)

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO election (id, title, month, creator_name, method, status, share_slug, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, electionID, req.Title, req.Month, req.CreatorName, models.MethodIRV, models.StatusNominating,
		shareSlug, time.Now().UTC())
	if err != nil {
		slog.Error("failed to insert election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	for i, category := range categories {
		_, err = tx.Exec(`
			INSERT INTO election_category (election_id, category, sort_order)
			VALUES ($1, $2, $3)
		`, electionID, category, i)
		if err != nil {
			slog.Error("failed to insert category", "error", err, "category", category)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create election")
		return
	}

	linkRequestDevice(h.db, r, electionID, models.RoleAdmin, nil)

	slog.Info("election created", "election_id", electionID, "month", req.Month, "creator", req.CreatorName)

	middleware.JSONResponse(w, http.StatusCreated, models.CreateElectionResponse{
		ElectionID: electionID,
		AdminKey:   adminKey,
		ShareSlug:  shareSlug,
		ShareURL:   h.cfg.BaseURL + "/elections/" + shareSlug,
	})
}

// GetElectionAdmin handles GET /elections/{id}/admin
// Returns the election with every nomination, selected or not
func (h *ElectionHandler) GetElectionAdmin(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	election, ok := electionByID(w, r, h.db, electionID)
	if !ok {
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT n.id, n.election_id, n.category, n.game_name, n.pitch, n.selected, n.created_at
		FROM nomination n
		JOIN election_category c ON c.election_id = n.election_id AND c.category = n.category
		WHERE n.election_id = $1
		ORDER BY c.sort_order, n.game_name, n.id
	`, electionID)
	if err != nil {
		slog.Error("failed to query nominations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	nominations := []models.Nomination{}
	for rows.Next() {
		var n models.Nomination
		if err := rows.Scan(&n.ID, &n.ElectionID, &n.Category, &n.GameName, &n.Pitch, &n.Selected, &n.CreatedAt); err != nil {
			slog.Error("failed to scan nomination", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		nominations = append(nominations, n)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read nominations", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ElectionWithNominations{
		Election:    election,
		Nominations: nominations,
	})
}

// StartJury handles POST /elections/{id}/jury
func (h *ElectionHandler) StartJury(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	election, ok := electionByID(w, r, h.db, electionID)
	if !ok {
		return
	}
	if election.Status != models.StatusNominating {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not taking nominations")
		return
	}

	if !h.transition(w, r, electionID, models.StatusNominating, models.StatusJury) {
		return
	}

	slog.Info("jury started", "election_id", electionID)
	h.respondStatus(w, r, electionID)
}

// SelectNomination handles POST /elections/{id}/nominations/{nid}/select
func (h *ElectionHandler) SelectNomination(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	nominationID := r.PathValue("nid")
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	var req models.SelectNominationRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	election, ok := electionByID(w, r, h.db, electionID)
	if !ok {
		return
	}
	if election.Status != models.StatusJury {
		middleware.ErrorResponse(w, http.StatusConflict, "Candidates can only be selected during jury")
		return
	}

	res, err := h.db.ExecContext(r.Context(), `
		UPDATE nomination SET selected = $1
		WHERE id = $2 AND election_id = $3
	`, req.Selected, nominationID, electionID)
	if err != nil {
		slog.Error("failed to update nomination", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusNotFound, "Nomination not found")
		return
	}

	slog.Info("nomination selection changed", "election_id", electionID, "nomination_id", nominationID, "selected", req.Selected)

	middleware.JSONResponse(w, http.StatusOK, map[string]interface{}{
		"nomination_id": nominationID,
		"selected":      req.Selected,
	})
}

// OpenVoting handles POST /elections/{id}/open-voting
// At least one category needs two candidates
func (h *ElectionHandler) OpenVoting(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	election, ok := electionByID(w, r, h.db, electionID)
	if !ok {
		return
	}
	if election.Status != models.StatusJury {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not in jury")
		return
	}

	var most int
	err := h.db.QueryRowContext(r.Context(), `
		SELECT COALESCE(MAX(selected_count), 0) FROM (
			SELECT COUNT(*) AS selected_count
			FROM nomination
			WHERE election_id = $1 AND selected = TRUE
			GROUP BY category
		) AS per_category
	`, electionID).Scan(&most)
	if err != nil {
		slog.Error("failed to count candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if most < 2 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "At least one category needs 2 selected candidates")
		return
	}

	if !h.transition(w, r, electionID, models.StatusJury, models.StatusVoting) {
		return
	}

	slog.Info("voting opened", "election_id", electionID)
	h.respondStatus(w, r, electionID)
}

// LiveResults handles GET /elections/{id}/live-results/{category}
// Admin-only view of the running tabulation
func (h *ElectionHandler) LiveResults(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	election, ok := electionByID(w, r, h.db, electionID)
	if !ok {
		return
	}
	category, ok := resolveCategory(election, r.PathValue("category"))
	if !ok {
		middleware.ErrorResponse(w, http.StatusNotFound, "Unknown category")
		return
	}
	if election.Status != models.StatusVoting {
		middleware.ErrorResponse(w, http.StatusConflict, "Live results are only available while voting")
		return
	}

	result, err := h.cache.Get(r.Context(), resultcache.Key{ElectionID: electionID, Category: category})
	if err != nil {
		slog.Error("failed to tabulate live results", "error", err, "election_id", electionID, "category", category)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to compute results")
		return
	}

	count, err := countBallots(r.Context(), h.db, electionID, category)
	if err != nil {
		slog.Error("failed to count ballots", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResultsResponse{
		Election:    election,
		Category:    category,
		BallotCount: count,
		Winner:      result.Winner,
		Rounds:      result.Rounds,
		Edges:       result.Edges,
		ComputedAt:  time.Now().UTC(),
	})
}

// CloseElection handles POST /elections/{id}/close
// Tabulates every category and stores one snapshot each
func (h *ElectionHandler) CloseElection(w http.ResponseWriter, r *http.Request) {
	electionID := r.PathValue("id")
	if !requireAdmin(w, r, electionID, h.cfg.AdminKeySalt) {
		return
	}

	election, ok := electionByID(w, r, h.db, electionID)
	if !ok {
		return
	}
	if election.Status != models.StatusVoting {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	ctx := r.Context()
	closedAt := time.Now().UTC()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	// Ballot writers recheck the status inside their own transaction
	res, err := tx.ExecContext(ctx, `
		UPDATE election SET status = $1, closed_at = $2
		WHERE id = $3 AND status = $4
	`, models.StatusClosed, closedAt, electionID, models.StatusVoting)
	if err != nil {
		slog.Error("failed to close election", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close election")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	snapshots := make([]models.ResultSnapshot, 0, len(election.Categories))
	for _, category := range election.Categories {
		snap, err := closeCategory(ctx, tx, electionID, category, closedAt)
		if err != nil {
			slog.Error("failed to save snapshot", "error", err, "election_id", electionID, "category", category)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save results")
			return
		}
		snapshots = append(snapshots, snap)
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to close election")
		return
	}

	h.cache.InvalidateElection(electionID)

	slog.Info("election closed", "election_id", electionID, "categories", len(snapshots))

	middleware.JSONResponse(w, http.StatusOK, models.CloseElectionResponse{
		ClosedAt:  closedAt,
		Snapshots: snapshots,
	})
}

// closeCategory tabulates one category inside the closing transaction.
// Ballot data the tabulator rejects leaves the category with an empty
// result; load errors are returned so the close rolls back.
func closeCategory(ctx context.Context, tx *sql.Tx, electionID, category string, closedAt time.Time) (models.ResultSnapshot, error) {
	result, err := ComputeResult(ctx, tx, electionID, category)
	if err != nil {
		if !isTabulationError(err) {
			return models.ResultSnapshot{}, err
		}
		slog.Error("tabulation failed, storing empty result", "error", err, "election_id", electionID, "category", category)
		result = &irv.Result{}
	}

	hash, err := computeInputsHash(ctx, tx, electionID, category)
	if err != nil {
		return models.ResultSnapshot{}, err
	}

	snap := snapshotFromResult(electionID, category, result, hash, closedAt)
	snap.ID = auth.NewSnapshotID()
	if err := saveSnapshot(ctx, tx, snap); err != nil {
		return models.ResultSnapshot{}, err
	}
	return snap, nil
}

func isTabulationError(err error) bool {
	return errors.Is(err, irv.ErrInvalidCandidate) ||
		errors.Is(err, irv.ErrInvalidBallot) ||
		errors.Is(err, irv.ErrUnknownCandidate) ||
		errors.Is(err, irv.ErrInvariant)
}

// transition moves an election between states, writing 409 if another
// request got there first
func (h *ElectionHandler) transition(w http.ResponseWriter, r *http.Request, electionID, from, to string) bool {
	res, err := h.db.ExecContext(r.Context(), `
		UPDATE election SET status = $1 WHERE id = $2 AND status = $3
	`, to, electionID, from)
	if err != nil {
		slog.Error("failed to update election status", "error", err, "election_id", electionID, "to", to)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return false
	}
	if n, _ := res.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Election status changed, try again")
		return false
	}
	return true
}

func (h *ElectionHandler) respondStatus(w http.ResponseWriter, r *http.Request, electionID string) {
	election, err := getElection(r.Context(), h.db, "id", electionID)
	if err != nil {
		slog.Error("failed to reload election", "error", err, "election_id", electionID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, election)
}
