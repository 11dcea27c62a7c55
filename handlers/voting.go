// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/gotm/auth"
	"github.com/danielhkuo/gotm/cliparse"
	"github.com/danielhkuo/gotm/db"
	"github.com/danielhkuo/gotm/middleware"
	"github.com/danielhkuo/gotm/models"
	"github.com/danielhkuo/gotm/resultcache"
)

type VotingHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	cache *resultcache.Cache
}

func NewVotingHandler(db *sql.DB, cfg cliparse.Config, cache *resultcache.Cache) *VotingHandler {
	return &VotingHandler{db: db, cfg: cfg, cache: cache}
}

// ClaimUsername handles POST /elections/{slug}/claim-username
func (h *VotingHandler) ClaimUsername(w http.ResponseWriter, r *http.Request) {
	var req models.ClaimUsernameRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	election, ok := electionBySlug(w, r, h.db, r.PathValue("slug"))
	if !ok {
		return
	}
	if election.Status == models.StatusClosed {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is closed")
		return
	}

	voterToken, err := auth.GenerateVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim username")
		return
	}

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO username_claim (election_id, username, voter_token, created_at)
		VALUES ($1, $2, $3, $4)
	`, election.ID, req.Username, voterToken, time.Now().UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
			return
		}
		slog.Error("failed to insert username claim", "error", err, "election_id", election.ID)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to claim username")
		return
	}

	linkRequestDevice(h.db, r, election.ID, models.RoleVoter, &voterToken)

	slog.Info("username claimed", "election_id", election.ID, "username", req.Username)

	middleware.JSONResponse(w, http.StatusCreated, models.ClaimUsernameResponse{
		VoterToken: voterToken,
	})
}

// requireVoter checks X-Voter-Token belongs to the election and returns the
// voter's username
func (h *VotingHandler) requireVoter(w http.ResponseWriter, r *http.Request, electionID string) (string, string, bool) {
	voterToken := r.Header.Get("X-Voter-Token")
	if voterToken == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token header required")
		return "", "", false
	}
	if err := auth.ValidateVoterToken(voterToken); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return "", "", false
	}

	var username string
	err := h.db.QueryRowContext(r.Context(), `
		SELECT username FROM username_claim
		WHERE election_id = $1 AND voter_token = $2
	`, electionID, voterToken).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token for this election")
		return "", "", false
	}
	if err != nil {
		slog.Error("failed to verify voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return "", "", false
	}
	return voterToken, username, true
}

// Nominate handles POST /elections/{slug}/nominations
func (h *VotingHandler) Nominate(w http.ResponseWriter, r *http.Request) {
	election, ok := electionBySlug(w, r, h.db, r.PathValue("slug"))
	if !ok {
		return
	}
	_, username, ok := h.requireVoter(w, r, election.ID)
	if !ok {
		return
	}

	var req models.NominateRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	category, ok := resolveCategory(election, req.Category)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown category: "+req.Category)
		return
	}
	if election.Status != models.StatusNominating {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not taking nominations")
		return
	}

	nominationID, err := auth.GenerateID(12)
	if err != nil {
		slog.Error("failed to generate nomination ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to nominate")
		return
	}

	_, err = h.db.ExecContext(r.Context(), `
		INSERT INTO nomination (id, election_id, category, game_name, pitch, nominated_by, selected, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, nominationID, election.ID, category, req.GameName, req.Pitch, username, false, time.Now().UTC())
	if err != nil {
		if db.IsUniqueViolation(err) {
			middleware.ErrorResponse(w, http.StatusConflict, "Game already nominated in this category")
			return
		}
		slog.Error("failed to insert nomination", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to nominate")
		return
	}

	slog.Info("game nominated", "election_id", election.ID, "nomination_id", nominationID, "category", category)

	middleware.JSONResponse(w, http.StatusCreated, models.NominateResponse{
		NominationID: nominationID,
	})
}

// SubmitBallot handles POST /elections/{slug}/ballots
// A second submission for the same category replaces the first
func (h *VotingHandler) SubmitBallot(w http.ResponseWriter, r *http.Request) {
	election, ok := electionBySlug(w, r, h.db, r.PathValue("slug"))
	if !ok {
		return
	}
	voterToken, _, ok := h.requireVoter(w, r, election.ID)
	if !ok {
		return
	}

	var req models.SubmitBallotRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	category, ok := resolveCategory(election, req.Category)
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown category: "+req.Category)
		return
	}
	if election.Status != models.StatusVoting {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	candidates, err := loadCandidates(r.Context(), h.db, election.ID, category)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	valid := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		valid[c.ID] = true
	}
	for _, id := range req.Ranking {
		if !valid[id] {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid candidate_id: "+id)
			return
		}
	}

	ipHash := auth.HashIP(middleware.GetClientIP(r), h.cfg.AdminKeySalt)
	userAgent := r.UserAgent()
	now := time.Now().UTC()

	tx, err := h.db.BeginTx(r.Context(), nil)
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var status string
	if err := tx.QueryRow(`SELECT status FROM election WHERE id = $1`, election.ID).Scan(&status); err != nil {
		slog.Error("failed to recheck election status", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if status != models.StatusVoting {
		middleware.ErrorResponse(w, http.StatusConflict, "Election is not open for voting")
		return
	}

	var ballotID string
	err = tx.QueryRow(`
		SELECT id FROM ballot WHERE election_id = $1 AND category = $2 AND voter_token = $3
	`, election.ID, category, voterToken).Scan(&ballotID)
	isUpdate := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if isUpdate {
		_, err = tx.Exec(`
			UPDATE ballot
			SET submitted_at = $1, ip_hash = $2, user_agent = $3
			WHERE id = $4
		`, now, ipHash, userAgent, ballotID)
		if err != nil {
			slog.Error("failed to update ballot", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update ballot")
			return
		}

		if _, err = tx.Exec(`DELETE FROM ranking WHERE ballot_id = $1`, ballotID); err != nil {
			slog.Error("failed to delete old rankings", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update ballot")
			return
		}
	} else {
		ballotID, err = auth.GenerateID(16)
		if err != nil {
			slog.Error("failed to generate ballot ID", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
			return
		}
		_, err = tx.Exec(`
			INSERT INTO ballot (id, election_id, category, voter_token, submitted_at, ip_hash, user_agent)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, ballotID, election.ID, category, voterToken, now, ipHash, userAgent)
		if err != nil {
			slog.Error("failed to insert ballot", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
			return
		}
	}

	for i, candidateID := range req.Ranking {
		_, err = tx.Exec(`
			INSERT INTO ranking (ballot_id, nomination_id, rank)
			VALUES ($1, $2, $3)
		`, ballotID, candidateID, i+1)
		if err != nil {
			slog.Error("failed to insert ranking", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to save ranking")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to submit ballot")
		return
	}

	h.cache.Invalidate(resultcache.Key{ElectionID: election.ID, Category: category})

	message := "Ballot submitted successfully"
	if isUpdate {
		message = "Ballot updated successfully"
	}

	slog.Info("ballot submitted", "election_id", election.ID, "category", category, "ballot_id", ballotID, "is_update", isUpdate)

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitBallotResponse{
		BallotID: ballotID,
		Message:  message,
	})
}

// GetMyBallot handles GET /elections/{slug}/my-ballot?category=
func (h *VotingHandler) GetMyBallot(w http.ResponseWriter, r *http.Request) {
	election, ok := electionBySlug(w, r, h.db, r.PathValue("slug"))
	if !ok {
		return
	}
	voterToken, _, ok := h.requireVoter(w, r, election.ID)
	if !ok {
		return
	}
	category, ok := resolveCategory(election, r.URL.Query().Get("category"))
	if !ok {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown category: "+r.URL.Query().Get("category"))
		return
	}

	resp := models.MyBallotResponse{Category: category}
	err := h.db.QueryRowContext(r.Context(), `
		SELECT id, submitted_at FROM ballot
		WHERE election_id = $1 AND category = $2 AND voter_token = $3
	`, election.ID, category, voterToken).Scan(&resp.BallotID, &resp.SubmittedAt)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "No ballot submitted")
		return
	}
	if err != nil {
		slog.Error("failed to query ballot", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	rows, err := h.db.QueryContext(r.Context(), `
		SELECT n.id, n.game_name
		FROM ranking r
		JOIN nomination n ON n.id = r.nomination_id
		WHERE r.ballot_id = $1
		ORDER BY r.rank
	`, resp.BallotID)
	if err != nil {
		slog.Error("failed to query rankings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	resp.Ranking = []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.GameName); err != nil {
			slog.Error("failed to scan ranking", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		resp.Ranking = append(resp.Ranking, c)
	}
	if err := rows.Err(); err != nil {
		slog.Error("failed to read rankings", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}
