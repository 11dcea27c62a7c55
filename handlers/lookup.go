// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/gotm/auth"
	"github.com/danielhkuo/gotm/middleware"
	"github.com/danielhkuo/gotm/models"
)

const electionColumns = `
	SELECT id, title, month, creator_name, method, status, share_slug, closed_at, created_at
	FROM election
`

// getElection loads one election and its categories by ID or share slug.
// column is always a literal from this package.
func getElection(ctx context.Context, q querier, column, value string) (models.Election, error) {
	var e models.Election
	var closedAt sql.NullTime
	err := q.QueryRowContext(ctx, electionColumns+" WHERE "+column+" = $1", value).Scan(
		&e.ID, &e.Title, &e.Month, &e.CreatorName, &e.Method, &e.Status,
		&e.ShareSlug, &closedAt, &e.CreatedAt,
	)
	if err != nil {
		return models.Election{}, err
	}
	if closedAt.Valid {
		e.ClosedAt = &closedAt.Time
	}

	e.Categories, err = loadCategories(ctx, q, e.ID)
	if err != nil {
		return models.Election{}, err
	}
	return e, nil
}

func loadCategories(ctx context.Context, q querier, electionID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT category FROM election_category
		WHERE election_id = $1
		ORDER BY sort_order
	`, electionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// electionByID writes 404/500 itself and reports whether to continue
func electionByID(w http.ResponseWriter, r *http.Request, db *sql.DB, electionID string) (models.Election, bool) {
	return lookupElection(w, r, db, "id", electionID)
}

func electionBySlug(w http.ResponseWriter, r *http.Request, db *sql.DB, slug string) (models.Election, bool) {
	return lookupElection(w, r, db, "share_slug", slug)
}

func lookupElection(w http.ResponseWriter, r *http.Request, db *sql.DB, column, value string) (models.Election, bool) {
	if value == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, column+" is required")
		return models.Election{}, false
	}
	e, err := getElection(r.Context(), db, column, value)
	if errors.Is(err, sql.ErrNoRows) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Election not found")
		return models.Election{}, false
	}
	if err != nil {
		slog.Error("failed to query election", "error", err, column, value)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return models.Election{}, false
	}
	return e, true
}

// requireAdmin checks X-Admin-Key against the election ID
func requireAdmin(w http.ResponseWriter, r *http.Request, electionID, salt string) bool {
	adminKey := r.Header.Get("X-Admin-Key")
	if err := auth.ValidateAdminKey(electionID, adminKey, salt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// resolveCategory maps an empty category to the election's first one and
// rejects categories the election does not have
func resolveCategory(e models.Election, category string) (string, bool) {
	if category == "" {
		if len(e.Categories) == 0 {
			return "", false
		}
		return e.Categories[0], true
	}
	for _, c := range e.Categories {
		if c == category {
			return c, true
		}
	}
	return "", false
}

func countBallots(ctx context.Context, q querier, electionID, category string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ballot WHERE election_id = $1 AND category = $2
	`, electionID, category).Scan(&count)
	return count, err
}
