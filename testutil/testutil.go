// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/gotm/auth"
	"github.com/danielhkuo/gotm/cliparse"
	"github.com/danielhkuo/gotm/db"
	"github.com/danielhkuo/gotm/models"
)

// SetupTestDB opens a private in-memory SQLite database with the full schema.
// It is closed when the test ends.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:            3318,
		DatabaseURL:     ":memory:",
		DatabaseType:    db.TypeSQLite,
		AdminKeySalt:    "test-admin-salt",
		SlugSalt:        "test-slug-salt",
		BaseURL:         "http://gotm.test",
		ResultCacheSize: 16,
	}
}

// CreateTestElection inserts an election in the given status and returns its
// ID, admin key and share slug. Categories default to "main".
func CreateTestElection(t *testing.T, conn *sql.DB, cfg cliparse.Config, status string, categories ...string) (electionID, adminKey, shareSlug string) {
	t.Helper()

	if len(categories) == 0 {
		categories = []string{models.DefaultCategory}
	}

	electionID, _ = auth.GenerateID(16)
	adminKey = auth.GenerateAdminKey(electionID, cfg.AdminKeySalt)
	shareSlug = auth.GenerateShareSlug(electionID, cfg.SlugSalt)

	var closedAt *time.Time
	if status == models.StatusClosed {
		now := time.Now().UTC()
		closedAt = &now
	}

	_, err := conn.Exec(`
		INSERT INTO election (id, title, month, creator_name, method, status, share_slug, closed_at, created_at)
		VALUES ($1, 'Test Election', '2025-03', 'TestUser', $2, $3, $4, $5, $6)
	`, electionID, models.MethodIRV, status, shareSlug, closedAt, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}

	for i, category := range categories {
		_, err := conn.Exec(`
			INSERT INTO election_category (election_id, category, sort_order)
			VALUES ($1, $2, $3)
		`, electionID, category, i)
		if err != nil {
			t.Fatalf("Failed to create test category: %v", err)
		}
	}

	return electionID, adminKey, shareSlug
}

// AddTestNomination nominates a game and returns the nomination ID.
// selected marks it as a jury-picked candidate.
func AddTestNomination(t *testing.T, conn *sql.DB, electionID, category, gameName string, selected bool) string {
	t.Helper()

	nominationID, _ := auth.GenerateID(12)
	_, err := conn.Exec(`
		INSERT INTO nomination (id, election_id, category, game_name, pitch, nominated_by, selected, created_at)
		VALUES ($1, $2, $3, $4, '', 'TestUser', $5, $6)
	`, nominationID, electionID, category, gameName, selected, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test nomination: %v", err)
	}

	return nominationID
}

// CreateTestVoter claims a username for an election and returns the voter token
func CreateTestVoter(t *testing.T, conn *sql.DB, electionID, username string) string {
	t.Helper()

	voterToken, _ := auth.GenerateVoterToken()
	_, err := conn.Exec(`
		INSERT INTO username_claim (election_id, username, voter_token, created_at)
		VALUES ($1, $2, $3, $4)
	`, electionID, username, voterToken, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return voterToken
}

// SubmitTestBallot stores a ranked ballot, most preferred nomination first
func SubmitTestBallot(t *testing.T, conn *sql.DB, electionID, category, voterToken string, ranking []string) string {
	t.Helper()

	ballotID, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO ballot (id, election_id, category, voter_token, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ballotID, electionID, category, voterToken, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test ballot: %v", err)
	}

	for i, nominationID := range ranking {
		_, err := conn.Exec(`
			INSERT INTO ranking (ballot_id, nomination_id, rank)
			VALUES ($1, $2, $3)
		`, ballotID, nominationID, i+1)
		if err != nil {
			t.Fatalf("Failed to create test ranking: %v", err)
		}
	}

	return ballotID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
