// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielhkuo/gotm/handlers"
	"github.com/danielhkuo/gotm/models"
	"github.com/danielhkuo/gotm/resultcache"
	"github.com/danielhkuo/gotm/testutil"
)

func newTestRouter(t *testing.T) (*http.ServeMux, *sql.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cache, err := resultcache.New(cfg.ResultCacheSize, handlers.TabulationLoader(db))
	if err != nil {
		t.Fatalf("Failed to create result cache: %v", err)
	}
	return NewRouter(db, cfg, cache), db
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	if w.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", w.Body.String())
	}
}

func TestRootEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	expected := "gotm API v1"
	if w.Body.String() != expected {
		t.Errorf("Expected body '%s', got '%s'", expected, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux, _ := newTestRouter(t)

	// one logged request so the HTTP collectors have a sample
	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/history", nil))

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "gotm_http_requests_total") {
		t.Error("Expected gotm_http_requests_total in metrics output")
	}
}

func TestRouteExistence(t *testing.T) {
	mux, _ := newTestRouter(t)

	// Some routes return 404 when data doesn't exist, which is valid handler behavior
	testCases := []struct {
		method string
		path   string
	}{
		// Health and root
		{"GET", "/health"},
		{"GET", "/"},
		{"GET", "/metrics"},

		// Election management routes (these use {id} param and may return auth errors)
		{"POST", "/elections"},
		{"GET", "/elections/test-id/admin"},
		{"POST", "/elections/test-id/jury"},
		{"POST", "/elections/test-id/nominations/test-nid/select"},
		{"POST", "/elections/test-id/open-voting"},
		{"GET", "/elections/test-id/live-results/main"},
		{"POST", "/elections/test-id/close"},

		// Voting routes (these use {slug} param)
		{"POST", "/elections/test-slug/claim-username"},
		{"POST", "/elections/test-slug/nominations"},
		{"POST", "/elections/test-slug/ballots"},
		{"GET", "/elections/test-slug/my-ballot"},

		// Results routes
		{"GET", "/elections/test-slug"},
		{"GET", "/elections/test-slug/ballot-count"},
		{"GET", "/elections/test-slug/results/main"},
		{"GET", "/history"},

		// Device routes
		{"POST", "/devices/register"},
		{"GET", "/devices/me"},
		{"GET", "/devices/my-elections"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			// 400, 401, 404 are all valid responses depending on handler logic
			if w.Code == http.StatusMethodNotAllowed {
				t.Errorf("Route %s %s returned 405, expected route handler to exist", tc.method, tc.path)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	mux, _ := newTestRouter(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"POST", "/health"},                     // Only GET is defined
		{"DELETE", "/elections/test-id/admin"},  // Only GET is defined
		{"GET", "/elections/test-id/close"},     // Only POST is defined
		{"PUT", "/elections/test-slug/ballots"}, // Only POST is defined
		{"POST", "/elections/test-slug/results/main"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("Expected 405 for %s %s, got %d", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestPathParameterExtraction(t *testing.T) {
	mux, db := newTestRouter(t)
	cfg := testutil.GetTestConfig()

	electionID, adminKey, slug := testutil.CreateTestElection(t, db, cfg, models.StatusNominating)

	t.Run("election ID extraction", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/elections/"+electionID+"/admin", nil)
		req.Header.Set("X-Admin-Key", adminKey)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 with valid admin key, got %d. Body: %s", w.Code, w.Body.String())
		}
	})

	t.Run("share slug extraction", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/elections/"+slug, nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Expected 200 for public election view, got %d. Body: %s", w.Code, w.Body.String())
		}
	})

	t.Run("category extraction", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/elections/"+slug+"/results/"+models.DefaultCategory, nil)
		w := httptest.NewRecorder()

		mux.ServeHTTP(w, req)

		// route and category resolve; results stay sealed until close
		if w.Code != http.StatusForbidden {
			t.Errorf("Expected 403 for open election results, got %d. Body: %s", w.Code, w.Body.String())
		}
	})
}
