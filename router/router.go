// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danielhkuo/gotm/cliparse"
	"github.com/danielhkuo/gotm/handlers"
	"github.com/danielhkuo/gotm/middleware"
	"github.com/danielhkuo/gotm/resultcache"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, cache *resultcache.Cache) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	electionHandler := handlers.NewElectionHandler(db, cfg, cache)
	votingHandler := handlers.NewVotingHandler(db, cfg, cache)
	resultsHandler := handlers.NewResultsHandler(db, cfg)
	deviceHandler := handlers.NewDeviceHandler(db, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	// Election management (admin operations)
	mux.HandleFunc("POST /elections", middleware.WithLogging(electionHandler.CreateElection))
	mux.HandleFunc("GET /elections/{id}/admin", middleware.WithLogging(electionHandler.GetElectionAdmin))
	mux.HandleFunc("POST /elections/{id}/jury", middleware.WithLogging(electionHandler.StartJury))
	mux.HandleFunc("POST /elections/{id}/nominations/{nid}/select", middleware.WithLogging(electionHandler.SelectNomination))
	mux.HandleFunc("POST /elections/{id}/open-voting", middleware.WithLogging(electionHandler.OpenVoting))
	mux.HandleFunc("GET /elections/{id}/live-results/{category}", middleware.WithLogging(electionHandler.LiveResults))
	mux.HandleFunc("POST /elections/{id}/close", middleware.WithLogging(electionHandler.CloseElection))

	// Voting operations (public)
	mux.HandleFunc("POST /elections/{slug}/claim-username", middleware.WithLogging(votingHandler.ClaimUsername))
	mux.HandleFunc("POST /elections/{slug}/nominations", middleware.WithLogging(votingHandler.Nominate))
	mux.HandleFunc("POST /elections/{slug}/ballots", middleware.WithLogging(votingHandler.SubmitBallot))
	mux.HandleFunc("GET /elections/{slug}/my-ballot", middleware.WithLogging(votingHandler.GetMyBallot))

	// Results retrieval (public, sealed until close)
	mux.HandleFunc("GET /elections/{slug}", middleware.WithLogging(resultsHandler.GetElection))
	mux.HandleFunc("GET /elections/{slug}/ballot-count", middleware.WithLogging(resultsHandler.GetBallotCount))
	mux.HandleFunc("GET /elections/{slug}/results/{category}", middleware.WithLogging(resultsHandler.GetResults))
	mux.HandleFunc("GET /history", middleware.WithLogging(resultsHandler.GetHistory))

	// Device management
	mux.HandleFunc("POST /devices/register", middleware.WithLogging(deviceHandler.Register))
	mux.HandleFunc("GET /devices/me", middleware.WithLogging(deviceHandler.GetMe))
	mux.HandleFunc("GET /devices/my-elections", middleware.WithLogging(deviceHandler.GetMyElections))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("gotm API v1"))
	})

	return mux
}
