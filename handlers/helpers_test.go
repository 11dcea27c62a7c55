// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/gotm/cliparse"
	"github.com/danielhkuo/gotm/resultcache"
	"github.com/danielhkuo/gotm/testutil"
)

type testEnv struct {
	db       *sql.DB
	cfg      cliparse.Config
	cache    *resultcache.Cache
	election *ElectionHandler
	voting   *VotingHandler
	results  *ResultsHandler
	devices  *DeviceHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cache, err := resultcache.New(cfg.ResultCacheSize, TabulationLoader(db))
	if err != nil {
		t.Fatalf("Failed to create result cache: %v", err)
	}

	return &testEnv{
		db:       db,
		cfg:      cfg,
		cache:    cache,
		election: NewElectionHandler(db, cfg, cache),
		voting:   NewVotingHandler(db, cfg, cache),
		results:  NewResultsHandler(db, cfg),
		devices:  NewDeviceHandler(db, cfg),
	}
}

// serve runs a handler against a request built by testutil.MakeRequest,
// filling in the given path values
func serve(h http.HandlerFunc, req *http.Request, pathValues map[string]string) *httptest.ResponseRecorder {
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

// gameNight seeds a voting election whose "main" category resolves in three
// rounds: Tunic is eliminated first and transfers to Celeste, then Hades'
// single-choice ballots exhaust and Celeste wins with 5 votes.
type gameNight struct {
	electionID, adminKey, slug string
	hades, celeste, tunic      string
}

func seedGameNight(t *testing.T, env *testEnv, categories ...string) gameNight {
	t.Helper()

	g := gameNight{}
	g.electionID, g.adminKey, g.slug = testutil.CreateTestElection(t, env.db, env.cfg, "voting", categories...)
	g.hades = testutil.AddTestNomination(t, env.db, g.electionID, "main", "Hades", true)
	g.celeste = testutil.AddTestNomination(t, env.db, g.electionID, "main", "Celeste", true)
	g.tunic = testutil.AddTestNomination(t, env.db, g.electionID, "main", "Tunic", true)

	ballots := [][]string{
		{g.hades}, {g.hades}, {g.hades}, {g.hades},
		{g.celeste, g.hades}, {g.celeste, g.hades}, {g.celeste, g.hades},
		{g.tunic, g.celeste}, {g.tunic, g.celeste},
	}
	for i, ranking := range ballots {
		voter := testutil.CreateTestVoter(t, env.db, g.electionID, "voter"+string(rune('a'+i)))
		testutil.SubmitTestBallot(t, env.db, g.electionID, "main", voter, ranking)
	}

	return g
}
