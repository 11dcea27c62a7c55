// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielhkuo/gotm/irv"
	"github.com/danielhkuo/gotm/models"
	"github.com/danielhkuo/gotm/testutil"
)

func closeGameNight(t *testing.T, env *testEnv, g gameNight) {
	t.Helper()
	req := testutil.MakeRequest("POST", "/", nil, map[string]string{"X-Admin-Key": g.adminKey})
	w := serve(env.election.CloseElection, req, map[string]string{"id": g.electionID})
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestGetElection(t *testing.T) {
	env := newTestEnv(t)
	electionID, _, slug := testutil.CreateTestElection(t, env.db, env.cfg, "voting", "main", "short")
	testutil.AddTestNomination(t, env.db, electionID, "main", "Hades", true)
	testutil.AddTestNomination(t, env.db, electionID, "main", "Celeste", true)
	testutil.AddTestNomination(t, env.db, electionID, "main", "Unpicked", false)

	req := testutil.MakeRequest("GET", "/elections/"+slug, nil, nil)
	w := serve(env.results.GetElection, req, map[string]string{"slug": slug})
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ElectionWithCandidates
	testutil.AssertJSON(t, w, &resp)

	if resp.Election.ID != electionID || resp.Election.Method != models.MethodIRV {
		t.Errorf("Unexpected election %+v", resp.Election)
	}
	if len(resp.Candidates["main"]) != 2 {
		t.Errorf("Expected 2 main candidates, got %+v", resp.Candidates["main"])
	}
	if resp.Candidates["main"][0].GameName != "Celeste" {
		t.Errorf("Expected candidates sorted by name, got %+v", resp.Candidates["main"])
	}
	short, ok := resp.Candidates["short"]
	if !ok || len(short) != 0 {
		t.Errorf("Expected an empty short category, got %v (present=%v)", short, ok)
	}

	req = testutil.MakeRequest("GET", "/elections/missing", nil, nil)
	w = serve(env.results.GetElection, req, map[string]string{"slug": "missing"})
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestGetBallotCount(t *testing.T) {
	env := newTestEnv(t)
	g := seedGameNight(t, env, "main", "short")

	req := testutil.MakeRequest("GET", "/", nil, nil)
	w := serve(env.results.GetBallotCount, req, map[string]string{"slug": g.slug})
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.BallotCountResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.BallotCount != 9 || resp.Categories["main"] != 9 {
		t.Errorf("Expected 9 ballots in main, got %+v", resp)
	}
	if count, ok := resp.Categories["short"]; !ok || count != 0 {
		t.Errorf("Expected short to report 0, got %d (present=%v)", count, ok)
	}
}

func TestGetResults_SealedUntilClosed(t *testing.T) {
	env := newTestEnv(t)
	g := seedGameNight(t, env)

	req := testutil.MakeRequest("GET", "/", nil, nil)
	w := serve(env.results.GetResults, req, map[string]string{"slug": g.slug, "category": "main"})
	testutil.AssertStatus(t, w, http.StatusForbidden)
}

func TestGetResults(t *testing.T) {
	env := newTestEnv(t)
	g := seedGameNight(t, env)
	closeGameNight(t, env, g)

	req := testutil.MakeRequest("GET", "/", nil, nil)
	w := serve(env.results.GetResults, req, map[string]string{"slug": g.slug, "category": "main"})
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ResultsResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.Election.Status != models.StatusClosed || resp.Election.ClosedAt == nil {
		t.Errorf("Expected a closed election, got %+v", resp.Election)
	}
	if resp.BallotCount != 9 {
		t.Errorf("Expected 9 ballots, got %d", resp.BallotCount)
	}
	if resp.Winner == nil || resp.Winner.CandidateID != g.celeste {
		t.Fatalf("Expected Celeste to win, got %+v", resp.Winner)
	}
	if len(resp.LegacyEdges) != 0 {
		t.Error("Expected explicit edges only")
	}

	winner, ok := irv.Winner(resp.Edges)
	if !ok || winner != *resp.Winner {
		t.Errorf("Expected the edge graph to agree on the winner, got %+v", winner)
	}

	t.Run("legacy format", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/?format=legacy", nil, nil)
		w := serve(env.results.GetResults, req, map[string]string{"slug": g.slug, "category": "main"})
		testutil.AssertStatus(t, w, http.StatusOK)

		var legacy models.ResultsResponse
		testutil.AssertJSON(t, w, &legacy)
		if len(legacy.Edges) != 0 {
			t.Error("Expected explicit edges to be replaced")
		}
		label, ok := irv.LegacyWinner(legacy.LegacyEdges)
		if !ok || label != "Celeste (5)    " {
			t.Errorf("Expected legacy winner label %q, got %q", "Celeste (5)    ", label)
		}
		if irv.RoundFromLabel(label) != 4 {
			t.Errorf("Expected round 4 from label, got %d", irv.RoundFromLabel(label))
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/?format=csv", nil, nil)
		w := serve(env.results.GetResults, req, map[string]string{"slug": g.slug, "category": "main"})
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})

	t.Run("unknown category", func(t *testing.T) {
		req := testutil.MakeRequest("GET", "/", nil, nil)
		w := serve(env.results.GetResults, req, map[string]string{"slug": g.slug, "category": "short"})
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t)

	march := seedGameNight(t, env)
	april := seedGameNight(t, env, "main", "short")
	env.db.Exec("UPDATE election SET month = '2025-04', title = 'April' WHERE id = $1", april.electionID)
	closeGameNight(t, env, march)
	closeGameNight(t, env, april)

	// still voting, never listed
	testutil.CreateTestElection(t, env.db, env.cfg, "voting")

	req := testutil.MakeRequest("GET", "/history", nil, nil)
	w := serve(env.results.GetHistory, req, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.HistoryResponse
	testutil.AssertJSON(t, w, &resp)

	if len(resp.Elections) != 2 {
		t.Fatalf("Expected 2 closed elections, got %d", len(resp.Elections))
	}
	if resp.Elections[0].ElectionID != april.electionID {
		t.Errorf("Expected April first, got %s", resp.Elections[0].Month)
	}

	// the ballot-less short category has no winner
	for _, entry := range resp.Elections {
		if len(entry.Winners) != 1 {
			t.Fatalf("Expected one winner for %s, got %+v", entry.Month, entry.Winners)
		}
		want := models.CategoryWinner{Category: "main", GameName: "Celeste", Votes: 5}
		if entry.Winners[0] != want {
			t.Errorf("Expected %+v, got %+v", want, entry.Winners[0])
		}
		if entry.ClosedAt == nil || time.Since(*entry.ClosedAt) > time.Minute {
			t.Errorf("Expected a recent closed_at, got %v", entry.ClosedAt)
		}
	}
}

func TestSnapshotWinner(t *testing.T) {
	celesteFinal := irv.Vertex{CandidateID: "a", Name: "Celeste", Round: 3, Votes: 5}
	celeste2 := irv.Vertex{CandidateID: "a", Name: "Celeste", Round: 2, Votes: 5}
	hades2 := irv.Vertex{CandidateID: "b", Name: "Hades", Round: 2, Votes: 4}
	hades1 := irv.Vertex{CandidateID: "b", Name: "Hades", Round: 1, Votes: 4}
	celeste1 := irv.Vertex{CandidateID: "a", Name: "Celeste", Round: 1, Votes: 5}
	edges := []irv.Edge{
		{Source: celeste1, Target: celeste2, Weight: 5, Kind: irv.EdgeSurvival},
		{Source: hades1, Target: hades2, Weight: 4, Kind: irv.EdgeSurvival},
		{Source: celeste2, Target: celesteFinal, Weight: 5, Kind: irv.EdgeFinal},
	}

	tests := []struct {
		name    string
		payload snapshotPayload
		want    *irv.Vertex
	}{
		{"stored and graph agree", snapshotPayload{Winner: &celesteFinal, Edges: edges}, &celesteFinal},
		{"graph fills missing winner", snapshotPayload{Edges: edges}, &celesteFinal},
		{"single candidate has no edges", snapshotPayload{Winner: &celeste1}, &celeste1},
		{"stored winner kept on disagreement", snapshotPayload{Winner: &hades2, Edges: edges}, &hades2},
		{"empty result", snapshotPayload{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snapshotWinner("e1", "main", tt.payload)
			if tt.want == nil {
				if got != nil {
					t.Errorf("Expected no winner, got %+v", got)
				}
				return
			}
			if got == nil || *got != *tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestGetHistory_WinnerFromGraph(t *testing.T) {
	env := newTestEnv(t)
	g := seedGameNight(t, env)
	closeGameNight(t, env, g)

	// drop the stored winner so history has to read the graph
	snap, err := loadSnapshot(context.Background(), env.db, g.electionID, "main")
	if err != nil {
		t.Fatalf("Failed to load snapshot: %v", err)
	}
	payload, _ := json.Marshal(snapshotPayload{Rounds: snap.Rounds, Edges: snap.Edges, InputsHash: snap.InputsHash})
	env.db.Exec("UPDATE result_snapshot SET payload = $1 WHERE id = $2", string(payload), snap.ID)

	req := testutil.MakeRequest("GET", "/history", nil, nil)
	w := serve(env.results.GetHistory, req, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.HistoryResponse
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Elections) != 1 || len(resp.Elections[0].Winners) != 1 {
		t.Fatalf("Expected one election with one winner, got %+v", resp.Elections)
	}
	want := models.CategoryWinner{Category: "main", GameName: "Celeste", Votes: 5}
	if resp.Elections[0].Winners[0] != want {
		t.Errorf("Expected %+v, got %+v", want, resp.Elections[0].Winners[0])
	}
}
