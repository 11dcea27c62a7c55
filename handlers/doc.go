// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Game of the Month API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - ElectionHandler: Election lifecycle (create, jury, open voting, close)
  - VotingHandler: Username claims, nominations and ranked ballots
  - ResultsHandler: Election info, sealed results and history
  - DeviceHandler: Device registration and election history

Handlers that read or invalidate live tabulations also take the result cache:

	cache, _ := resultcache.New(cfg.ResultCacheSize, handlers.TabulationLoader(db))
	electionHandler := handlers.NewElectionHandler(db, cfg, cache)

# Election Lifecycle

Elections progress through four states: nominating → jury → voting → closed

	POST /elections                               → CreateElection (returns admin_key)
	POST /elections/{id}/jury                     → StartJury
	POST /elections/{id}/nominations/{nid}/select → SelectNomination (jury only)
	POST /elections/{id}/open-voting              → OpenVoting (2+ candidates somewhere)
	GET  /elections/{id}/live-results/{category}  → LiveResults (voting only)
	POST /elections/{id}/close                    → CloseElection (one snapshot per category)

Admin operations require the X-Admin-Key header.

# Voting Flow

Voters interact via the share slug:

	POST /elections/{slug}/claim-username → ClaimUsername (returns voter_token)
	POST /elections/{slug}/nominations    → Nominate (nominating only)
	POST /elections/{slug}/ballots        → SubmitBallot (create or replace)
	GET  /elections/{slug}/my-ballot      → GetMyBallot

Voter operations require the X-Voter-Token header. A ballot names candidates
by nomination ID, most preferred first.

# Tabulation

ComputeResult loads the selected nominations and ranked ballots of one
category, drops candidates nobody ranked first, and runs instant-runoff:

	result, err := handlers.ComputeResult(ctx, db, electionID, "main")

Closing an election runs it inside the closing transaction for every
category. A category whose tabulation fails is stored with an empty result.

# Device Tracking

Optional device tracking for native apps:

	POST /devices/register    → Register
	GET  /devices/me          → GetMe
	GET  /devices/my-elections → GetMyElections

Device operations require an X-Device-UUID header holding a UUID.
*/
package handlers
