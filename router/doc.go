// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Game of the Month API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	cache, _ := resultcache.New(cfg.ResultCacheSize, handlers.TabulationLoader(db))
	mux := router.NewRouter(db, cfg, cache)

# Endpoints

Health and metrics:

	GET /health
	GET /metrics

Election management (admin, requires X-Admin-Key):

	POST /elections                                  - Create election
	GET  /elections/{id}/admin                       - Election with all nominations
	POST /elections/{id}/jury                        - Close nominations
	POST /elections/{id}/nominations/{nid}/select    - Mark a nomination as a candidate
	POST /elections/{id}/open-voting                 - Open ballots
	GET  /elections/{id}/live-results/{category}     - Provisional IRV result
	POST /elections/{id}/close                       - Seal results

Voting (public, uses share slug):

	POST /elections/{slug}/claim-username - Claim voter identity
	POST /elections/{slug}/nominations    - Nominate a game
	POST /elections/{slug}/ballots        - Submit/replace ranked ballot
	GET  /elections/{slug}/my-ballot      - Caller's ballot

Results (public):

	GET /elections/{slug}                     - Election info and candidates
	GET /elections/{slug}/ballot-count        - Ballots per category
	GET /elections/{slug}/results/{category}  - Sealed IRV result (closed only)
	GET /history                              - Past winners

Device management:

	POST /devices/register     - Register device
	GET  /devices/me           - Get device info
	GET  /devices/my-elections - List device's elections

Election and voting routes share the /elections/{x} prefix; the admin
routes read the wildcard as an election ID and the public ones as a
share slug.
*/
package router
