// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Game of the Month API server.

A group nominates games for the month, a jury picks the candidates from the
nominations, members rank the candidates, and Instant Runoff Voting (IRV)
picks a winner per category. Closing an election seals one result snapshot
per category, including the round-by-round elimination graph.

# Starting the Server

The server reads a .env file, environment variables or CLI flags:

	ADMIN_KEY_SALT=... ELECTION_SLUG_SALT=... DATABASE_URL=gotm.db go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." --admin-salt ... --slug-salt ...

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file/DSN or PostgreSQL connection string
  - ADMIN_KEY_SALT (--admin-salt): Secret for admin key HMAC
  - ELECTION_SLUG_SALT (--slug-salt): Secret for share slug generation

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - BASE_URL (--base-url): Public URL used in share links
  - RESULT_CACHE_SIZE (--cache-size): Cached live tabulations (default: 256)

# Architecture

  - irv: Ballot tabulation and the elimination graph
  - resultcache: LRU of live tabulations with singleflight loading
  - handlers: HTTP request handlers (elections, voting, results, devices)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, metrics, JSON decoding and validation
  - metrics: Prometheus collectors
  - models: Request/response types
  - auth: Token generation and validation
  - db: Connection and schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
