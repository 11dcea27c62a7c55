// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags loads a .env file when one exists, then returns a Config:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: postgres connection string or sqlite file path (required)
  - DatabaseType: "sqlite" (default) or "postgres"
  - BaseURL: Prefix for share links (default: http://localhost:<port>)
  - ResultCacheSize: Live result cache entries (default: 256)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - SlugSalt: Secret for share slug generation (required)

# CLI Flags

	-p            Server port
	-d            Database URL
	-t            Database type
	-base-url     Share link prefix
	-cache-size   Live result cache entries
	-admin-salt   Admin key salt
	-slug-salt    Election slug salt

# Environment Variables

Flags fall back to environment variables:

	PORT               → -p
	DATABASE_URL       → -d
	DATABASE_TYPE      → -t
	BASE_URL           → -base-url
	RESULT_CACHE_SIZE  → -cache-size
	ADMIN_KEY_SALT     → -admin-salt
	ELECTION_SLUG_SALT → -slug-salt

CLI flags take precedence over environment variables, and real environment
variables take precedence over .env entries.

# Validation

ParseFlags returns an error if:

  - DATABASE_URL, ADMIN_KEY_SALT or ELECTION_SLUG_SALT is missing
  - PORT or RESULT_CACHE_SIZE is not a positive integer
  - DATABASE_TYPE is not sqlite or postgres

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	// ...
	mux := router.NewRouter(conn, cfg, cache)
*/
package cliparse
