// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Connections

Open selects the driver by type:

	conn, err := db.Open(db.TypePostgres, "postgres://...")
	conn, err := db.Open(db.TypeSQLite, "file:gotm.db")

PostgreSQL uses github.com/lib/pq and SQLite uses modernc.org/sqlite.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - election: monthly election metadata and lifecycle state
  - election_category: categories of an election, in display order
  - username_claim: maps usernames to voter tokens
  - nomination: games nominated per category; selected ones are candidates
  - ballot: one ballot per voter per category
  - ranking: ordered preferences of a ballot
  - result_snapshot: immutable IRV results per category
  - device: registered devices
  - device_election: links devices to elections

# Relationships

	election 1──* election_category
	election 1──* username_claim
	election 1──* nomination
	election 1──* ballot
	ballot 1──* ranking *──1 nomination
	election 1──* result_snapshot
	device *──* election (via device_election)

# Errors

IsUniqueViolation recognizes unique constraint failures from both drivers.
*/
package db
