// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func TestOpen_RejectsUnknownType(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("Expected error for unsupported database type")
	}
}

func TestCreateSchema_Idempotent(t *testing.T) {
	conn, err := Open(TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		if err := CreateSchema(conn); err != nil {
			t.Fatalf("CreateSchema call %d failed: %v", i+1, err)
		}
	}

	var count int
	err = conn.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type = 'table' AND name IN ('election', 'nomination', 'ballot', 'ranking', 'result_snapshot')
	`).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to list tables: %v", err)
	}
	if count != 5 {
		t.Errorf("Expected 5 core tables, got %d", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	conn, err := Open(TypeSQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer conn.Close()
	if err := CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	insert := `INSERT INTO device (id, device_uuid, platform) VALUES ($1, $2, $3)`
	if _, err := conn.Exec(insert, "d1", "uuid-1", "ios"); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	_, dupErr := conn.Exec(insert, "d2", "uuid-1", "ios")
	if dupErr == nil {
		t.Fatal("Expected duplicate device_uuid to fail")
	}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sqlite duplicate", dupErr, true},
		{"wrapped sqlite duplicate", fmt.Errorf("insert: %w", dupErr), true},
		{"postgres duplicate", &pq.Error{Code: "23505"}, true},
		{"postgres other", &pq.Error{Code: "23503"}, false},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
