// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"strings"
	"testing"
)

func isHex(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}

func isBase62(s string) bool {
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return false
		}
	}
	return true
}

func TestGenerateID(t *testing.T) {
	tests := []struct {
		name    string
		byteLen int
		wantLen int // hex encoded length = byteLen * 2
	}{
		{"8 bytes", 8, 16},
		{"16 bytes", 16, 32},
		{"24 bytes", 24, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := GenerateID(tt.byteLen)
			if err != nil {
				t.Fatalf("GenerateID() error = %v", err)
			}
			if len(id) != tt.wantLen {
				t.Errorf("GenerateID() length = %d, want %d", len(id), tt.wantLen)
			}
			if !isHex(id) {
				t.Errorf("GenerateID() is not hex: %s", id)
			}
		})
	}

	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestValidateAdminKey(t *testing.T) {
	electionID := "election-2025-10"
	salt := "test-salt"
	validKey := GenerateAdminKey(electionID, salt)

	if strings.Contains(validKey, "=") {
		t.Error("GenerateAdminKey() contains padding characters")
	}

	tests := []struct {
		name       string
		electionID string
		adminKey   string
		salt       string
		wantErr    bool
	}{
		{"valid key", electionID, validKey, salt, false},
		{"wrong key", electionID, "wrong-key", salt, true},
		{"wrong election id", "election-2025-11", validKey, salt, true},
		{"wrong salt", electionID, validKey, "different-salt", true},
		{"empty key", electionID, "", salt, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.electionID, tt.adminKey, tt.salt)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAdminKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != ErrInvalidAdminKey {
				t.Errorf("ValidateAdminKey() error = %v, want %v", err, ErrInvalidAdminKey)
			}
		})
	}
}

func TestVoterToken(t *testing.T) {
	tokens := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateVoterToken()
		if err != nil {
			t.Fatalf("GenerateVoterToken() error on iteration %d: %v", i, err)
		}
		if strings.Contains(token, "=") {
			t.Error("GenerateVoterToken() contains padding characters")
		}
		if err := ValidateVoterToken(token); err != nil {
			t.Errorf("ValidateVoterToken(%q) = %v", token, err)
		}
		if tokens[token] {
			t.Errorf("GenerateVoterToken() produced duplicate token: %s", token)
		}
		tokens[token] = true
	}

	for _, bad := range []string{"", "short", "not base64 at all!!", strings.Repeat("A", 10)} {
		if err := ValidateVoterToken(bad); err != ErrInvalidToken {
			t.Errorf("ValidateVoterToken(%q) = %v, want %v", bad, err, ErrInvalidToken)
		}
	}
}

func TestGenerateShareSlug(t *testing.T) {
	slug := GenerateShareSlug("election-abc", "slug-salt")
	if slug == "" || len(slug) > 15 {
		t.Errorf("GenerateShareSlug() bad length: %q", slug)
	}
	if !isBase62(slug) {
		t.Errorf("GenerateShareSlug() contains non-alphanumeric chars: %s", slug)
	}
	if slug != GenerateShareSlug("election-abc", "slug-salt") {
		t.Error("GenerateShareSlug() is not deterministic")
	}
	if slug == GenerateShareSlug("election-xyz", "slug-salt") {
		t.Error("GenerateShareSlug() produced same slug for different election IDs")
	}
	if slug == GenerateShareSlug("election-abc", "other-salt") {
		t.Error("GenerateShareSlug() produced same slug for different salts")
	}
}

func TestBase62Encode(t *testing.T) {
	if got := base62Encode([]byte{0, 0, 0, 0}); got != "0" {
		t.Errorf("base62Encode(zero) = %q, want \"0\"", got)
	}
	if got := base62Encode([]byte{0, 0, 0, 62}); got != "10" {
		t.Errorf("base62Encode(62) = %q, want \"10\"", got)
	}
	if out := base62Encode([]byte{255, 255, 255, 255, 255, 255, 255, 255}); !isBase62(out) {
		t.Errorf("base62Encode() contains invalid chars: %s", out)
	}
}

func TestNormalizeDeviceUUID(t *testing.T) {
	got, err := NormalizeDeviceUUID("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	if err != nil {
		t.Fatalf("NormalizeDeviceUUID() error = %v", err)
	}
	if got != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Errorf("NormalizeDeviceUUID() = %s", got)
	}

	if _, err := NormalizeDeviceUUID("device-1"); err != ErrInvalidDeviceUUID {
		t.Errorf("NormalizeDeviceUUID() error = %v, want %v", err, ErrInvalidDeviceUUID)
	}

	if NewSnapshotID() == NewSnapshotID() {
		t.Error("NewSnapshotID() produced duplicate IDs")
	}
}

func TestHashIP(t *testing.T) {
	hash := HashIP("192.168.1.1", "ip-salt")
	if len(hash) != 16 || !isHex(hash) {
		t.Errorf("HashIP() = %q, want 16 hex chars", hash)
	}
	if hash != HashIP("192.168.1.1", "ip-salt") {
		t.Error("HashIP() is not deterministic")
	}
	if hash == HashIP("192.168.1.2", "ip-salt") {
		t.Error("HashIP() produced same hash for different IPs")
	}
	if hash == HashIP("192.168.1.1", "other-salt") {
		t.Error("HashIP() produced same hash for different salts")
	}
}

func BenchmarkGenerateAdminKey(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateAdminKey("election-2025-10", "test-salt")
	}
}

func BenchmarkGenerateShareSlug(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateShareSlug("election-2025-10", "slug-salt")
	}
}
