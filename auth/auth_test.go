// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

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
			// Verify it's valid hex
			for _, c := range id {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("GenerateID() contains invalid hex char: %c", c)
				}
			}
		})
	}

	// Test randomness - two IDs should be different
	id1, _ := GenerateID(16)
	id2, _ := GenerateID(16)
	if id1 == id2 {
		t.Error("GenerateID() produced duplicate IDs (extremely unlikely)")
	}
}

func TestGenerateResetToken(t *testing.T) {
	token, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("GenerateResetToken() error = %v", err)
	}

	// 24 bytes base64 without padding = 32 chars
	if len(token) != 32 {
		t.Errorf("GenerateResetToken() length = %d, want 32", len(token))
	}
	if strings.ContainsAny(token, "+/=") {
		t.Errorf("GenerateResetToken() is not URL-safe: %s", token)
	}

	other, _ := GenerateResetToken()
	if token == other {
		t.Error("GenerateResetToken() produced duplicate tokens (extremely unlikely)")
	}
}

func TestHashToken(t *testing.T) {
	h1 := HashToken("abc")
	if len(h1) != 64 {
		t.Errorf("HashToken() length = %d, want 64", len(h1))
	}
	if h1 != HashToken("abc") {
		t.Error("HashToken() is not deterministic")
	}
	if h1 == HashToken("abd") {
		t.Error("HashToken() produced same digest for different tokens")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("HashPassword() returned the plain password")
	}

	if err := CheckPassword(hash, "correct horse"); err != nil {
		t.Errorf("CheckPassword() rejected the right password: %v", err)
	}
	if err := CheckPassword(hash, "wrong horse"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("CheckPassword() error = %v, want ErrInvalidPassword", err)
	}

	if _, err := HashPassword("short"); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("HashPassword() should reject short passwords, got %v", err)
	}
	if _, err := HashPassword(strings.Repeat("x", MaxPasswordLength+1)); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("HashPassword() should reject passwords over %d bytes, got %v", MaxPasswordLength, err)
	}
	if _, err := HashPassword(strings.Repeat("x", MaxPasswordLength)); err != nil {
		t.Errorf("HashPassword() rejected a %d byte password: %v", MaxPasswordLength, err)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	secret := []byte("session-secret")

	token, expiresAt, err := IssueSession("user-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Errorf("IssueSession() expiry too early: %v", expiresAt)
	}

	userID, err := ParseSession(token, secret)
	if err != nil {
		t.Fatalf("ParseSession() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("ParseSession() user = %q, want user-1", userID)
	}
}

func TestParseSessionRejects(t *testing.T) {
	secret := []byte("session-secret")
	expired, _, err := IssueSession("user-1", secret, -time.Minute)
	if err != nil {
		t.Fatalf("IssueSession() error = %v", err)
	}
	valid, _, _ := IssueSession("user-1", secret, time.Hour)

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{"expired", expired, secret},
		{"wrong secret", valid, []byte("other")},
		{"garbage", "not-a-jwt", secret},
		{"empty", "", secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSession(tt.token, tt.secret); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("ParseSession() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestHashIP(t *testing.T) {
	tests := []struct {
		name string
		ip   string
		salt string
	}{
		{"IPv4", "192.168.1.1", "ip-salt"},
		{"IPv6", "2001:0db8:85a3::8a2e:0370:7334", "ip-salt"},
		{"localhost", "127.0.0.1", "ip-salt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash := HashIP(tt.ip, tt.salt)

			// Should not be empty
			if hash == "" {
				t.Error("HashIP() returned empty string")
			}

			// Should be 16 hex characters (8 bytes * 2)
			if len(hash) != 16 {
				t.Errorf("HashIP() length = %d, want 16", len(hash))
			}

			// Should be valid hex
			for _, c := range hash {
				if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
					t.Errorf("HashIP() contains invalid hex char: %c", c)
				}
			}

			// Should be deterministic
			hash2 := HashIP(tt.ip, tt.salt)
			if hash != hash2 {
				t.Error("HashIP() is not deterministic")
			}
		})
	}

	// Different IPs should produce different hashes
	hash1 := HashIP("192.168.1.1", "salt")
	hash2 := HashIP("192.168.1.2", "salt")
	if hash1 == hash2 {
		t.Error("HashIP() produced same hash for different IPs")
	}

	// Different salts should produce different hashes
	hash3 := HashIP("192.168.1.1", "salt1")
	hash4 := HashIP("192.168.1.1", "salt2")
	if hash3 == hash4 {
		t.Error("HashIP() produced same hash for different salts")
	}
}

// Benchmark tests
func BenchmarkGenerateID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		GenerateID(16)
	}
}

func BenchmarkHashIP(b *testing.B) {
	for i := 0; i < b.N; i++ {
		HashIP("192.168.1.1", "salt")
	}
}
