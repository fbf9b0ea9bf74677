package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTer() *JWTer {
	return &JWTer{
		Secret:     []byte("test-secret"),
		Issuer:     "lendtrack-test",
		TTL:        time.Hour,
		Inactivity: 2 * time.Hour,
	}
}

func TestIssueAndParse(t *testing.T) {
	j := testJWTer()
	tok, err := j.Issue("ana@example.com", true)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email != "ana@example.com" || !claims.Admin {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if claims.LastActivity == 0 {
		t.Fatal("expected LastActivity to be stamped")
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	j := testJWTer()
	tok, err := j.Issue("ana@example.com", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other := testJWTer()
	other.Secret = []byte("different")
	if _, err := other.Parse(tok); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	j := testJWTer()
	tok, err := j.Issue("ana@example.com", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	other := testJWTer()
	other.Issuer = "someone-else"
	if _, err := other.Parse(tok); err == nil {
		t.Fatal("expected parse failure with wrong issuer")
	}
}

func TestRefreshWithinWindow(t *testing.T) {
	j := testJWTer()
	tok, err := j.Issue("ana@example.com", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	refreshed, err := j.Refresh(claims)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed == "" {
		t.Fatal("expected a re-issued token")
	}
}

func TestRefreshAfterInactivity(t *testing.T) {
	j := testJWTer()
	tok, err := j.Issue("ana@example.com", false)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := j.Parse(tok)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	claims.LastActivity = time.Now().Add(-3 * time.Hour).Unix()
	if _, err := j.Refresh(claims); !errors.Is(err, ErrInactive) {
		t.Fatalf("expected ErrInactive, got %v", err)
	}
}
