package token

import (
	"testing"
)

func TestIssueAndParse(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed, err := Issue(42, "alice", "alice@example.com", true)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := Parse(signed)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("uid = %d, want 42", claims.UserID)
	}
	if claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("identity = %q/%q", claims.Username, claims.Email)
	}
	if !claims.IsAdmin {
		t.Fatalf("admin flag lost")
	}
}

func TestParse_RejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "first-secret")
	signed, err := Issue(1, "bob", "bob@example.com", false)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	t.Setenv("JWT_SECRET", "other-secret")
	if _, err := Parse(signed); err == nil {
		t.Fatalf("token signed with a different secret must be rejected")
	}
}

func TestParse_RejectsGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	if _, err := Parse("not.a.token"); err == nil {
		t.Fatalf("garbage input must be rejected")
	}
	if _, err := Parse(""); err == nil {
		t.Fatalf("empty input must be rejected")
	}
}
