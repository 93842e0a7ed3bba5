package session

import (
	"strings"
	"testing"
)

func TestGetOrCreate_MintsNewID(t *testing.T) {
	svc := New()

	id, created, err := svc.GetOrCreate("")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !created {
		t.Fatalf("expected a new id to be minted")
	}
	if !strings.HasPrefix(id, "sess_") {
		t.Fatalf("minted id %q missing prefix", id)
	}
	if !IsWellFormed(id) {
		t.Fatalf("minted id %q should be well-formed", id)
	}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	svc := New()

	first, _, err := svc.GetOrCreate("")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	second, created, err := svc.GetOrCreate(first)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if created {
		t.Fatalf("valid id should not be replaced")
	}
	if second != first {
		t.Fatalf("got %q, want %q", second, first)
	}
}

func TestGetOrCreate_AcceptsLegacyIDs(t *testing.T) {
	svc := New()

	legacy := "session_1700000000000_abcdef"
	id, created, err := svc.GetOrCreate(legacy)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if created || id != legacy {
		t.Fatalf("legacy id should pass through, got %q created=%v", id, created)
	}
}

func TestGetOrCreate_ReplacesMalformedIDs(t *testing.T) {
	svc := New()

	cases := []string{
		"short",
		"sess_short",
		"no-known-prefix-but-long-enough",
		"sess_" + strings.Repeat("x", 200),
	}
	for _, malformed := range cases {
		id, created, err := svc.GetOrCreate(malformed)
		if err != nil {
			t.Fatalf("GetOrCreate(%q): %v", malformed, err)
		}
		if !created {
			t.Errorf("GetOrCreate(%q): expected replacement", malformed)
		}
		if id == malformed {
			t.Errorf("GetOrCreate(%q): malformed id passed through", malformed)
		}
	}
}

func TestMintedIDsAreUnique(t *testing.T) {
	svc := New()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _, err := svc.GetOrCreate("")
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
