package discovery

import (
	"errors"
	"testing"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
)

func mustKey(t *testing.T, owner string, terms ...string) CacheKey {
	t.Helper()
	k, err := DeriveKey(owner, terms)
	if err != nil {
		t.Fatalf("DeriveKey(%q, %v): %v", owner, terms, err)
	}
	return k
}

func TestDeriveKey_OrderIndependent(t *testing.T) {
	a := mustKey(t, "u1", "fundraising", "cofounder")
	b := mustKey(t, "u1", "cofounder", "fundraising")
	if a != b {
		t.Errorf("keys differ for reordered terms: %s vs %s", a, b)
	}
}

func TestDeriveKey_OwnerMatters(t *testing.T) {
	if mustKey(t, "u1", "a") == mustKey(t, "u2", "a") {
		t.Error("different owners must yield different keys")
	}
}

func TestDeriveKey_TermsMatter(t *testing.T) {
	if mustKey(t, "u1", "a") == mustKey(t, "u1", "b") {
		t.Error("different terms must yield different keys")
	}
}

func TestDeriveKey_SeparatorsInTermsDoNotCollide(t *testing.T) {
	tests := []struct {
		name   string
		ownerA string
		termsA []string
		ownerB string
		termsB []string
	}{
		{"pipe inside a term", "u1", []string{"a|b"}, "u1", []string{"a", "b"}},
		{"colon across owner and term", "u1:x", []string{"y"}, "u1", []string{"x:y"}},
		{"length-like term", "u1", []string{"1:a"}, "u1", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if mustKey(t, tt.ownerA, tt.termsA...) == mustKey(t, tt.ownerB, tt.termsB...) {
				t.Errorf("(%q, %q) and (%q, %q) share a key", tt.ownerA, tt.termsA, tt.ownerB, tt.termsB)
			}
		})
	}
}

func TestDeriveKey_SetSemantics(t *testing.T) {
	a := mustKey(t, "u1", "seed", " seed ", "", "hiring")
	b := mustKey(t, "u1", "hiring", "seed")
	if a != b {
		t.Errorf("duplicate and blank terms must not change the key: %s vs %s", a, b)
	}
}

func TestDeriveKey_FixedWidth(t *testing.T) {
	for _, terms := range [][]string{nil, {"a"}, {"a", "b", "c", "d"}} {
		if k := mustKey(t, "owner", terms...); len(k) != 64 {
			t.Errorf("len(key) = %d, want 64", len(k))
		}
	}
}

func TestDeriveKey_EmptyOwner(t *testing.T) {
	for _, owner := range []string{"", "   "} {
		_, err := DeriveKey(owner, []string{"a"})
		if !errors.Is(err, domain.ErrValidation) {
			t.Errorf("owner %q: err = %v, want ErrValidation", owner, err)
		}
	}
}

func TestScope(t *testing.T) {
	if !AllScope().IsAll() {
		t.Error("AllScope must be all")
	}
	s := OwnerScope("u9")
	if s.IsAll() || s.OwnerID() != "u9" {
		t.Errorf("OwnerScope = %v", s)
	}
	if s.String() != "owner:u9" || AllScope().String() != "all" {
		t.Errorf("unexpected String(): %q, %q", s.String(), AllScope().String())
	}
}
