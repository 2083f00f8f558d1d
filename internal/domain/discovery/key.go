// Package discovery defines the cache key, invalidation scope and ranked result
// for discovery requests.
package discovery

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
)

// CacheKey is a fixed-width hex SHA-256 digest. It is not reversible.
type CacheKey string

// DeriveKey builds the cache key for an owner and a set of query terms.
// Terms are trimmed, de-duplicated and sorted, so their order never changes the key.
// Each part is length-prefixed before hashing: no owner or term content can
// make two different inputs encode alike.
func DeriveKey(ownerID string, terms []string) (CacheKey, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: owner id is required", domain.ErrValidation)
	}

	h := sha256.New()
	writePart(h, ownerID)
	for _, t := range NormalizeTerms(terms) {
		writePart(h, t)
	}
	return CacheKey(hex.EncodeToString(h.Sum(nil))), nil
}

func writePart(w io.Writer, s string) {
	_, _ = io.WriteString(w, strconv.Itoa(len(s)))
	_, _ = io.WriteString(w, ":")
	_, _ = io.WriteString(w, s)
}

// NormalizeTerms returns the sorted set of non-empty trimmed terms.
func NormalizeTerms(terms []string) []string {
	seen := make(map[string]struct{}, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Scope selects which cache entries an invalidation removes.
type Scope struct {
	ownerID string
}

// AllScope invalidates every entry.
func AllScope() Scope { return Scope{} }

// OwnerScope invalidates the entries of a single owner.
func OwnerScope(ownerID string) Scope { return Scope{ownerID: ownerID} }

// IsAll reports whether the scope covers every owner.
func (s Scope) IsAll() bool { return s.ownerID == "" }

// OwnerID returns the owner for an owner scope, or "" for AllScope.
func (s Scope) OwnerID() string { return s.ownerID }

func (s Scope) String() string {
	if s.IsAll() {
		return "all"
	}
	return "owner:" + s.ownerID
}
