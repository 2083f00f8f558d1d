// Package introduction persists introductions as JSON values keyed by id.
package introduction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	domintro "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/introduction"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

var keyPrefix = domain.KeyPrefix + "introduction:"

// DefaultTimeout bounds every store call.
const DefaultTimeout = 2 * time.Second

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
}

type row struct {
	ID           string         `json:"id"`
	RequesterID  string         `json:"requester_id"`
	TargetID     string         `json:"target_id"`
	MatchContext *match.Context `json:"match_context,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Repo implements usecase/introduction.Repository.
type Repo struct {
	store   store
	timeout time.Duration
}

// New creates an introduction repository. timeout <= 0 uses DefaultTimeout.
func New(s store, timeout time.Duration) *Repo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Repo{store: s, timeout: timeout}
}

// Create stores a new introduction. An existing id yields ErrConflict.
func (r *Repo) Create(ctx context.Context, in domintro.Introduction) error {
	data, err := json.Marshal(row{
		ID:           in.ID(),
		RequesterID:  in.RequesterID(),
		TargetID:     in.TargetID(),
		MatchContext: in.MatchContext(),
		CreatedAt:    in.CreatedAt(),
	})
	if err != nil {
		return fmt.Errorf("marshal introduction: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	ok, err := r.store.SetNX(ctx, keyPrefix+in.ID(), data, 0)
	if err != nil {
		return fmt.Errorf("create introduction: %w: %w", domain.ErrTransientDependency, err)
	}
	if !ok {
		return fmt.Errorf("introduction %s: %w", in.ID(), domain.ErrConflict)
	}
	return nil
}

// Get loads an introduction by id.
func (r *Repo) Get(ctx context.Context, id string) (domintro.Introduction, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domintro.Introduction{}, fmt.Errorf("introduction %s: %w", id, domain.ErrNotFound)
		}
		return domintro.Introduction{}, fmt.Errorf("get introduction: %w: %w", domain.ErrTransientDependency, err)
	}

	var rw row
	if err := json.Unmarshal(data, &rw); err != nil {
		return domintro.Introduction{}, fmt.Errorf("unmarshal introduction: %w", err)
	}
	return domintro.Reconstruct(rw.ID, rw.RequesterID, rw.TargetID, rw.MatchContext, rw.CreatedAt), nil
}
