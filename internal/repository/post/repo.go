// Package post persists published posts.
package post

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/db"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	dompost "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/post"
)

var keyPrefix = domain.KeyPrefix + "post:"

// DefaultTimeout bounds every store call.
const DefaultTimeout = 2 * time.Second

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type row struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo implements usecase/content.Repository.
type Repo struct {
	store   store
	timeout time.Duration
}

// New creates a post repository. timeout <= 0 uses DefaultTimeout.
func New(s store, timeout time.Duration) *Repo {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Repo{store: s, timeout: timeout}
}

// Save writes the post.
func (r *Repo) Save(ctx context.Context, p dompost.Post) error {
	data, err := json.Marshal(row{ID: p.ID(), AuthorID: p.AuthorID(), Body: p.Body(), CreatedAt: p.CreatedAt()})
	if err != nil {
		return fmt.Errorf("marshal post: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.Set(ctx, keyPrefix+p.ID(), data); err != nil {
		return fmt.Errorf("save post: %w: %w", domain.ErrTransientDependency, err)
	}
	return nil
}

// Get loads a post by id.
func (r *Repo) Get(ctx context.Context, id string) (dompost.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	data, err := r.store.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return dompost.Post{}, fmt.Errorf("post %s: %w", id, domain.ErrNotFound)
		}
		return dompost.Post{}, fmt.Errorf("get post: %w: %w", domain.ErrTransientDependency, err)
	}

	var rw row
	if err := json.Unmarshal(data, &rw); err != nil {
		return dompost.Post{}, fmt.Errorf("unmarshal post: %w", err)
	}
	return dompost.Reconstruct(rw.ID, rw.AuthorID, rw.Body, rw.CreatedAt), nil
}
