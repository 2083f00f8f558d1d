// Package post defines published content. Publishing a post changes what discovery
// can find, so it drives cache invalidation.
package post

import (
	"fmt"
	"strings"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
)

// MaxBodySize is the maximum post body size in bytes.
const MaxBodySize = 16384

// Post is a published piece of content.
type Post struct {
	id        string
	authorID  string
	body      string
	createdAt time.Time
}

// New validates and creates a Post.
func New(id, authorID, body string, now time.Time) (Post, error) {
	if id == "" || strings.TrimSpace(authorID) == "" {
		return Post{}, fmt.Errorf("%w: post id and author are required", domain.ErrValidation)
	}
	if strings.TrimSpace(body) == "" {
		return Post{}, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}
	if len(body) > MaxBodySize {
		return Post{}, fmt.Errorf("%w: body too large (max %d bytes)", domain.ErrValidation, MaxBodySize)
	}
	return Post{id: id, authorID: authorID, body: body, createdAt: now.UTC()}, nil
}

// Reconstruct creates a Post without validation (storage hydration).
func Reconstruct(id, authorID, body string, createdAt time.Time) Post {
	return Post{id: id, authorID: authorID, body: body, createdAt: createdAt}
}

// ID returns the post identifier.
func (p *Post) ID() string { return p.id }

// AuthorID returns the author.
func (p *Post) AuthorID() string { return p.authorID }

// Body returns the post text.
func (p *Post) Body() string { return p.body }

// CreatedAt returns the publish time.
func (p *Post) CreatedAt() time.Time { return p.createdAt }
