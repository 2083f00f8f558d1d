package content

import (
	"context"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	dompost "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/post"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/profile"
)

// PostRepository persists published posts.
type PostRepository interface {
	Save(ctx context.Context, p dompost.Post) error
	Get(ctx context.Context, id string) (dompost.Post, error)
}

// ProfileIndex stores searchable profiles.
type ProfileIndex interface {
	UpsertProfile(ctx context.Context, p profile.Profile) error
	GetProfile(ctx context.Context, id string) (profile.Profile, error)
}

// Invalidator drops cached discovery results.
type Invalidator interface {
	Invalidate(ctx context.Context, scope discovery.Scope)
}
