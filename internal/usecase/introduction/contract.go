package introduction

import (
	"context"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	domintro "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/introduction"
)

// Repository persists introductions.
type Repository interface {
	Create(ctx context.Context, in domintro.Introduction) error
	Get(ctx context.Context, id string) (domintro.Introduction, error)
}

// Discoverer produces the ranking an introduction is chosen from.
type Discoverer interface {
	Discover(ctx context.Context, ownerID string, terms []string) (discovery.Result, bool, error)
}
