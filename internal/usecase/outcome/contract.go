package outcome

import (
	"context"

	domintro "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/introduction"
	domout "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// Repository persists outcome records. Create must fail with domain.ErrConflict when
// a record for the introduction already exists; Update must fail with it when the
// stored record is no longer prev.
type Repository interface {
	Create(ctx context.Context, rec domout.Record) error
	Get(ctx context.Context, introductionID string) (domout.Record, error)
	Update(ctx context.Context, prev, next domout.Record) error
	List(ctx context.Context) ([]domout.Record, error)
}

// IntroductionReader loads the introduction an outcome belongs to.
type IntroductionReader interface {
	Get(ctx context.Context, id string) (domintro.Introduction, error)
}

// Dispatcher ships learning events without blocking.
type Dispatcher interface {
	Dispatch(e domout.Event)
}
