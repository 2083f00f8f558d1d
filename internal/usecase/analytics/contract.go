package analytics

import (
	"context"

	domout "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// OutcomeLister reads every stored outcome record.
type OutcomeLister interface {
	List(ctx context.Context) ([]domout.Record, error)
}
