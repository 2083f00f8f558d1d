package feedback

import (
	"context"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// Sink delivers one event to the learning system. Errors wrapping
// domain.ErrFeedbackRejected are permanent; anything else is retried.
type Sink interface {
	Deliver(ctx context.Context, e outcome.Event) error
}
