package outcome

import (
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// Event is the outbound learning signal for a recorded outcome. It is never persisted.
type Event struct {
	OutcomeID      string        `json:"outcome_id"`
	IntroductionID string        `json:"introduction_id"`
	FeedbackScore  float64       `json:"feedback_score"`
	MatchContext   match.Context `json:"match_context"`
	UpdatedAt      time.Time     `json:"updated_at"`
	EmittedAt      time.Time     `json:"emitted_at"`
}

// IdempotencyKey names the record version the event describes. Redeliveries
// of one version share it; every update gets a new one.
func (e Event) IdempotencyKey() string {
	return e.OutcomeID + ":" + e.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

// NewEvent builds the event for the record's current state.
func NewEvent(r *Record, now time.Time) Event {
	return Event{
		OutcomeID:      r.ID(),
		IntroductionID: r.IntroductionID(),
		FeedbackScore:  r.FeedbackScore(),
		MatchContext:   r.MatchContext(),
		UpdatedAt:      r.UpdatedAt(),
		EmittedAt:      now.UTC(),
	}
}
