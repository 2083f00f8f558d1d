package outcome

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
	domout "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// recordRow is the stored JSON form of an outcome record.
type recordRow struct {
	ID             string        `json:"id"`
	IntroductionID string        `json:"introduction_id"`
	RecordedBy     string        `json:"recorded_by"`
	Kind           string        `json:"kind"`
	Rating         *int          `json:"rating,omitempty"`
	FeedbackText   *string       `json:"feedback_text,omitempty"`
	Tags           []string      `json:"tags"`
	FeedbackScore  float64       `json:"feedback_score"`
	MatchContext   match.Context `json:"match_context"`
	RecordedAt     time.Time     `json:"recorded_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func encodeRecord(r *domout.Record) ([]byte, error) {
	row := recordRow{
		ID:             r.ID(),
		IntroductionID: r.IntroductionID(),
		RecordedBy:     r.RecordedBy(),
		Kind:           string(r.Kind()),
		Rating:         r.Rating(),
		FeedbackText:   r.FeedbackText(),
		Tags:           r.Tags(),
		FeedbackScore:  r.FeedbackScore(),
		MatchContext:   r.MatchContext(),
		RecordedAt:     r.RecordedAt(),
		UpdatedAt:      r.UpdatedAt(),
	}
	if row.Tags == nil {
		row.Tags = []string{}
	}
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal outcome: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte) (domout.Record, error) {
	var row recordRow
	if err := json.Unmarshal(data, &row); err != nil {
		return domout.Record{}, fmt.Errorf("unmarshal outcome: %w", err)
	}
	f := domout.Fields{
		Kind:         domout.Kind(row.Kind),
		Rating:       row.Rating,
		FeedbackText: row.FeedbackText,
		Tags:         row.Tags,
	}
	return domout.Reconstruct(
		row.ID, row.IntroductionID, row.RecordedBy, f, row.FeedbackScore,
		row.MatchContext, row.RecordedAt, row.UpdatedAt,
	), nil
}
