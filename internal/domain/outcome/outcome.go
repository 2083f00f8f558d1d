// Package outcome holds the outcome record aggregate and the feedback score rules.
package outcome

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// Kind is the reported result of an introduction.
type Kind string

// Outcome kinds.
const (
	KindSuccessful   Kind = "successful"
	KindUnsuccessful Kind = "unsuccessful"
	KindNoResponse   Kind = "no_response"
	KindNotRelevant  Kind = "not_relevant"
)

// Kinds lists every valid kind in a stable order.
var Kinds = []Kind{KindSuccessful, KindUnsuccessful, KindNoResponse, KindNotRelevant}

var baseScore = map[Kind]float64{
	KindSuccessful:   1.0,
	KindUnsuccessful: -0.5,
	KindNoResponse:   -0.3,
	KindNotRelevant:  -0.7,
}

// indexed by rating; slot 0 is unused
var ratingAdj = [...]float64{0, -0.2, -0.1, 0, 0.1, 0.2}

// MaxFeedbackText is the maximum feedback text length in bytes.
const MaxFeedbackText = 4096

// ErasedPrincipal replaces user identifiers on erased records.
const ErasedPrincipal = "erased"

var allowedTags = map[string]bool{
	"great_fit":          true,
	"not_a_fit":          true,
	"responsive":         true,
	"unresponsive":       true,
	"led_to_meeting":     true,
	"led_to_investment":  true,
	"led_to_hire":        true,
	"led_to_partnership": true,
	"wrong_stage":        true,
	"wrong_industry":     true,
	"timing_off":         true,
	"follow_up_planned":  true,
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := baseScore[k]
	return ok
}

// ParseKind validates a raw kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown outcome kind %q", domain.ErrValidation, s)
	}
	return k, nil
}

// AllowedTags returns the allowed tag set, sorted.
func AllowedTags() []string {
	out := make([]string, 0, len(allowedTags))
	for t := range allowedTags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// FeedbackScore maps a kind and optional rating to a score in [-1, 1].
func FeedbackScore(kind Kind, rating *int) float64 {
	s := baseScore[kind]
	if rating != nil && *rating >= 1 && *rating <= 5 {
		s += ratingAdj[*rating]
	}
	return match.Clamp(s, -1, 1)
}

// Fields are the caller-supplied parts of an outcome.
type Fields struct {
	Kind         Kind
	Rating       *int
	FeedbackText *string
	Tags         []string
}

// Validate checks the fields and returns a normalized copy (tags de-duplicated and sorted).
func (f Fields) Validate() (Fields, error) {
	if !f.Kind.Valid() {
		return Fields{}, fmt.Errorf("%w: unknown outcome kind %q", domain.ErrValidation, f.Kind)
	}
	if f.Rating != nil && (*f.Rating < 1 || *f.Rating > 5) {
		return Fields{}, fmt.Errorf("%w: rating must be between 1 and 5, got %d", domain.ErrValidation, *f.Rating)
	}
	if f.FeedbackText != nil && len(*f.FeedbackText) > MaxFeedbackText {
		return Fields{}, fmt.Errorf("%w: feedback text too long (max %d bytes)", domain.ErrValidation, MaxFeedbackText)
	}
	tags, err := normalizeTags(f.Tags)
	if err != nil {
		return Fields{}, err
	}

	out := Fields{Kind: f.Kind, Tags: tags}
	if f.Rating != nil {
		r := *f.Rating
		out.Rating = &r
	}
	if f.FeedbackText != nil {
		t := *f.FeedbackText
		out.FeedbackText = &t
	}
	return out, nil
}

func normalizeTags(tags []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if !allowedTags[t] {
			return nil, fmt.Errorf("%w: tag %q is not allowed", domain.ErrValidation, t)
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Patch is a partial outcome update. Nil fields are unchanged; a non-nil empty Tags clears tags.
type Patch struct {
	Kind         *Kind
	Rating       *int
	FeedbackText *string
	Tags         []string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Kind == nil && p.Rating == nil && p.FeedbackText == nil && p.Tags == nil
}

// Record is the outcome aggregate. At most one exists per introduction.
type Record struct {
	id             string
	introductionID string
	recordedBy     string
	fields         Fields
	feedbackScore  float64
	matchContext   match.Context
	recordedAt     time.Time
	updatedAt      time.Time
}

// New validates the fields and creates a Record with its feedback score computed.
func New(id, introductionID, recordedBy string, f Fields, mc match.Context, now time.Time) (Record, error) {
	if id == "" || introductionID == "" {
		return Record{}, fmt.Errorf("%w: outcome and introduction ids are required", domain.ErrValidation)
	}
	if strings.TrimSpace(recordedBy) == "" {
		return Record{}, fmt.Errorf("%w: recorded_by is required", domain.ErrValidation)
	}
	nf, err := f.Validate()
	if err != nil {
		return Record{}, err
	}
	now = now.UTC()
	return Record{
		id:             id,
		introductionID: introductionID,
		recordedBy:     recordedBy,
		fields:         nf,
		feedbackScore:  FeedbackScore(nf.Kind, nf.Rating),
		matchContext:   mc,
		recordedAt:     now,
		updatedAt:      now,
	}, nil
}

// Reconstruct creates a Record without validation (storage hydration).
func Reconstruct(
	id, introductionID, recordedBy string, f Fields, score float64,
	mc match.Context, recordedAt, updatedAt time.Time,
) Record {
	return Record{
		id: id, introductionID: introductionID, recordedBy: recordedBy, fields: f,
		feedbackScore: score, matchContext: mc, recordedAt: recordedAt, updatedAt: updatedAt,
	}
}

// ID returns the outcome identifier.
func (r *Record) ID() string { return r.id }

// IntroductionID returns the introduction this outcome belongs to.
func (r *Record) IntroductionID() string { return r.introductionID }

// RecordedBy returns the principal that recorded the outcome.
func (r *Record) RecordedBy() string { return r.recordedBy }

// Kind returns the outcome kind.
func (r *Record) Kind() Kind { return r.fields.Kind }

// Rating returns the optional 1..5 rating.
func (r *Record) Rating() *int { return r.fields.Rating }

// FeedbackText returns the optional free-form feedback.
func (r *Record) FeedbackText() *string { return r.fields.FeedbackText }

// Tags returns the sorted tag set.
func (r *Record) Tags() []string { return r.fields.Tags }

// Fields returns the caller-supplied fields.
func (r *Record) Fields() Fields { return r.fields }

// FeedbackScore returns the bounded feedback score.
func (r *Record) FeedbackScore() float64 { return r.feedbackScore }

// MatchContext returns the score snapshot captured at record time.
func (r *Record) MatchContext() match.Context { return r.matchContext }

// RecordedAt returns the creation time.
func (r *Record) RecordedAt() time.Time { return r.recordedAt }

// UpdatedAt returns the time of the last change.
func (r *Record) UpdatedAt() time.Time { return r.updatedAt }

// Apply merges p into the record and recomputes the score. The result is a new Record.
func (r *Record) Apply(p Patch, now time.Time) (Record, error) {
	if p.IsEmpty() {
		return Record{}, fmt.Errorf("%w: at least one field must be provided", domain.ErrValidation)
	}
	merged := r.fields
	if p.Kind != nil {
		merged.Kind = *p.Kind
	}
	if p.Rating != nil {
		merged.Rating = p.Rating
	}
	if p.FeedbackText != nil {
		merged.FeedbackText = p.FeedbackText
	}
	if p.Tags != nil {
		merged.Tags = p.Tags
	}
	nf, err := merged.Validate()
	if err != nil {
		return Record{}, err
	}

	out := *r
	out.fields = nf
	out.feedbackScore = FeedbackScore(nf.Kind, nf.Rating)
	out.updatedAt = now.UTC()
	return out, nil
}

// Anonymize replaces every occurrence of userID in the record with ErasedPrincipal.
// The record keeps its kind, rating, tags and score.
func (r *Record) Anonymize(userID string, now time.Time) Record {
	out := *r
	if out.recordedBy == userID {
		out.recordedBy = ErasedPrincipal
	}
	if out.matchContext.Mentions(userID) {
		out.matchContext = out.matchContext.Anonymized(ErasedPrincipal)
	}
	out.updatedAt = now.UTC()
	return out
}

// Mentions reports whether userID appears anywhere in the record.
func (r *Record) Mentions(userID string) bool {
	return r.recordedBy == userID || r.matchContext.Mentions(userID)
}
