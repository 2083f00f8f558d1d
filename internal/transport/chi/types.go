package chi

import (
	"time"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/match"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest             ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthenticated        ErrorResponseCode = "unauthenticated"
	ErrorResponseCodeValidationFailed       ErrorResponseCode = "validation_failed"
	ErrorResponseCodeForbidden              ErrorResponseCode = "forbidden"
	ErrorResponseCodeConflict               ErrorResponseCode = "conflict"
	ErrorResponseCodeNotFound               ErrorResponseCode = "not_found"
	ErrorResponseCodeServiceUnavailable     ErrorResponseCode = "service_unavailable"
	ErrorResponseCodeEmbeddingQuotaExceeded ErrorResponseCode = "embedding_quota_exceeded"
	ErrorResponseCodeEmbeddingProviderError ErrorResponseCode = "embedding_provider_error"
	ErrorResponseCodeInternalError          ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// DiscoverRequest is the body of POST /discover.
type DiscoverRequest struct {
	Terms []string `json:"terms"`
}

// DiscoverResponse is a ranked discovery result.
type DiscoverResponse struct {
	OwnerID    string            `json:"owner_id"`
	Terms      []string          `json:"terms"`
	Results    []match.Candidate `json:"results"`
	ComputedAt time.Time         `json:"computed_at"`
	CacheHit   bool              `json:"cache_hit"`
}

// InvalidateCacheRequest is the body of POST /cache/invalidate.
type InvalidateCacheRequest struct {
	Scope   string  `json:"scope"`
	OwnerID *string `json:"owner_id,omitempty"`
}

// CreateIntroductionRequest is the body of POST /introductions.
type CreateIntroductionRequest struct {
	TargetID string   `json:"target_id"`
	Terms    []string `json:"terms"`
}

// IntroductionResponse is an introduction with its frozen match context.
type IntroductionResponse struct {
	ID           string         `json:"id"`
	RequesterID  string         `json:"requester_id"`
	TargetID     string         `json:"target_id"`
	MatchContext *match.Context `json:"match_context,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// RecordOutcomeRequest is the body of POST /introductions/{id}/outcome.
type RecordOutcomeRequest struct {
	Kind         string   `json:"kind"`
	Rating       *int     `json:"rating,omitempty"`
	FeedbackText *string  `json:"feedback_text,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// UpdateOutcomeRequest is the body of PATCH /introductions/{id}/outcome.
// Absent fields are unchanged; "tags": [] clears the tags.
type UpdateOutcomeRequest struct {
	Kind         *string   `json:"kind,omitempty"`
	Rating       *int      `json:"rating,omitempty"`
	FeedbackText *string   `json:"feedback_text,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
}

// OutcomeResponse is a stored outcome record.
type OutcomeResponse struct {
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

// EraseOutcomesResponse reports how many records were anonymized.
type EraseOutcomesResponse struct {
	Anonymized int `json:"anonymized"`
}

// PublishPostRequest is the body of POST /posts.
type PublishPostRequest struct {
	Body string `json:"body"`
}

// PostResponse is a published post.
type PostResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertProfileRequest is the body of PUT /profiles/me.
type UpsertProfileRequest struct {
	Name        string   `json:"name"`
	Summary     string   `json:"summary"`
	Trust       *float64 `json:"trust,omitempty"`
	Reciprocity *float64 `json:"reciprocity,omitempty"`
}

// ProfileResponse is a searchable profile.
type ProfileResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary"`
	Trust       float64   `json:"trust"`
	Reciprocity float64   `json:"reciprocity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
