package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	domanalytics "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/analytics"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/discovery"
	domintro "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/introduction"
	domout "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
	dompost "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/post"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/profile"
	domusage "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/usage"
	logpkg "github.com/AINative-Studio/PublicFounders-sub001/internal/logger"
	analyticsuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/analytics"
	contentuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/content"
	discoveryuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/discovery"
	healthuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/health"
	introductionuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/introduction"
	outcomeuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/outcome"
	usageuc "github.com/AINative-Studio/PublicFounders-sub001/internal/usecase/usage"
)

const maxBodyBytes = 1 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Services bundles the use cases the HTTP API exposes.
type Services struct {
	Discovery     *discoveryuc.Service
	Introductions *introductionuc.Service
	Outcomes      *outcomeuc.Service
	Analytics     *analyticsuc.Service
	Content       *contentuc.Service
	Usage         *usageuc.Service
	Health        *healthuc.Service
}

// Server implements ServerInterface.
type Server struct {
	discovery     *discoveryuc.Service
	introductions *introductionuc.Service
	outcomes      *outcomeuc.Service
	analytics     *analyticsuc.Service
	content       *contentuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(svc Services, logger *zap.Logger) *Server {
	s := &Server{
		discovery:     svc.Discovery,
		introductions: svc.Introductions,
		outcomes:      svc.Outcomes,
		analytics:     svc.Analytics,
		content:       svc.Content,
		usage:         svc.Usage,
		health:        svc.Health,
		logger:        logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrUnauthorized, http.StatusForbidden, ErrorResponseCodeForbidden),
		sentinelHandler(domain.ErrConflict, http.StatusConflict, ErrorResponseCodeConflict),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded,
			http.StatusTooManyRequests, ErrorResponseCodeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError),
		sentinelHandler(domain.ErrTransientDependency,
			http.StatusServiceUnavailable, ErrorResponseCodeServiceUnavailable),
	}
	return s
}

// Discover handles POST /api/v1/discover.
func (s *Server) Discover(w http.ResponseWriter, r *http.Request, params UserParams) {
	var req DiscoverRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, hit, err := s.discovery.Discover(r.Context(), params.UserID, req.Terms)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DiscoverResponse{
		OwnerID:    res.OwnerID,
		Terms:      res.Terms,
		Results:    res.Items,
		ComputedAt: res.ComputedAt,
		CacheHit:   hit,
	})
}

// InvalidateCache handles POST /api/v1/cache/invalidate.
func (s *Server) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req InvalidateCacheRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var scope discovery.Scope
	switch req.Scope {
	case "all":
		scope = discovery.AllScope()
	case "owner":
		if req.OwnerID == nil || *req.OwnerID == "" {
			writeError(w, http.StatusUnprocessableEntity, ErrorResponseCodeValidationFailed, "owner_id is required for owner scope")
			return
		}
		scope = discovery.OwnerScope(*req.OwnerID)
	default:
		writeError(w, http.StatusUnprocessableEntity, ErrorResponseCodeValidationFailed, `scope must be "all" or "owner"`)
		return
	}

	s.discovery.Invalidate(r.Context(), scope)
	w.WriteHeader(http.StatusNoContent)
}

// CreateIntroduction handles POST /api/v1/introductions.
func (s *Server) CreateIntroduction(w http.ResponseWriter, r *http.Request, params UserParams) {
	var req CreateIntroductionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	in, err := s.introductions.Create(r.Context(), params.UserID, req.TargetID, req.Terms)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/introductions/"+in.ID())
	writeJSON(w, http.StatusCreated, introductionToResponse(&in))
}

// GetIntroduction handles GET /api/v1/introductions/{id}.
func (s *Server) GetIntroduction(w http.ResponseWriter, r *http.Request, id string, params UserParams) {
	in, err := s.introductions.Get(r.Context(), id, params.UserID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, introductionToResponse(&in))
}

// RecordOutcome handles POST /api/v1/introductions/{id}/outcome.
func (s *Server) RecordOutcome(w http.ResponseWriter, r *http.Request, id string, params UserParams) {
	var req RecordOutcomeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	rec, err := s.outcomes.Record(r.Context(), outcomeuc.RecordInput{
		IntroductionID: id,
		UserID:         params.UserID,
		Kind:           req.Kind,
		Rating:         req.Rating,
		FeedbackText:   req.FeedbackText,
		Tags:           req.Tags,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, outcomeToResponse(&rec))
}

// UpdateOutcome handles PATCH /api/v1/introductions/{id}/outcome.
func (s *Server) UpdateOutcome(w http.ResponseWriter, r *http.Request, id string, params UserParams) {
	var req UpdateOutcomeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := patchFromRequest(req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	rec, err := s.outcomes.Update(r.Context(), outcomeuc.UpdateInput{
		IntroductionID: id,
		UserID:         params.UserID,
		Patch:          p,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, outcomeToResponse(&rec))
}

// GetOutcome handles GET /api/v1/introductions/{id}/outcome.
func (s *Server) GetOutcome(w http.ResponseWriter, r *http.Request, id string, params UserParams) {
	rec, err := s.outcomes.Get(r.Context(), id, params.UserID)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeToResponse(&rec))
}

// EraseOutcomes handles DELETE /api/v1/users/{id}/outcomes. Users may only erase themselves.
func (s *Server) EraseOutcomes(w http.ResponseWriter, r *http.Request, id string, params UserParams) {
	if id != params.UserID {
		writeError(w, http.StatusForbidden, ErrorResponseCodeForbidden, "users may only erase their own outcomes")
		return
	}

	n, err := s.outcomes.Erase(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, EraseOutcomesResponse{Anonymized: n})
}

// PublishPost handles POST /api/v1/posts.
func (s *Server) PublishPost(w http.ResponseWriter, r *http.Request, params UserParams) {
	var req PublishPostRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.content.PublishPost(r.Context(), params.UserID, req.Body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/v1/posts/"+p.ID())
	writeJSON(w, http.StatusCreated, postToResponse(&p))
}

// GetPost handles GET /api/v1/posts/{id}.
func (s *Server) GetPost(w http.ResponseWriter, r *http.Request, id string) {
	p, err := s.content.GetPost(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, postToResponse(&p))
}

// UpsertProfile handles PUT /api/v1/profiles/me.
func (s *Server) UpsertProfile(w http.ResponseWriter, r *http.Request, params UserParams) {
	var req UpsertProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := s.content.UpsertProfile(r.Context(), params.UserID, contentuc.ProfileInput{
		Name:        req.Name,
		Summary:     req.Summary,
		Trust:       req.Trust,
		Reciprocity: req.Reciprocity,
	})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(&p))
}

// GetProfile handles GET /api/v1/profiles/{id}.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request, id string) {
	p, err := s.content.GetProfile(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profileToResponse(&p))
}

// OutcomeSummary handles GET /api/v1/analytics/outcomes.
func (s *Server) OutcomeSummary(w http.ResponseWriter, r *http.Request, params OutcomeSummaryParams) {
	var f domanalytics.Filters
	if params.Kind != nil {
		for _, raw := range *params.Kind {
			k, err := domout.ParseKind(raw)
			if err != nil {
				s.handleDomainError(w, r, err)
				return
			}
			f.Kinds = append(f.Kinds, k)
		}
	}
	if params.RecordedBy != nil {
		f.RecordedBy = *params.RecordedBy
	}

	summary, err := s.analytics.Summarize(r.Context(), domanalytics.Range{From: params.From, To: params.To}, f)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetUsage handles GET /api/v1/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, params UsageParams) {
	var raw string
	if params.Period != nil {
		raw = *params.Period
	}
	period, err := domusage.ParsePeriod(raw)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.usage.Report(r.Context(), period))
}

// HealthCheck handles GET /health. Only an unhealthy report is 503; a degraded
// instance keeps serving discovery and outcome writes.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ParamErrorHandler renders parameter binding failures. A missing identity header is 401.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var rhe *RequiredHeaderError
	if errors.As(err, &rhe) && rhe.ParamName == HeaderUserID {
		writeError(w, http.StatusUnauthorized, ErrorResponseCodeUnauthenticated, "missing "+HeaderUserID+" header")
		return
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrUnauthorized,
		domain.ErrConflict,
		domain.ErrNotFound,
		domain.ErrTransientDependency,
		domain.ErrEmbeddingQuotaExceeded,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler returns the full message: validation errors only carry caller input.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	writeError(w, http.StatusUnprocessableEntity, ErrorResponseCodeValidationFailed, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context(), s.logger)
	logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func patchFromRequest(req UpdateOutcomeRequest) (domout.Patch, error) {
	var p domout.Patch
	if req.Kind != nil {
		k, err := domout.ParseKind(*req.Kind)
		if err != nil {
			return domout.Patch{}, fmt.Errorf("patch: %w", err)
		}
		p.Kind = &k
	}
	p.Rating = req.Rating
	p.FeedbackText = req.FeedbackText
	if req.Tags != nil {
		p.Tags = append([]string{}, *req.Tags...)
	}
	return p, nil
}

func introductionToResponse(in *domintro.Introduction) IntroductionResponse {
	return IntroductionResponse{
		ID:           in.ID(),
		RequesterID:  in.RequesterID(),
		TargetID:     in.TargetID(),
		MatchContext: in.MatchContext(),
		CreatedAt:    in.CreatedAt(),
	}
}

func outcomeToResponse(rec *domout.Record) OutcomeResponse {
	tags := rec.Tags()
	if tags == nil {
		tags = []string{}
	}
	return OutcomeResponse{
		ID:             rec.ID(),
		IntroductionID: rec.IntroductionID(),
		RecordedBy:     rec.RecordedBy(),
		Kind:           string(rec.Kind()),
		Rating:         rec.Rating(),
		FeedbackText:   rec.FeedbackText(),
		Tags:           tags,
		FeedbackScore:  rec.FeedbackScore(),
		MatchContext:   rec.MatchContext(),
		RecordedAt:     rec.RecordedAt(),
		UpdatedAt:      rec.UpdatedAt(),
	}
}

func postToResponse(p *dompost.Post) PostResponse {
	return PostResponse{ID: p.ID(), AuthorID: p.AuthorID(), Body: p.Body(), CreatedAt: p.CreatedAt()}
}

func profileToResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:          p.ID(),
		Name:        p.Name(),
		Summary:     p.Summary(),
		Trust:       p.Trust(),
		Reciprocity: p.Reciprocity(),
		UpdatedAt:   p.UpdatedAt(),
	}
}
