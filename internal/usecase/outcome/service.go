// Package outcome records and updates introduction outcomes and feeds them to the learning system.
package outcome

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain"
	domout "github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
	"github.com/AINative-Studio/PublicFounders-sub001/internal/metrics"
)

// RecordInput is a request to record the outcome of an introduction.
type RecordInput struct {
	IntroductionID string
	UserID         string
	Kind           string
	Rating         *int
	FeedbackText   *string
	Tags           []string
}

// UpdateInput is a partial update by the original recorder.
type UpdateInput struct {
	IntroductionID string
	UserID         string
	Patch          domout.Patch
}

// Service enforces the outcome write path.
type Service struct {
	repo          Repository
	introductions IntroductionReader
	dispatcher    Dispatcher
	logger        *zap.Logger
	now           func() time.Time
	newID         func() string
}

// New creates an outcome service.
func New(repo Repository, introductions IntroductionReader, dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		repo:          repo,
		introductions: introductions,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Record creates the single outcome of an introduction. The steps run in a fixed order:
// party check, uniqueness, validation, scoring, context capture, commit, dispatch.
// A concurrent loser of the commit gets domain.ErrConflict.
func (s *Service) Record(ctx context.Context, in RecordInput) (domout.Record, error) {
	intro, err := s.introductions.Get(ctx, in.IntroductionID)
	if err != nil {
		return domout.Record{}, fmt.Errorf("get introduction: %w", err)
	}
	if !intro.IsParty(in.UserID) {
		return domout.Record{}, fmt.Errorf("%w: user is not a party to introduction %s",
			domain.ErrUnauthorized, in.IntroductionID)
	}

	switch _, err := s.repo.Get(ctx, in.IntroductionID); {
	case err == nil:
		return domout.Record{}, fmt.Errorf("%w: outcome already recorded for introduction %s",
			domain.ErrConflict, in.IntroductionID)
	case !errors.Is(err, domain.ErrNotFound):
		return domout.Record{}, fmt.Errorf("check existing outcome: %w", err)
	}

	kind, err := domout.ParseKind(in.Kind)
	if err != nil {
		return domout.Record{}, err
	}
	fields := domout.Fields{Kind: kind, Rating: in.Rating, FeedbackText: in.FeedbackText, Tags: in.Tags}

	rec, err := domout.New(s.newID(), in.IntroductionID, in.UserID, fields, intro.MatchContextOrNeutral(), s.now())
	if err != nil {
		return domout.Record{}, err
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return domout.Record{}, fmt.Errorf("create outcome: %w", err)
	}
	metrics.OutcomesTotal.WithLabelValues("record", string(rec.Kind())).Inc()

	s.dispatcher.Dispatch(domout.NewEvent(&rec, s.now()))
	return rec, nil
}

// Update merges a patch into an existing outcome. Only the original recorder may update.
// A record that changed since it was read (another update, an erasure) yields
// domain.ErrConflict and is left as is.
func (s *Service) Update(ctx context.Context, in UpdateInput) (domout.Record, error) {
	cur, err := s.repo.Get(ctx, in.IntroductionID)
	if err != nil {
		return domout.Record{}, fmt.Errorf("get outcome: %w", err)
	}
	if cur.RecordedBy() != in.UserID {
		return domout.Record{}, fmt.Errorf("%w: only the recorder may update this outcome", domain.ErrUnauthorized)
	}

	next, err := cur.Apply(in.Patch, s.now())
	if err != nil {
		return domout.Record{}, err
	}
	if err := s.repo.Update(ctx, cur, next); err != nil {
		return domout.Record{}, fmt.Errorf("update outcome: %w", err)
	}
	metrics.OutcomesTotal.WithLabelValues("update", string(next.Kind())).Inc()

	s.dispatcher.Dispatch(domout.NewEvent(&next, s.now()))
	return next, nil
}

// Get returns the outcome of an introduction to one of its parties.
func (s *Service) Get(ctx context.Context, introductionID, userID string) (domout.Record, error) {
	intro, err := s.introductions.Get(ctx, introductionID)
	if err != nil {
		return domout.Record{}, fmt.Errorf("get introduction: %w", err)
	}
	if !intro.IsParty(userID) {
		return domout.Record{}, fmt.Errorf("%w: user is not a party to introduction %s",
			domain.ErrUnauthorized, introductionID)
	}

	rec, err := s.repo.Get(ctx, introductionID)
	if err != nil {
		return domout.Record{}, fmt.Errorf("get outcome: %w", err)
	}
	return rec, nil
}

// Erase anonymizes every outcome that mentions userID and returns how many changed.
// Records keep their kind, rating, tags and score.
func (s *Service) Erase(ctx context.Context, userID string) (int, error) {
	if userID == "" || userID == domout.ErasedPrincipal {
		return 0, fmt.Errorf("%w: user id is required", domain.ErrValidation)
	}

	records, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list outcomes: %w", err)
	}

	erased := 0
	for i := range records {
		if !records[i].Mentions(userID) {
			continue
		}
		changed, err := s.anonymize(ctx, records[i], userID)
		if err != nil {
			return erased, fmt.Errorf("anonymize outcome %s: %w", records[i].ID(), err)
		}
		if changed {
			erased++
		}
	}
	if erased > 0 {
		metrics.OutcomesTotal.WithLabelValues("erase", "").Add(float64(erased))
		s.logger.Info("outcomes anonymized", zap.Int("count", erased))
	}
	return erased, nil
}

// maxEraseAttempts bounds how often one record is re-read when writers keep racing the erasure.
const maxEraseAttempts = 5

// anonymize rewrites rec without userID, re-reading it whenever a concurrent
// write got there first. It reports false when nothing was left to erase.
func (s *Service) anonymize(ctx context.Context, rec domout.Record, userID string) (bool, error) {
	for range maxEraseAttempts {
		err := s.repo.Update(ctx, rec, rec.Anonymize(userID, s.now()))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, domain.ErrNotFound):
			return false, nil
		case !errors.Is(err, domain.ErrConflict):
			return false, err
		}

		rec, err = s.repo.Get(ctx, rec.IntroductionID())
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if !rec.Mentions(userID) {
			return false, nil
		}
	}
	return false, fmt.Errorf("%w: record kept changing during erasure", domain.ErrConflict)
}
