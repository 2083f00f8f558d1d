package learning

import (
	"context"

	"go.uber.org/zap"

	"github.com/AINative-Studio/PublicFounders-sub001/internal/domain/outcome"
)

// LogSink writes events to the log. Used when no learning endpoint is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Deliver logs the event. It never fails.
func (s *LogSink) Deliver(_ context.Context, e outcome.Event) error {
	s.logger.Info("feedback event",
		zap.String("outcome_id", e.OutcomeID),
		zap.String("introduction_id", e.IntroductionID),
		zap.Float64("feedback_score", e.FeedbackScore),
		zap.Float64("overall", e.MatchContext.Overall),
		zap.Time("emitted_at", e.EmittedAt),
	)
	return nil
}
